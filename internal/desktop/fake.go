package desktop

import (
	"errors"
	"sync"
)

// KeyEvent is one recorded key transition.
type KeyEvent struct {
	VK uint8
	Up bool
}

// Lookup is one recorded FindWindow call.
type Lookup struct {
	Class string
	Title string
}

type fakeWindow struct {
	class  string
	title  string
	parent Handle
	closed bool
}

// Fake is an in-memory Desktop that records every call. Windows are added by
// tests (or by a fake process starter) and removed when closed.
type Fake struct {
	mu      sync.Mutex
	next    Handle
	windows map[Handle]*fakeWindow
	order   []Handle

	lookups    []Lookup
	keys       []KeyEvent
	clicked    []Handle
	closed     []Handle
	foreground []Handle

	// OnKey, when set, observes each key event after it is recorded.
	OnKey func(KeyEvent)
	// OnClose, when set, observes each WM_CLOSE after the window is removed.
	OnClose func(Handle)
	// FailForeground makes SetForeground return an error.
	FailForeground bool
}

// NewFake returns an empty fake desktop.
func NewFake() *Fake {
	return &Fake{next: 0x100, windows: map[Handle]*fakeWindow{}}
}

// AddWindow registers a top-level window and returns its handle.
func (f *Fake) AddWindow(class, title string) Handle {
	return f.add(class, title, 0)
}

// AddChild registers a control with the given text under parent.
func (f *Fake) AddChild(parent Handle, text string) Handle {
	return f.add("Button", text, parent)
}

func (f *Fake) add(class, title string, parent Handle) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	h := f.next
	f.windows[h] = &fakeWindow{class: class, title: title, parent: parent}
	f.order = append(f.order, h)
	return h
}

// RemoveWindow drops a window as if it closed by itself.
func (f *Fake) RemoveWindow(h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[h]; ok {
		w.closed = true
	}
}

func (f *Fake) FindWindow(class, title string) (Handle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, Lookup{Class: class, Title: title})
	for _, h := range f.order {
		w := f.windows[h]
		if w.closed || w.parent != 0 || w.title != title {
			continue
		}
		if class == "" || class == w.class {
			return h, true
		}
	}
	return 0, false
}

func (f *Fake) SetForeground(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailForeground {
		return errors.New("fake: foreground refused")
	}
	f.foreground = append(f.foreground, h)
	return nil
}

func (f *Fake) Children(h Handle) []Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Handle
	for _, c := range f.order {
		if w := f.windows[c]; w.parent == h && !w.closed {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) WindowText(h Handle) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[h]; ok {
		return w.title
	}
	return ""
}

func (f *Fake) Click(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.windows[h]; !ok {
		return errors.New("fake: no such control")
	}
	f.clicked = append(f.clicked, h)
	return nil
}

func (f *Fake) PostClose(h Handle) error {
	f.mu.Lock()
	w, ok := f.windows[h]
	if !ok || w.closed {
		f.mu.Unlock()
		return errors.New("fake: no such window")
	}
	w.closed = true
	f.closed = append(f.closed, h)
	hook := f.OnClose
	f.mu.Unlock()
	if hook != nil {
		hook(h)
	}
	return nil
}

func (f *Fake) KeyDown(vk uint8) { f.key(KeyEvent{VK: vk}) }
func (f *Fake) KeyUp(vk uint8)   { f.key(KeyEvent{VK: vk, Up: true}) }

func (f *Fake) key(ev KeyEvent) {
	f.mu.Lock()
	f.keys = append(f.keys, ev)
	hook := f.OnKey
	f.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
}

// Keys returns a copy of the recorded key events.
func (f *Fake) Keys() []KeyEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]KeyEvent(nil), f.keys...)
}

// KeyDowns returns only the key-down codes, in order.
func (f *Fake) KeyDowns() []uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint8
	for _, k := range f.keys {
		if !k.Up {
			out = append(out, k.VK)
		}
	}
	return out
}

// ResetKeys clears the recorded key events.
func (f *Fake) ResetKeys() {
	f.mu.Lock()
	f.keys = nil
	f.mu.Unlock()
}

// Lookups returns the recorded FindWindow calls.
func (f *Fake) Lookups() []Lookup {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Lookup(nil), f.lookups...)
}

// Closed returns the handles that received WM_CLOSE, in order.
func (f *Fake) Closed() []Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Handle(nil), f.closed...)
}

// ClosedTitles returns the titles of the windows that received WM_CLOSE.
func (f *Fake) ClosedTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.closed))
	for _, h := range f.closed {
		out = append(out, f.windows[h].title)
	}
	return out
}

// Clicked returns the controls that received BM_CLICK.
func (f *Fake) Clicked() []Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Handle(nil), f.clicked...)
}

// Foreground returns the handles raised to the foreground, in order.
func (f *Fake) Foreground() []Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Handle(nil), f.foreground...)
}

// Open reports whether a top-level window with title is currently open.
func (f *Fake) Open(title string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.windows {
		if w.title == title && w.parent == 0 && !w.closed {
			return true
		}
	}
	return false
}
