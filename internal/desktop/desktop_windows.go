//go:build windows

package desktop

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procFindWindowW          = user32.NewProc("FindWindowW")
	procSetForegroundWindow  = user32.NewProc("SetForegroundWindow")
	procEnumChildWindows     = user32.NewProc("EnumChildWindows")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procSendMessageW         = user32.NewProc("SendMessageW")
	procPostMessageW         = user32.NewProc("PostMessageW")
	procKeybdEvent           = user32.NewProc("keybd_event")
)

const (
	wmClose        = 0x0010
	bmClick        = 0x00F5
	keyeventfKeyUp = 0x0002
)

// EnumChildWindows needs a C callback; windows.NewCallback slots are a
// finite resource, so a single callback collects into enumOut under enumMu.
var (
	enumMu        sync.Mutex
	enumOut       []Handle
	enumChildProc = windows.NewCallback(func(hwnd, _ uintptr) uintptr {
		enumOut = append(enumOut, Handle(hwnd))
		return 1
	})
)

type win32 struct{}

// New returns the user32-backed Desktop.
func New() (Desktop, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("load user32: %w", err)
	}
	return win32{}, nil
}

func (win32) FindWindow(class, title string) (Handle, bool) {
	var classPtr *uint16
	if class != "" {
		p, err := windows.UTF16PtrFromString(class)
		if err != nil {
			return 0, false
		}
		classPtr = p
	}
	titlePtr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, false
	}
	r, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(classPtr)), uintptr(unsafe.Pointer(titlePtr)))
	return Handle(r), r != 0
}

func (win32) SetForeground(h Handle) error {
	r, _, e := procSetForegroundWindow.Call(uintptr(h))
	if r == 0 {
		return fmt.Errorf("SetForegroundWindow(%#x): %v", uintptr(h), e)
	}
	return nil
}

func (win32) Children(h Handle) []Handle {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumOut = nil
	procEnumChildWindows.Call(uintptr(h), enumChildProc, 0)
	out := enumOut
	enumOut = nil
	return out
}

func (win32) WindowText(h Handle) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(h))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

func (win32) Click(h Handle) error {
	procSendMessageW.Call(uintptr(h), bmClick, 0, 0)
	return nil
}

func (win32) PostClose(h Handle) error {
	r, _, e := procPostMessageW.Call(uintptr(h), wmClose, 0, 0)
	if r == 0 {
		return fmt.Errorf("PostMessage(WM_CLOSE, %#x): %v", uintptr(h), e)
	}
	return nil
}

func (win32) KeyDown(vk uint8) {
	procKeybdEvent.Call(uintptr(vk), 0, 0, 0)
}

func (win32) KeyUp(vk uint8) {
	procKeybdEvent.Call(uintptr(vk), 0, keyeventfKeyUp, 0)
}
