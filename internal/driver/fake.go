package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"relax3d/internal/desktop"
)

// FakeStarter hands out FakeProcess values and, when Desk is set, opens a
// window titled after the executable (without extension) on start. For tests.
type FakeStarter struct {
	Desk *desktop.Fake
	// Clock, when set, is advanced by SampleWindow on each CPU sample.
	Clock        Clock
	SampleWindow time.Duration
	// Samples holds the CPU readings per executable stem, returned in order;
	// the last one repeats.
	Samples map[string][]float64
	// Hidden lists executable stems that never show a window.
	Hidden map[string]bool
	// StartErr fails Start for the given executable stems.
	StartErr map[string]error
	// ExitOnStart makes the started process exit immediately (launcher stubs).
	ExitOnStart map[string]bool
	// Running is searched by Find, keyed by executable file name.
	Running map[string]*FakeProcess

	mu       sync.Mutex
	nextPid  int
	launched []Command
	procs    []*FakeProcess
}

func NewFakeStarter(desk *desktop.Fake, clock Clock) *FakeStarter {
	return &FakeStarter{
		Desk:         desk,
		Clock:        clock,
		SampleWindow: DefaultSampleWindow,
		Samples:      map[string][]float64{},
		Hidden:       map[string]bool{},
		StartErr:     map[string]error{},
		ExitOnStart:  map[string]bool{},
		Running:      map[string]*FakeProcess{},
		nextPid:      1000,
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *FakeStarter) Start(c Command) (Process, error) {
	name := stem(c.Path)
	s.mu.Lock()
	s.launched = append(s.launched, c)
	if err := s.StartErr[name]; err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.nextPid++
	p := &FakeProcess{pid: s.nextPid, name: filepath.Base(c.Path), samples: s.Samples[name], clock: s.Clock, window: s.SampleWindow}
	if s.ExitOnStart[name] {
		p.exited = true
	}
	s.procs = append(s.procs, p)
	hidden := s.Hidden[name] || p.exited
	s.mu.Unlock()
	if s.Desk != nil && !hidden {
		p.desk = s.Desk
		p.win = s.Desk.AddWindow("", name)
	}
	return p, nil
}

func (s *FakeStarter) Find(_ context.Context, name string) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, p := range s.Running {
		if strings.EqualFold(n, name) && !p.Exited() {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no running process named %s", name)
}

// Launched returns the executable stems started so far, in order.
func (s *FakeStarter) Launched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.launched))
	for _, c := range s.launched {
		out = append(out, stem(c.Path))
	}
	return out
}

// Commands returns the recorded start commands.
func (s *FakeStarter) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Command(nil), s.launched...)
}

// Last returns the most recently started process for an executable stem.
func (s *FakeStarter) Last(name string) *FakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.procs) - 1; i >= 0; i-- {
		if stem(s.procs[i].name) == name {
			return s.procs[i]
		}
	}
	return nil
}

// FakeProcess is a scripted Process.
type FakeProcess struct {
	mu         sync.Mutex
	pid        int
	name       string
	samples    []float64
	idx        int
	exited     bool
	terminated bool
	clock      Clock
	window     time.Duration
	desk       *desktop.Fake
	win        desktop.Handle

	// OnSample observes the 1-based sample count after each reading.
	OnSample func(n int)
	// TerminateErr is returned by Terminate when set.
	TerminateErr error
}

// NewFakeProcess returns a standalone scripted process.
func NewFakeProcess(name string, samples ...float64) *FakeProcess {
	return &FakeProcess{pid: 1, name: name, samples: samples}
}

func (p *FakeProcess) Pid() int     { return p.pid }
func (p *FakeProcess) Name() string { return p.name }

func (p *FakeProcess) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *FakeProcess) CPUPercent(ctx context.Context) (float64, error) {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return 0, ErrProcessExited
	}
	if p.clock != nil {
		p.clock.Sleep(p.window)
	}
	v := 100.0
	if len(p.samples) > 0 {
		i := p.idx
		if i >= len(p.samples) {
			i = len(p.samples) - 1
		}
		v = p.samples[i]
	}
	p.idx++
	n := p.idx
	hook := p.OnSample
	p.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return v, ctx.Err()
}

// SampleCount returns how many CPU samples were taken.
func (p *FakeProcess) SampleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx
}

// Exit marks the process as having exited by itself.
func (p *FakeProcess) Exit() {
	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()
}

func (p *FakeProcess) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TerminateErr != nil {
		return p.TerminateErr
	}
	if !p.exited {
		p.terminated = true
	}
	p.exited = true
	if p.desk != nil && p.win != 0 {
		p.desk.RemoveWindow(p.win)
	}
	return nil
}

// Terminated reports whether Terminate stopped a running process.
func (p *FakeProcess) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}
