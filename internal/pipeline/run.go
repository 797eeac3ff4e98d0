package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"relax3d/internal/driver"
)

// RunState is the single token of one pipeline invocation. The run goroutine
// owns the machine and the active handle; other goroutines read them through
// Snapshot and request cancellation through Cancel.
type RunState struct {
	ID        string
	Kind      Kind
	Request   Request
	Option    Option
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	machine   *Machine
	active    *driver.StageHandle
	lastCPU   float64
	requested bool
	result    *Result
}

// NewRunState creates the token for plan and the context the run must observe.
func NewRunState(parent context.Context, plan Plan, now time.Time) (*RunState, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &RunState{
		ID:        uuid.NewString(),
		Kind:      plan.Kind,
		Request:   plan.Request,
		Option:    plan.Option,
		StartedAt: now,
		cancel:    cancel,
		done:      make(chan struct{}),
		machine:   NewMachine(),
	}, ctx
}

// Cancel requests cancellation. It is safe from any goroutine and returns
// false when the run already finished or cancellation was already requested.
func (r *RunState) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result != nil || r.requested {
		return false
	}
	r.requested = true
	r.cancel()
	return true
}

// Done is closed once the run has a result.
func (r *RunState) Done() <-chan struct{} { return r.done }

// Result returns the terminal result once the run finished.
func (r *RunState) Result() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return Result{}, false
	}
	return *r.result, true
}

// Snapshot is a read-only projection of a run.
type Snapshot struct {
	ID        string
	Kind      Kind
	Phase     Phase
	Stage     string
	Cause     string
	Active    string
	ActivePid int
	LastCPU   float64
	StartedAt time.Time
	Finished  bool
}

func (r *RunState) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot{
		ID:        r.ID,
		Kind:      r.Kind,
		Phase:     r.machine.Phase(),
		Stage:     r.machine.Stage(),
		Cause:     r.machine.Cause(),
		LastCPU:   r.lastCPU,
		StartedAt: r.StartedAt,
		Finished:  r.result != nil,
	}
	if r.active != nil {
		s.Active = r.active.Name
		s.ActivePid = r.active.Pid()
	}
	return s
}

func (r *RunState) transition(f func(*Machine) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return f(r.machine)
}

// activate publishes h as the handle receiving input. Re-activating the
// current handle is allowed; a second distinct handle is not.
func (r *RunState) activate(h *driver.StageHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active != h {
		return fmt.Errorf("stage handle %s still active while activating %s", r.active.Name, h.Name)
	}
	r.active = h
	return nil
}

func (r *RunState) release(h *driver.StageHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == h {
		r.active = nil
	}
}

func (r *RunState) activeHandle() *driver.StageHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *RunState) setCPU(v float64) {
	r.mu.Lock()
	r.lastCPU = v
	r.mu.Unlock()
}

func (r *RunState) finish(res Result) {
	r.mu.Lock()
	if r.result != nil {
		r.mu.Unlock()
		return
	}
	r.result = &res
	r.mu.Unlock()
	r.cancel()
	close(r.done)
}
