package pipeline

import "fmt"

// Phase is the state machine position of a run.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRunning    Phase = "running"
	PhaseCancelling Phase = "cancelling"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
	PhaseCancelled  Phase = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed || p == PhaseCancelled
}

// invalidTransitionError is returned for a transition the machine does not allow.
type invalidTransitionError struct {
	from Phase
	to   Phase
}

func (e invalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.from, e.to)
}

// IsInvalidTransition reports whether err is a rejected state transition.
func IsInvalidTransition(err error) bool {
	_, ok := err.(invalidTransitionError)
	return ok
}

// Machine is the run state machine:
//
//	Idle -> Running(stage)... -> Done
//	Idle|Running -> Failed(stage, cause)
//	Idle|Running -> Cancelling -> Cancelled
//
// Terminal phases reject every transition. Machine is not safe for
// concurrent use; RunState guards it.
type Machine struct {
	phase Phase
	stage string
	cause string
}

func NewMachine() *Machine { return &Machine{phase: PhaseIdle} }

func (m *Machine) Phase() Phase  { return m.phase }
func (m *Machine) Stage() string { return m.stage }
func (m *Machine) Cause() string { return m.cause }

func (m *Machine) to(next Phase, allowed ...Phase) error {
	for _, a := range allowed {
		if m.phase == a {
			m.phase = next
			return nil
		}
	}
	return invalidTransitionError{from: m.phase, to: next}
}

// Enter moves the run into the named stage.
func (m *Machine) Enter(stage string) error {
	if err := m.to(PhaseRunning, PhaseIdle, PhaseRunning); err != nil {
		return err
	}
	m.stage = stage
	return nil
}

// Done marks the run finished after its last stage.
func (m *Machine) Done() error {
	return m.to(PhaseDone, PhaseRunning)
}

// Fail records the failing stage and cause.
func (m *Machine) Fail(stage, cause string) error {
	if err := m.to(PhaseFailed, PhaseIdle, PhaseRunning); err != nil {
		return err
	}
	if stage != "" {
		m.stage = stage
	}
	m.cause = cause
	return nil
}

// Cancelling records that cancellation was observed and cleanup has begun.
func (m *Machine) Cancelling() error {
	return m.to(PhaseCancelling, PhaseIdle, PhaseRunning)
}

// Cancelled completes a cancellation.
func (m *Machine) Cancelled() error {
	return m.to(PhaseCancelled, PhaseCancelling)
}
