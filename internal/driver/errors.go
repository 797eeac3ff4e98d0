package driver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCancelled is returned by blocking waits when the run's context is done.
var ErrCancelled = errors.New("cancelled")

// ErrProcessExited is reported when a sampled process is already gone.
var ErrProcessExited = errors.New("process exited")

// discoveryError signals a window, dialog or control that could not be found.
type discoveryError struct{ what, name string }

func (e discoveryError) Error() string { return e.what + " not found: " + e.name }

// ErrDiscovery constructs a discovery failure for a window, dialog or control.
func ErrDiscovery(what, name string) error { return discoveryError{what: what, name: name} }

// IsDiscovery reports whether err is a discovery failure.
func IsDiscovery(err error) bool {
	var e discoveryError
	return errors.As(err, &e)
}

// processError signals that a program failed to start, exited early or could
// not be sampled.
type processError struct {
	name string
	err  error
}

func (e processError) Error() string { return "process " + e.name + ": " + e.err.Error() }
func (e processError) Unwrap() error { return e.err }

func ErrProcess(name string, err error) error { return processError{name: name, err: err} }

// IsProcess reports whether err is a process failure.
func IsProcess(err error) bool {
	var e processError
	return errors.As(err, &e)
}

// timeoutError signals that a completion condition did not hold in time.
type timeoutError struct {
	phase   string
	elapsed time.Duration
	samples int
	exit    bool
}

func (e timeoutError) Error() string {
	if e.exit {
		return fmt.Sprintf("%s did not exit within %s", e.phase, e.elapsed)
	}
	return fmt.Sprintf("%s did not settle within %s (%d samples)", e.phase, e.elapsed, e.samples)
}

// ErrTimeout constructs a CPU-settle timeout for the named phase.
func ErrTimeout(phase string, elapsed time.Duration, samples int) error {
	return timeoutError{phase: phase, elapsed: elapsed, samples: samples}
}

// ErrExitTimeout constructs a timeout for a program that did not exit by itself.
func ErrExitTimeout(name string, waited time.Duration) error {
	return timeoutError{phase: name, elapsed: waited, exit: true}
}

// IsTimeout reports whether err is a completion timeout.
func IsTimeout(err error) bool {
	var e timeoutError
	return errors.As(err, &e)
}

// IsCancelled reports whether err stems from cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Outcome classifies how a wait or stage ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Classify maps an error returned by this package onto an Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case IsCancelled(err):
		return OutcomeCancelled
	case IsTimeout(err):
		return OutcomeTimedOut
	default:
		return OutcomeFailed
	}
}
