package driver

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// exitPoll is the polling interval while waiting for a program to exit.
const exitPoll = 250 * time.Millisecond

// CPUPolicy declares a stage complete once the process's CPU utilisation drops
// below Threshold percent. Samples are taken every Interval until Timeout.
type CPUPolicy struct {
	Threshold float64
	Interval  time.Duration
	Timeout   time.Duration
}

// CPUResult describes a finished CPU wait.
type CPUResult struct {
	Samples int
	Last    float64
	Elapsed time.Duration
}

// Detector decides when a legacy program has finished its work.
type Detector struct {
	clock Clock
	log   zerolog.Logger
}

func NewDetector(clock Clock, log zerolog.Logger) *Detector {
	if clock == nil {
		clock = RealClock()
	}
	return &Detector{clock: clock, log: log}
}

// Settle waits d. It returns ErrCancelled if ctx is done before or during the wait.
func (d *Detector) Settle(ctx context.Context, delay time.Duration) error {
	if err := d.clock.SleepContext(ctx, delay); err != nil {
		return ErrCancelled
	}
	return nil
}

// WaitCPU samples proc until a reading falls below the policy threshold.
// Cancellation is checked before every sample and during every interval
// sleep. onSample, if not nil, receives each reading.
func (d *Detector) WaitCPU(ctx context.Context, phase string, proc Process, policy CPUPolicy, onSample func(float64)) (CPUResult, error) {
	start := d.clock.Now()
	var res CPUResult
	for {
		res.Elapsed = d.clock.Now().Sub(start)
		if ctx.Err() != nil {
			d.log.Info().Str("phase", phase).Int("samples", res.Samples).Msg("cpu wait cancelled")
			return res, ErrCancelled
		}
		if res.Elapsed >= policy.Timeout {
			d.log.Error().Str("phase", phase).Dur("elapsed", res.Elapsed).Int("samples", res.Samples).Msg("timeout waiting for CPU to settle")
			return res, ErrTimeout(phase, res.Elapsed, res.Samples)
		}
		v, err := proc.CPUPercent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return res, ErrCancelled
			}
			if errors.Is(err, ErrProcessExited) {
				return res, ErrProcess(phase, ErrProcessExited)
			}
			return res, ErrProcess(phase, err)
		}
		res.Samples++
		res.Last = v
		d.log.Info().Str("phase", phase).Float64("cpu", v).Msg("current CPU usage")
		if onSample != nil {
			onSample(v)
		}
		if v < policy.Threshold {
			res.Elapsed = d.clock.Now().Sub(start)
			d.log.Info().Str("phase", phase).Int("samples", res.Samples).Msg("CPU settled")
			return res, nil
		}
		if err := d.clock.SleepContext(ctx, policy.Interval); err != nil {
			return res, ErrCancelled
		}
	}
}

// WaitExit waits up to timeout for proc to exit by itself. A process still
// running after timeout is terminated and a timeout error returned.
func (d *Detector) WaitExit(ctx context.Context, proc Process, timeout time.Duration) error {
	start := d.clock.Now()
	for {
		if proc.Exited() {
			return nil
		}
		if ctx.Err() != nil {
			return ErrCancelled
		}
		waited := d.clock.Now().Sub(start)
		if waited >= timeout {
			d.log.Warn().Str("process", proc.Name()).Dur("waited", waited).Msg("process did not exit, terminating")
			if err := proc.Terminate(); err != nil {
				d.log.Error().Err(err).Str("process", proc.Name()).Msg("terminate failed")
			}
			return ErrExitTimeout(proc.Name(), timeout)
		}
		if err := d.clock.SleepContext(ctx, exitPoll); err != nil {
			return ErrCancelled
		}
	}
}
