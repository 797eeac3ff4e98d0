package pipeline

import (
	"errors"
	"time"

	"relax3d/internal/config"
	"relax3d/internal/driver"
	"relax3d/internal/registry"
	"relax3d/internal/runstore"
)

// Status is the terminal status of a run.
type Status string

const (
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Failure categorises why a run failed.
type Failure string

const (
	FailureConfiguration Failure = "configuration"
	FailureDiscovery     Failure = "discovery"
	FailureProcess       Failure = "process"
	FailureTimeout       Failure = "timeout"
	FailureError         Failure = "error"
)

// ClassifyFailure maps a stage or planning error onto a failure category.
func ClassifyFailure(err error) Failure {
	var missing *registry.MissingToolsError
	switch {
	case err == nil:
		return ""
	case config.IsConfigError(err), errors.As(err, &missing):
		return FailureConfiguration
	case driver.IsDiscovery(err):
		return FailureDiscovery
	case driver.IsTimeout(err):
		return FailureTimeout
	case driver.IsProcess(err):
		return FailureProcess
	default:
		return FailureError
	}
}

// Result is the single terminal outcome of a run.
type Result struct {
	RunID   string
	Kind    Kind
	Status  Status
	Stage   string
	Cause   string
	Failure Failure
	// Completed lists the stages that finished, in order.
	Completed  []string
	OutputFile string
	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether the run completed successfully.
func (r Result) OK() bool { return r.Status == StatusDone }

// Record converts r into a run history record.
func (r Result) Record(req Request, opt Option) runstore.Record {
	rec := runstore.Record{
		ID:         r.RunID,
		Pipeline:   string(r.Kind),
		Option:     string(opt),
		Status:     string(r.Status),
		Stage:      r.Stage,
		Failure:    string(r.Failure),
		Cause:      r.Cause,
		OutputFile: r.OutputFile,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.Kind == KindPreprocess {
		rec.File = req.File
		rec.Mode = string(req.Mode)
	}
	return rec
}
