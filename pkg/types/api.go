package types

// PreprocessRequest starts a preprocessing run.
type PreprocessRequest struct {
	// Geometry file to import; must end in .dxf.
	// example: L12.dxf
	File string `json:"file" example:"L12.dxf"`
	// Field option: L (large-field) or S (small-field).
	// example: L
	Option string `json:"option" example:"L"`
	// P runs geometry and field setup only; R runs all six tools.
	// example: R
	Mode string `json:"mode" example:"R"`
}

// RelaxRequest starts a relaxation run.
type RelaxRequest struct {
	// example: L
	Option string `json:"option" example:"L"`
}

// RunResponse acknowledges a started run.
type RunResponse struct {
	// example: 7d0e5f0c-6a3f-4a43-9a55-0a8c1b2d3e4f
	ID string `json:"id" example:"7d0e5f0c-6a3f-4a43-9a55-0a8c1b2d3e4f"`
	// example: preprocess
	Pipeline string `json:"pipeline" example:"preprocess"`
	// Stage names in execution order.
	Stages []string `json:"stages"`
	// example: L12.txt
	OutputFile string `json:"output_file,omitempty" example:"L12.txt"`
}

// StatusResponse describes the active run, or the last finished one.
type StatusResponse struct {
	// True while a run is in progress.
	// example: true
	Busy bool `json:"busy" example:"true"`
	// example: 7d0e5f0c-6a3f-4a43-9a55-0a8c1b2d3e4f
	RunID string `json:"run_id,omitempty"`
	// example: relax
	Pipeline string `json:"pipeline,omitempty" example:"relax"`
	// State machine phase: idle, running, cancelling, done, failed, cancelled.
	// example: running
	Phase string `json:"phase" example:"running"`
	// Current (or failing) stage.
	// example: iterate
	Stage string `json:"stage,omitempty" example:"iterate"`
	// example: iterate phase did not settle within 1h0m0s (360 samples)
	Cause string `json:"cause,omitempty"`
	// Name and pid of the program currently driven.
	// example: RELAX3D.exe
	Active string `json:"active,omitempty" example:"RELAX3D.exe"`
	// example: 4312
	ActivePid int `json:"active_pid,omitempty" example:"4312"`
	// Most recent CPU sample of the solver, in percent.
	// example: 37.5
	LastCPU float64 `json:"last_cpu,omitempty" example:"37.5"`
	// example: 2024-03-05T09:00:00Z
	StartedAt string `json:"started_at,omitempty"`
}

// CancelResponse reports whether a cancellation was requested.
type CancelResponse struct {
	// example: true
	Cancelled bool `json:"cancelled" example:"true"`
}

// RunsResponse wraps the run history returned by GET /runs.
type RunsResponse struct {
	Runs []RunRecord `json:"runs"`
}

// LayersResponse wraps the configured layers returned by GET /layers.
type LayersResponse struct {
	Layers []Layer `json:"layers"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
