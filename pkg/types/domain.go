package types

// Tool is a legacy executable found in the tool directory.
type Tool struct {
	// Executable name without extension; also the title of its main window.
	// example: 3_convert
	Name string `json:"name" example:"3_convert"`
	// Absolute path to the executable.
	// example: C:\Relax3D\bin\3_convert.exe
	Path string `json:"path" example:"C:\\Relax3D\\bin\\3_convert.exe"`
}

// Layer is the field-setup parameter set of one geometry layer.
type Layer struct {
	// Layer name, i.e. the .dxf file name without extension.
	// example: L12
	Name string `json:"name" example:"L12"`
	// example: -1.5
	ZMin float64 `json:"zmin" example:"-1.5"`
	// example: 1.5
	ZMax float64 `json:"zmax" example:"1.5"`
	// Electrode potentials entered one range at a time.
	// example: [0,100,-100]
	Potentials []int `json:"potentials"`
}

// RunRecord is a finished run as kept in the run history.
type RunRecord struct {
	// example: 7d0e5f0c-6a3f-4a43-9a55-0a8c1b2d3e4f
	ID string `json:"id" example:"7d0e5f0c-6a3f-4a43-9a55-0a8c1b2d3e4f"`
	// Pipeline kind: preprocess or relax.
	// example: preprocess
	Pipeline string `json:"pipeline" example:"preprocess"`
	// example: L12.dxf
	File string `json:"file,omitempty" example:"L12.dxf"`
	// example: L
	Option string `json:"option" example:"L"`
	// example: R
	Mode string `json:"mode,omitempty" example:"R"`
	// Terminal status: done, failed or cancelled.
	// example: done
	Status string `json:"status" example:"done"`
	// Stage the run failed or was cancelled in.
	// example: 6_divide
	Stage string `json:"stage,omitempty" example:"6_divide"`
	// Failure category: configuration, discovery, process or timeout.
	// example: discovery
	Failure string `json:"failure,omitempty" example:"discovery"`
	// example: dialog not found: Open
	Cause string `json:"cause,omitempty" example:"dialog not found: Open"`
	// Divide output file name of a full preprocessing run.
	// example: L12.txt
	OutputFile string `json:"output_file,omitempty" example:"L12.txt"`
	// RFC 3339 timestamps.
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}
