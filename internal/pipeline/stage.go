package pipeline

import (
	"time"

	"relax3d/internal/driver"
)

// Stage is one step of a plan. The set of variants is closed: the runner
// handles exactly the types declared in this file.
type Stage interface {
	// Name identifies the stage in status, events and metrics.
	Name() string
	// Completion is the policy that decides when the stage is done.
	Completion() Completion
	stage()
}

// Completion is a closed set of completion policies.
type Completion interface{ completion() }

// SettlePolicy completes after a fixed delay, optionally closing the window.
type SettlePolicy struct {
	Delay time.Duration
	Close bool
}

// CPUWait completes once the solver's CPU drops below a threshold.
type CPUWait struct {
	Phase  string
	Policy driver.CPUPolicy
}

// ExitPolicy completes once the program exits by itself.
type ExitPolicy struct {
	Timeout time.Duration
}

func (SettlePolicy) completion() {}
func (CPUWait) completion()      {}
func (ExitPolicy) completion()   {}

// GeometryStage imports the .dxf geometry.
type GeometryStage struct {
	Tool        string
	Grace       time.Duration
	Inputs      []string
	InputSettle time.Duration
	Done        SettlePolicy
}

// FieldSetupStage enters the option command groups, then one
// [zmin, zmax, potential] command triple per potential.
type FieldSetupStage struct {
	Tool        string
	Grace       time.Duration
	Setup       [][]string
	SetupSettle time.Duration
	Pause       time.Duration
	Ranges      [][]string
	RangeSettle time.Duration
	Done        SettlePolicy
}

// ToolStage launches a tool that needs no input (convert, clip, exam).
type ToolStage struct {
	Tool  string
	Grace time.Duration
	Done  SettlePolicy
}

// DivideStage drives 6_divide's File/Open dialog to write the output file.
type DivideStage struct {
	Tool         string
	Grace        time.Duration
	OpenDelay    time.Duration
	MenuDelay    time.Duration
	DialogTitles []string
	Output       string
	InputSettle  time.Duration
	Button       string
	ButtonDelay  time.Duration
	Done         SettlePolicy
}

// SolverLaunchStage starts the solver and presses its start key.
type SolverLaunchStage struct {
	Path        string
	WindowTitle string
	Startup     time.Duration
	StartKey    uint8
	Done        SettlePolicy
}

// SolverPhaseStage sends a command list and waits for the CPU to settle.
type SolverPhaseStage struct {
	Phase         string
	Commands      []string
	CommandSettle time.Duration
	Wait          CPUWait
}

// SolverOutputStage sends the output command and waits for the solver to exit.
type SolverOutputStage struct {
	Command       string
	CommandSettle time.Duration
	Wait          ExitPolicy
}

func (s GeometryStage) Name() string     { return s.Tool }
func (s FieldSetupStage) Name() string   { return s.Tool }
func (s ToolStage) Name() string         { return s.Tool }
func (s DivideStage) Name() string       { return s.Tool }
func (s SolverLaunchStage) Name() string { return "launch" }
func (s SolverPhaseStage) Name() string  { return s.Phase }
func (s SolverOutputStage) Name() string { return "output" }

func (s GeometryStage) Completion() Completion     { return s.Done }
func (s FieldSetupStage) Completion() Completion   { return s.Done }
func (s ToolStage) Completion() Completion         { return s.Done }
func (s DivideStage) Completion() Completion       { return s.Done }
func (s SolverLaunchStage) Completion() Completion { return s.Done }
func (s SolverPhaseStage) Completion() Completion  { return s.Wait }
func (s SolverOutputStage) Completion() Completion { return s.Wait }

func (GeometryStage) stage()     {}
func (FieldSetupStage) stage()   {}
func (ToolStage) stage()         {}
func (DivideStage) stage()       {}
func (SolverLaunchStage) stage() {}
func (SolverPhaseStage) stage()  {}
func (SolverOutputStage) stage() {}
