package pipeline

import (
	"path/filepath"
	"strconv"
	"strings"

	"relax3d/internal/config"
	"relax3d/internal/desktop"
	"relax3d/internal/driver"
)

// Kind names a pipeline.
type Kind string

const (
	KindPreprocess Kind = "preprocess"
	KindRelax      Kind = "relax"
)

// Plan is the ordered stage list of one run, built before anything launches.
type Plan struct {
	Kind    Kind
	Request Request
	Option  Option
	Stages  []Stage
	// OutputFile is the divide output name of a full preprocessing run.
	OutputFile string
	// Executables are the paths that must exist before the run starts.
	Executables []string
}

// StageNames returns the stage names in order.
func (p Plan) StageNames() []string {
	out := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		out[i] = s.Name()
	}
	return out
}

// PlanPreprocess builds the preprocessing plan for req. Missing layer or
// option configuration fails here, before any process is launched.
func PlanPreprocess(req Request, cfg *config.Config) (Plan, error) {
	if err := req.Validate(); err != nil {
		return Plan{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Plan{}, err
	}
	layer, err := cfg.Layer(req.LayerName())
	if err != nil {
		return Plan{}, err
	}
	setup, err := cfg.SetupCommands(string(req.Option))
	if err != nil {
		return Plan{}, err
	}
	tools := cfg.PreprocessTools
	t := cfg.Timing
	grace := config.Millis(t.LaunchGraceMS)

	plan := Plan{Kind: KindPreprocess, Request: req, Option: req.Option}
	plan.Stages = append(plan.Stages,
		GeometryStage{
			Tool:        tools[0],
			Grace:       grace,
			Inputs:      append([]string{req.BaseName()}, cfg.GeometryParams...),
			InputSettle: config.Millis(t.CommandSettleMS),
			Done:        SettlePolicy{Delay: config.Millis(t.GeometrySettleMS), Close: true},
		},
		FieldSetupStage{
			Tool:        tools[1],
			Grace:       grace,
			Setup:       setup,
			SetupSettle: config.Millis(t.SetupSettleMS),
			Pause:       config.Millis(t.SetupPauseMS),
			Ranges:      layerRanges(layer),
			RangeSettle: config.Millis(t.RangeSettleMS),
			// 2_initial exits by itself after the last range
			Done: SettlePolicy{},
		},
	)
	used := tools[:2]
	if req.Mode == ModeRun {
		for _, tool := range tools[2:5] {
			plan.Stages = append(plan.Stages, ToolStage{
				Tool:  tool,
				Grace: grace,
				Done:  SettlePolicy{Delay: config.Millis(t.ToolSettleMS), Close: true},
			})
		}
		plan.OutputFile = OutputFilename(req.File, req.Option)
		plan.Stages = append(plan.Stages, DivideStage{
			Tool:         tools[5],
			Grace:        grace,
			OpenDelay:    config.Millis(t.DivideOpenDelayMS),
			MenuDelay:    config.Millis(t.MenuDelayMS),
			DialogTitles: cfg.Divide.DialogTitles,
			Output:       plan.OutputFile,
			InputSettle:  config.Millis(t.DialogInputSettleMS),
			Button:       cfg.Divide.OpenButton,
			ButtonDelay:  config.Millis(t.ButtonDelayMS),
			Done:         SettlePolicy{Delay: config.Millis(t.DivideSettleMS), Close: true},
		})
		used = tools
	}
	for _, tool := range used {
		plan.Executables = append(plan.Executables, filepath.Join(cfg.ToolsDir, tool+".exe"))
	}
	if err := checkPlan(plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// PlanRelax builds the relaxation plan for an option.
func PlanRelax(opt Option, cfg *config.Config) (Plan, error) {
	if _, err := ParseOption(string(opt)); err != nil {
		return Plan{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Plan{}, err
	}
	cmds, err := cfg.SolverCommands(string(opt))
	if err != nil {
		return Plan{}, err
	}
	s := cfg.Solver
	t := cfg.Timing
	path := s.Executable
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.ToolsDir, path)
	}
	policy := driver.CPUPolicy{
		Threshold: s.CPUThreshold,
		Interval:  config.Seconds(s.CheckIntervalSeconds),
		Timeout:   config.Seconds(s.PhaseTimeoutSeconds),
	}
	settle := config.Millis(t.SolverCommandSettleMS)
	plan := Plan{
		Kind:        KindRelax,
		Option:      opt,
		Executables: []string{path},
		Stages: []Stage{
			SolverLaunchStage{
				Path:        path,
				WindowTitle: s.WindowTitle,
				Startup:     config.Millis(t.SolverStartupMS),
				StartKey:    desktop.VKSpace,
				Done:        SettlePolicy{Delay: config.Millis(t.SolverStartSettleMS)},
			},
			SolverPhaseStage{Phase: "init", Commands: cmds.Init, CommandSettle: settle, Wait: CPUWait{Phase: "init phase", Policy: policy}},
			SolverPhaseStage{Phase: "iterate", Commands: []string{cmds.Iterate}, CommandSettle: settle, Wait: CPUWait{Phase: "iterate phase", Policy: policy}},
			SolverOutputStage{Command: cmds.Output, CommandSettle: settle, Wait: ExitPolicy{Timeout: config.Seconds(s.ExitTimeoutSeconds)}},
		},
	}
	if err := checkPlan(plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// layerRanges renders one [zmin, zmax, potential] command triple per potential.
func layerRanges(l config.Layer) [][]string {
	zmin, zmax := formatBound(l.ZMin), formatBound(l.ZMax)
	out := make([][]string, 0, len(l.Potentials))
	for _, p := range l.Potentials {
		out = append(out, []string{zmin, zmax, strconv.Itoa(p)})
	}
	return out
}

// formatBound writes a layer bound in shortest decimal form with at least
// one fractional digit, so -1 is typed as -1.0 like the legacy layer files.
func formatBound(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
