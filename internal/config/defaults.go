package config

// Defaults mirror the delays the legacy tools were tuned against.
const (
	DefaultCharDelayMS           = 50
	DefaultLaunchGraceMS         = 1000
	DefaultCommandSettleMS       = 100
	DefaultGeometrySettleMS      = 2000
	DefaultSetupSettleMS         = 150
	DefaultSetupPauseMS          = 500
	DefaultRangeSettleMS         = 300
	DefaultToolSettleMS          = 1000
	DefaultDivideOpenDelayMS     = 1000
	DefaultMenuDelayMS           = 300
	DefaultDialogInputSettleMS   = 100
	DefaultButtonDelayMS         = 500
	DefaultDivideSettleMS        = 2000
	DefaultSolverStartupMS       = 3000
	DefaultSolverStartSettleMS   = 3000
	DefaultSolverCommandSettleMS = 100
	DefaultCombineMenuDelayMS    = 500
	DefaultCombineFileSettleMS   = 2000

	DefaultCPUThreshold         = 5.0
	DefaultCheckIntervalSeconds = 10
	DefaultPhaseTimeoutSeconds  = 3600
	DefaultExitTimeoutSeconds   = 30
	DefaultSampleWindowMS       = 1000

	DefaultHistoryLimit = 200
	DefaultHTTPAddr     = ":8080"
)

// DefaultPreprocessTools are the preprocessing tools in pipeline order.
var DefaultPreprocessTools = []string{"1_GEOMETRY", "2_initial", "3_convert", "4_clip", "5_exam", "6_divide"}

// DefaultDialogTitles are the file dialog titles 6_divide is known to show.
var DefaultDialogTitles = []string{"Open: Select File for Unit 2", "Open", "Save As", "Select File"}

// DefaultCombineDialogTitles are the file dialog titles combine is known to show.
var DefaultCombineDialogTitles = []string{"Open: Select File for Unit 10", "Open", "Save As", "Select File"}

// ApplyDefaults fills unspecified fields.
func (c *Config) ApplyDefaults() {
	if len(c.PreprocessTools) == 0 {
		c.PreprocessTools = append([]string(nil), DefaultPreprocessTools...)
	}
	if c.GeometryParams == nil {
		c.GeometryParams = []string{"0", "0"}
	}
	if c.Layers == nil {
		c.Layers = map[string]Layer{}
	}
	if c.Options == nil {
		c.Options = map[string]OptionConfig{}
	}

	s := &c.Solver
	if s.CPUThreshold == 0 {
		s.CPUThreshold = DefaultCPUThreshold
	}
	if s.CheckIntervalSeconds == 0 {
		s.CheckIntervalSeconds = DefaultCheckIntervalSeconds
	}
	if s.PhaseTimeoutSeconds == 0 {
		s.PhaseTimeoutSeconds = DefaultPhaseTimeoutSeconds
	}
	if s.ExitTimeoutSeconds == 0 {
		s.ExitTimeoutSeconds = DefaultExitTimeoutSeconds
	}
	if s.SampleWindowMS == 0 {
		s.SampleWindowMS = DefaultSampleWindowMS
	}

	if len(c.Divide.DialogTitles) == 0 {
		c.Divide.DialogTitles = append([]string(nil), DefaultDialogTitles...)
	}
	if c.Divide.OpenButton == "" {
		c.Divide.OpenButton = "打开(O)"
	}

	cb := &c.Combine
	if cb.Executable == "" {
		cb.Executable = "combine.exe"
	}
	if cb.WindowTitle == "" {
		cb.WindowTitle = "combine"
	}
	if len(cb.DialogTitles) == 0 {
		cb.DialogTitles = append([]string(nil), DefaultCombineDialogTitles...)
	}
	if cb.DatFile == "" {
		cb.DatFile = "relax3d.dat"
	}
	if cb.StripLines == 0 {
		cb.StripLines = 3
	}

	if c.Output.WorkDir == "" {
		c.Output.WorkDir = c.ToolsDir
	}

	t := &c.Timing
	setDefault(&t.CharDelayMS, DefaultCharDelayMS)
	setDefault(&t.LaunchGraceMS, DefaultLaunchGraceMS)
	setDefault(&t.CommandSettleMS, DefaultCommandSettleMS)
	setDefault(&t.GeometrySettleMS, DefaultGeometrySettleMS)
	setDefault(&t.SetupSettleMS, DefaultSetupSettleMS)
	setDefault(&t.SetupPauseMS, DefaultSetupPauseMS)
	setDefault(&t.RangeSettleMS, DefaultRangeSettleMS)
	setDefault(&t.ToolSettleMS, DefaultToolSettleMS)
	setDefault(&t.DivideOpenDelayMS, DefaultDivideOpenDelayMS)
	setDefault(&t.MenuDelayMS, DefaultMenuDelayMS)
	setDefault(&t.DialogInputSettleMS, DefaultDialogInputSettleMS)
	setDefault(&t.ButtonDelayMS, DefaultButtonDelayMS)
	setDefault(&t.DivideSettleMS, DefaultDivideSettleMS)
	setDefault(&t.SolverStartupMS, DefaultSolverStartupMS)
	setDefault(&t.SolverStartSettleMS, DefaultSolverStartSettleMS)
	setDefault(&t.SolverCommandSettleMS, DefaultSolverCommandSettleMS)
	setDefault(&t.CombineMenuDelayMS, DefaultCombineMenuDelayMS)
	setDefault(&t.CombineFileSettleMS, DefaultCombineFileSettleMS)

	if c.History.Limit == 0 {
		c.History.Limit = DefaultHistoryLimit
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
}

// setDefault replaces zero. Negative delays are kept and read as "no delay".
func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}
