package config

import "time"

// Config holds everything the automation needs to drive the legacy tools.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	ToolsDir        string                  `json:"tools_dir" yaml:"tools_dir" toml:"tools_dir"`
	PreprocessTools []string                `json:"preprocess_tools" yaml:"preprocess_tools" toml:"preprocess_tools"`
	GeometryParams  []string                `json:"geometry_params" yaml:"geometry_params" toml:"geometry_params"`
	LayersFile      string                  `json:"layers_file" yaml:"layers_file" toml:"layers_file"`
	Layers          map[string]Layer        `json:"layers" yaml:"layers" toml:"layers"`
	Options         map[string]OptionConfig `json:"options" yaml:"options" toml:"options"`
	Solver          Solver                  `json:"solver" yaml:"solver" toml:"solver"`
	Divide          Divide                  `json:"divide" yaml:"divide" toml:"divide"`
	Combine         Combine                 `json:"combine" yaml:"combine" toml:"combine"`
	Output          Output                  `json:"output" yaml:"output" toml:"output"`
	Timing          Timing                  `json:"timing" yaml:"timing" toml:"timing"`
	History         History                 `json:"history" yaml:"history" toml:"history"`
	Log             Log                     `json:"log" yaml:"log" toml:"log"`
	HTTP            HTTP                    `json:"http" yaml:"http" toml:"http"`
}

// Layer is the field-setup parameter set of one geometry layer.
type Layer struct {
	ZMin       float64 `json:"zmin" yaml:"zmin" toml:"zmin"`
	ZMax       float64 `json:"zmax" yaml:"zmax" toml:"zmax"`
	Potentials []int   `json:"potentials" yaml:"potentials" toml:"potentials"`
}

// OptionConfig holds the field-setup command groups of one option (L or S).
type OptionConfig struct {
	Setup [][]string `json:"setup" yaml:"setup" toml:"setup"`
}

// Solver configures the relaxation solver and its CPU-quiescence detection.
type Solver struct {
	Executable           string                    `json:"executable" yaml:"executable" toml:"executable"`
	WindowTitle          string                    `json:"window_title" yaml:"window_title" toml:"window_title"`
	CPUThreshold         float64                   `json:"cpu_threshold" yaml:"cpu_threshold" toml:"cpu_threshold"`
	CheckIntervalSeconds int                       `json:"check_interval_seconds" yaml:"check_interval_seconds" toml:"check_interval_seconds"`
	PhaseTimeoutSeconds  int                       `json:"phase_timeout_seconds" yaml:"phase_timeout_seconds" toml:"phase_timeout_seconds"`
	ExitTimeoutSeconds   int                       `json:"exit_timeout_seconds" yaml:"exit_timeout_seconds" toml:"exit_timeout_seconds"`
	SampleWindowMS       int                       `json:"sample_window_ms" yaml:"sample_window_ms" toml:"sample_window_ms"`
	Commands             map[string]SolverCommands `json:"commands" yaml:"commands" toml:"commands"`
}

// SolverCommands are the keyboard commands of one option's relaxation run.
type SolverCommands struct {
	Init    []string `json:"init" yaml:"init" toml:"init"`
	Iterate string   `json:"iterate" yaml:"iterate" toml:"iterate"`
	Output  string   `json:"output" yaml:"output" toml:"output"`
}

type Divide struct {
	DialogTitles []string `json:"dialog_titles" yaml:"dialog_titles" toml:"dialog_titles" hcl:"dialog_titles,optional"`
	OpenButton   string   `json:"open_button" yaml:"open_button" toml:"open_button" hcl:"open_button,optional"`
}

type Combine struct {
	Executable   string   `json:"executable" yaml:"executable" toml:"executable" hcl:"executable,optional"`
	WindowTitle  string   `json:"window_title" yaml:"window_title" toml:"window_title" hcl:"window_title,optional"`
	DialogTitles []string `json:"dialog_titles" yaml:"dialog_titles" toml:"dialog_titles" hcl:"dialog_titles,optional"`
	DatFile      string   `json:"dat_file" yaml:"dat_file" toml:"dat_file" hcl:"dat_file,optional"`
	StripLines   int      `json:"strip_lines" yaml:"strip_lines" toml:"strip_lines" hcl:"strip_lines,optional"`
	// SearchDirs are tried in order when the executable is not in tools_dir.
	SearchDirs []string `json:"search_dirs" yaml:"search_dirs" toml:"search_dirs" hcl:"search_dirs,optional"`
}

// Output configures where solver results are renamed and moved to.
type Output struct {
	CyclotronType string `json:"cyclotron_type" yaml:"cyclotron_type" toml:"cyclotron_type" hcl:"cyclotron_type,optional"`
	WorkDir       string `json:"work_dir" yaml:"work_dir" toml:"work_dir" hcl:"work_dir,optional"`
	TargetDir     string `json:"target_dir" yaml:"target_dir" toml:"target_dir" hcl:"target_dir,optional"`
}

// Timing holds every settle delay in milliseconds.
type Timing struct {
	CharDelayMS           int `json:"char_delay_ms" yaml:"char_delay_ms" toml:"char_delay_ms" hcl:"char_delay_ms,optional"`
	LaunchGraceMS         int `json:"launch_grace_ms" yaml:"launch_grace_ms" toml:"launch_grace_ms" hcl:"launch_grace_ms,optional"`
	CommandSettleMS       int `json:"command_settle_ms" yaml:"command_settle_ms" toml:"command_settle_ms" hcl:"command_settle_ms,optional"`
	GeometrySettleMS      int `json:"geometry_settle_ms" yaml:"geometry_settle_ms" toml:"geometry_settle_ms" hcl:"geometry_settle_ms,optional"`
	SetupSettleMS         int `json:"setup_settle_ms" yaml:"setup_settle_ms" toml:"setup_settle_ms" hcl:"setup_settle_ms,optional"`
	SetupPauseMS          int `json:"setup_pause_ms" yaml:"setup_pause_ms" toml:"setup_pause_ms" hcl:"setup_pause_ms,optional"`
	RangeSettleMS         int `json:"range_settle_ms" yaml:"range_settle_ms" toml:"range_settle_ms" hcl:"range_settle_ms,optional"`
	ToolSettleMS          int `json:"tool_settle_ms" yaml:"tool_settle_ms" toml:"tool_settle_ms" hcl:"tool_settle_ms,optional"`
	DivideOpenDelayMS     int `json:"divide_open_delay_ms" yaml:"divide_open_delay_ms" toml:"divide_open_delay_ms" hcl:"divide_open_delay_ms,optional"`
	MenuDelayMS           int `json:"menu_delay_ms" yaml:"menu_delay_ms" toml:"menu_delay_ms" hcl:"menu_delay_ms,optional"`
	DialogInputSettleMS   int `json:"dialog_input_settle_ms" yaml:"dialog_input_settle_ms" toml:"dialog_input_settle_ms" hcl:"dialog_input_settle_ms,optional"`
	ButtonDelayMS         int `json:"button_delay_ms" yaml:"button_delay_ms" toml:"button_delay_ms" hcl:"button_delay_ms,optional"`
	DivideSettleMS        int `json:"divide_settle_ms" yaml:"divide_settle_ms" toml:"divide_settle_ms" hcl:"divide_settle_ms,optional"`
	SolverStartupMS       int `json:"solver_startup_ms" yaml:"solver_startup_ms" toml:"solver_startup_ms" hcl:"solver_startup_ms,optional"`
	SolverStartSettleMS   int `json:"solver_start_settle_ms" yaml:"solver_start_settle_ms" toml:"solver_start_settle_ms" hcl:"solver_start_settle_ms,optional"`
	SolverCommandSettleMS int `json:"solver_command_settle_ms" yaml:"solver_command_settle_ms" toml:"solver_command_settle_ms" hcl:"solver_command_settle_ms,optional"`
	CombineMenuDelayMS    int `json:"combine_menu_delay_ms" yaml:"combine_menu_delay_ms" toml:"combine_menu_delay_ms" hcl:"combine_menu_delay_ms,optional"`
	CombineFileSettleMS   int `json:"combine_file_settle_ms" yaml:"combine_file_settle_ms" toml:"combine_file_settle_ms" hcl:"combine_file_settle_ms,optional"`
}

// History configures the run store. A non-empty PostgresDSN wins over Path.
type History struct {
	Path        string `json:"path" yaml:"path" toml:"path" hcl:"path,optional"`
	PostgresDSN string `json:"postgres_dsn" yaml:"postgres_dsn" toml:"postgres_dsn" hcl:"postgres_dsn,optional"`
	Limit       int    `json:"limit" yaml:"limit" toml:"limit" hcl:"limit,optional"`
}

type Log struct {
	Level  string `json:"level" yaml:"level" toml:"level" hcl:"level,optional"`
	Format string `json:"format" yaml:"format" toml:"format" hcl:"format,optional"`
	File   string `json:"file" yaml:"file" toml:"file" hcl:"file,optional"`
}

type HTTP struct {
	Addr        string   `json:"addr" yaml:"addr" toml:"addr" hcl:"addr,optional"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" hcl:"cors_origins,optional"`
}

// Millis converts a millisecond setting to a duration; negative means zero.
func Millis(ms int) time.Duration {
	if ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// Seconds converts a second setting to a duration.
func Seconds(s int) time.Duration { return time.Duration(s) * time.Second }
