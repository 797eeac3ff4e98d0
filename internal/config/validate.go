package config

import (
	"errors"
	"fmt"
	"strings"
)

// configError reports a missing or invalid configuration key.
type configError struct {
	key string
	msg string
}

func (e configError) Error() string { return "config: " + e.key + ": " + e.msg }

// ErrMissingKey reports a required key that is absent.
func ErrMissingKey(key string) error { return configError{key: key, msg: "missing required key"} }

// ErrInvalid reports a key whose value is unusable.
func ErrInvalid(key, msg string) error { return configError{key: key, msg: msg} }

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	var e configError
	return errors.As(err, &e)
}

// Validate checks the keys every pipeline needs. Per-run keys (layers,
// option commands) are checked by the accessors below.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ToolsDir) == "" {
		return ErrMissingKey("tools_dir")
	}
	if len(c.PreprocessTools) != len(DefaultPreprocessTools) {
		return ErrInvalid("preprocess_tools", fmt.Sprintf("want %d tool names, got %d", len(DefaultPreprocessTools), len(c.PreprocessTools)))
	}
	for i, t := range c.PreprocessTools {
		if strings.TrimSpace(t) == "" {
			return ErrInvalid(fmt.Sprintf("preprocess_tools[%d]", i), "empty tool name")
		}
	}
	if strings.TrimSpace(c.Solver.Executable) == "" {
		return ErrMissingKey("solver.executable")
	}
	if c.Solver.CPUThreshold <= 0 {
		return ErrInvalid("solver.cpu_threshold", "must be > 0")
	}
	if c.Solver.CheckIntervalSeconds <= 0 {
		return ErrInvalid("solver.check_interval_seconds", "must be > 0")
	}
	if c.Solver.PhaseTimeoutSeconds <= 0 {
		return ErrInvalid("solver.phase_timeout_seconds", "must be > 0")
	}
	if c.Solver.ExitTimeoutSeconds <= 0 {
		return ErrInvalid("solver.exit_timeout_seconds", "must be > 0")
	}
	return nil
}

// Layer returns the parameters of the named layer.
func (c *Config) Layer(name string) (Layer, error) {
	l, ok := c.Layers[name]
	if !ok {
		return Layer{}, ErrInvalid("layers."+name, "layer not found")
	}
	return l, nil
}

// SetupCommands returns the field-setup command groups of an option.
func (c *Config) SetupCommands(option string) ([][]string, error) {
	o, ok := c.Options[option]
	if !ok || len(o.Setup) == 0 {
		return nil, ErrMissingKey("options." + option + ".setup")
	}
	return o.Setup, nil
}

// SolverCommands returns the relaxation commands of an option. A single init
// entry containing ", " is split the way legacy INI files wrote it.
func (c *Config) SolverCommands(option string) (SolverCommands, error) {
	cmds, ok := c.Solver.Commands[option]
	if !ok {
		return SolverCommands{}, ErrMissingKey("solver.commands." + option)
	}
	if len(cmds.Init) == 0 {
		return SolverCommands{}, ErrMissingKey("solver.commands." + option + ".init")
	}
	if cmds.Iterate == "" {
		return SolverCommands{}, ErrMissingKey("solver.commands." + option + ".iterate")
	}
	if cmds.Output == "" {
		return SolverCommands{}, ErrMissingKey("solver.commands." + option + ".output")
	}
	if len(cmds.Init) == 1 && strings.Contains(cmds.Init[0], ", ") {
		cmds.Init = strings.Split(cmds.Init[0], ", ")
	}
	return cmds, nil
}

// ValidateLayer checks a layer before it is stored.
func ValidateLayer(name string, l Layer) error {
	if strings.TrimSpace(name) == "" {
		return ErrMissingKey("layers.<name>")
	}
	if l.ZMin >= l.ZMax {
		return ErrInvalid("layers."+name, fmt.Sprintf("zmin (%g) must be below zmax (%g)", l.ZMin, l.ZMax))
	}
	if len(l.Potentials) == 0 {
		return ErrInvalid("layers."+name+".potentials", "at least one potential required")
	}
	return nil
}
