package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"relax3d/internal/common/fsutil"
)

// Load reads a configuration file based on its extension, merges the
// optional layers file and applies defaults.
// Supports: .yaml/.yml, .json, .toml, .hcl
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".hcl":
		if err := decodeHCL(b, path, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if cfg.ToolsDir, err = fsutil.ExpandHome(cfg.ToolsDir); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	if cfg.LayersFile != "" {
		lp := cfg.LayersFile
		if !filepath.IsAbs(lp) {
			lp = filepath.Join(filepath.Dir(path), lp)
		}
		lf, err := LoadLayers(lp)
		if err != nil {
			return cfg, fmt.Errorf("layers file: %w", err)
		}
		cfg.LayersFile = lp
		cfg.merge(lf)
	}
	return cfg, nil
}

// merge adds layers and option setups from lf that the main file does not define.
func (c *Config) merge(lf LayerFile) {
	for name, l := range lf.Layers {
		if _, ok := c.Layers[name]; !ok {
			c.Layers[name] = l
		}
	}
	for name, o := range lf.Options {
		if cur, ok := c.Options[name]; !ok || len(cur.Setup) == 0 {
			c.Options[name] = o
		}
	}
}

type hclConfig struct {
	ToolsDir        string      `hcl:"tools_dir,optional"`
	PreprocessTools []string    `hcl:"preprocess_tools,optional"`
	GeometryParams  []string    `hcl:"geometry_params,optional"`
	LayersFile      string      `hcl:"layers_file,optional"`
	Layers          []hclLayer  `hcl:"layer,block"`
	Options         []hclOption `hcl:"option,block"`
	Solver          *hclSolver  `hcl:"solver,block"`
	Divide          *Divide     `hcl:"divide,block"`
	Combine         *Combine    `hcl:"combine,block"`
	Output          *Output     `hcl:"output,block"`
	Timing          *Timing     `hcl:"timing,block"`
	History         *History    `hcl:"history,block"`
	Log             *Log        `hcl:"log,block"`
	HTTP            *HTTP       `hcl:"http,block"`
}

type hclLayer struct {
	Name       string  `hcl:"name,label"`
	ZMin       float64 `hcl:"zmin"`
	ZMax       float64 `hcl:"zmax"`
	Potentials []int   `hcl:"potentials"`
}

type hclOption struct {
	Name  string     `hcl:"name,label"`
	Setup [][]string `hcl:"setup"`
}

type hclSolver struct {
	Executable           string       `hcl:"executable,optional"`
	WindowTitle          string       `hcl:"window_title,optional"`
	CPUThreshold         float64      `hcl:"cpu_threshold,optional"`
	CheckIntervalSeconds int          `hcl:"check_interval_seconds,optional"`
	PhaseTimeoutSeconds  int          `hcl:"phase_timeout_seconds,optional"`
	ExitTimeoutSeconds   int          `hcl:"exit_timeout_seconds,optional"`
	SampleWindowMS       int          `hcl:"sample_window_ms,optional"`
	Commands             []hclCommand `hcl:"commands,block"`
}

type hclCommand struct {
	Option  string   `hcl:"option,label"`
	Init    []string `hcl:"init"`
	Iterate string   `hcl:"iterate"`
	Output  string   `hcl:"output"`
}

func decodeHCL(b []byte, path string, cfg *Config) error {
	file, diags := hclparse.NewParser().ParseHCL(b, path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	var raw hclConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	cfg.ToolsDir = raw.ToolsDir
	cfg.PreprocessTools = raw.PreprocessTools
	cfg.GeometryParams = raw.GeometryParams
	cfg.LayersFile = raw.LayersFile
	if len(raw.Layers) > 0 {
		cfg.Layers = make(map[string]Layer, len(raw.Layers))
		for _, l := range raw.Layers {
			cfg.Layers[l.Name] = Layer{ZMin: l.ZMin, ZMax: l.ZMax, Potentials: l.Potentials}
		}
	}
	if len(raw.Options) > 0 {
		cfg.Options = make(map[string]OptionConfig, len(raw.Options))
		for _, o := range raw.Options {
			cfg.Options[o.Name] = OptionConfig{Setup: o.Setup}
		}
	}
	if s := raw.Solver; s != nil {
		cfg.Solver = Solver{
			Executable:           s.Executable,
			WindowTitle:          s.WindowTitle,
			CPUThreshold:         s.CPUThreshold,
			CheckIntervalSeconds: s.CheckIntervalSeconds,
			PhaseTimeoutSeconds:  s.PhaseTimeoutSeconds,
			ExitTimeoutSeconds:   s.ExitTimeoutSeconds,
			SampleWindowMS:       s.SampleWindowMS,
		}
		if len(s.Commands) > 0 {
			cfg.Solver.Commands = make(map[string]SolverCommands, len(s.Commands))
			for _, c := range s.Commands {
				cfg.Solver.Commands[c.Option] = SolverCommands{Init: c.Init, Iterate: c.Iterate, Output: c.Output}
			}
		}
	}
	if raw.Divide != nil {
		cfg.Divide = *raw.Divide
	}
	if raw.Combine != nil {
		cfg.Combine = *raw.Combine
	}
	if raw.Output != nil {
		cfg.Output = *raw.Output
	}
	if raw.Timing != nil {
		cfg.Timing = *raw.Timing
	}
	if raw.History != nil {
		cfg.History = *raw.History
	}
	if raw.Log != nil {
		cfg.Log = *raw.Log
	}
	if raw.HTTP != nil {
		cfg.HTTP = *raw.HTTP
	}
	return nil
}
