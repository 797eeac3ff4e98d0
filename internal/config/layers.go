package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"relax3d/internal/common/fsutil"
)

// LayerFile is the content of a standalone layers YAML file.
type LayerFile struct {
	Layers  map[string]Layer
	Options map[string]OptionConfig
}

// rawLayerFile accepts both the current keys and the ones used by older
// files (slices / potential / exec_cmd).
type rawLayerFile struct {
	Layers  map[string]rawLayer  `yaml:"layers"`
	Slices  map[string]rawLayer  `yaml:"slices"`
	Options map[string]rawOption `yaml:"options"`
}

type rawLayer struct {
	ZMin       float64 `yaml:"zmin"`
	ZMax       float64 `yaml:"zmax"`
	Potentials []int   `yaml:"potentials"`
	Potential  []int   `yaml:"potential"`
}

type rawOption struct {
	Setup   [][]string `yaml:"setup"`
	ExecCmd [][]string `yaml:"exec_cmd"`
}

// LoadLayers reads a layers YAML file.
func LoadLayers(path string) (LayerFile, error) {
	lf := LayerFile{Layers: map[string]Layer{}, Options: map[string]OptionConfig{}}
	b, err := os.ReadFile(path)
	if err != nil {
		return lf, err
	}
	var raw rawLayerFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return lf, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, src := range []map[string]rawLayer{raw.Slices, raw.Layers} {
		for name, r := range src {
			pots := r.Potentials
			if len(pots) == 0 {
				pots = r.Potential
			}
			lf.Layers[name] = Layer{ZMin: r.ZMin, ZMax: r.ZMax, Potentials: pots}
		}
	}
	for name, o := range raw.Options {
		setup := o.Setup
		if len(setup) == 0 {
			setup = o.ExecCmd
		}
		lf.Options[name] = OptionConfig{Setup: setup}
	}
	return lf, nil
}

// SetLayer validates l and stores it under name.
func (c *Config) SetLayer(name string, l Layer) error {
	if err := ValidateLayer(name, l); err != nil {
		return err
	}
	if c.Layers == nil {
		c.Layers = map[string]Layer{}
	}
	c.Layers[name] = l
	return nil
}

// LayerNames returns the configured layer names, sorted.
func (c *Config) LayerNames() []string {
	names := make([]string, 0, len(c.Layers))
	for n := range c.Layers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type savedLayers struct {
	Layers  map[string]Layer        `yaml:"layers"`
	Options map[string]OptionConfig `yaml:"options,omitempty"`
}

// SaveLayers writes the layer set (and option setups) as a layers YAML file.
func (c *Config) SaveLayers(path string) error {
	b, err := yaml.Marshal(savedLayers{Layers: c.Layers, Options: c.Options})
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, b, 0o644)
}
