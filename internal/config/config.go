// Package config loads the vpp project file.
package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/fwessels/vpp/internal/source"
)

// Config is the on-disk form, e.g.
//
//	include_dirs: [rtl/include, third_party/uvm/src]
//	defines:
//	  WIDTH: "32"
//	  SIMULATION: ""
//	log_level: info
//	locations: true
//	jobs: 4
type Config struct {
	IncludeDirs []string          `yaml:"include_dirs"`
	Defines     map[string]string `yaml:"defines"`
	LogLevel    string            `yaml:"log_level"`
	Locations   bool              `yaml:"locations"`
	Jobs        int               `yaml:"jobs"`
}

// Load reads and parses the config file at path from src.
func Load(src source.Source, path string) (*Config, error) {
	text, err := src.ReadAll(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return Parse([]byte(text))
}

func Parse(bs []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Jobs < 0 {
		return nil, fmt.Errorf("parse config: jobs must not be negative, got %d", cfg.Jobs)
	}
	return &cfg, nil
}

// DefineList returns the defines as NAME=VALUE sorted by name. An empty value
// leaves the macro body empty.
func (c *Config) DefineList() []string {
	names := make([]string, 0, len(c.Defines))
	for name := range c.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	list := make([]string, len(names))
	for i, name := range names {
		list[i] = name + "=" + c.Defines[name]
	}
	return list
}
