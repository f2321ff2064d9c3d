package config

import (
	"time"
)

const DefaultFile = "sapling.toml"

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Validate      Validate      `toml:"validate"`
	Diagnostics   Diagnostics   `toml:"diagnostics"`
	Language      Language      `toml:"language"`
	Output        Output        `toml:"output"`
	History       History       `toml:"history"`
	Cache         Cache         `toml:"cache"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
}

type Validate struct {
	AuxiliaryRoots  *bool `toml:"auxiliary_roots"`
	ExternalSymbols *bool `toml:"external_symbols"`
	Parallel        bool  `toml:"parallel"`
	CheckMetadata   bool  `toml:"check_metadata"`
	MaxSuggestions  int   `toml:"max_suggestions"`
}

type Diagnostics struct {
	Disable     []string `toml:"disable"`      // diagnostic codes to drop
	IgnoreRules []string `toml:"ignore_rules"` // glob patterns over rule names
}

type Language struct {
	Name string `toml:"name"` // bundled language to cross-check against
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
	Color  *bool  `toml:"color"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Keep    int    `toml:"keep"`
}

type Cache struct {
	Reports int `toml:"reports"`
}

type Watch struct {
	Debounce    time.Duration `toml:"debounce"`
	MinInterval time.Duration `toml:"min_interval"`
	Paths       []string      `toml:"paths"`
	Exclude     []string      `toml:"exclude"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	OTLPInsecure bool   `toml:"otlp_insecure"`
	ServiceName  string `toml:"service_name"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func enabled(v *bool) bool {
	return v != nil && *v
}

func (v Validate) AuxiliaryRootsEnabled() bool  { return enabled(v.AuxiliaryRoots) }
func (v Validate) ExternalSymbolsEnabled() bool { return enabled(v.ExternalSymbols) }
func (o Output) ColorEnabled() bool             { return enabled(o.Color) }
