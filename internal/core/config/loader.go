package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	coreerrors "sapling/internal/core/errors"
	"sapling/internal/engine/language"
	"sapling/internal/engine/validate"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

var outputFormats = []string{"text", "json", "sarif", "dot"}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeConfigError, "decode config"), coreerrors.CtxPath, path)
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Check(&cfg); err != nil {
		return nil, coreerrors.AddContext(err, coreerrors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not
// exist and was not requested explicitly.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		cfg = &Config{}
		ApplyEnvOverrides(cfg)
		applyDefaults(cfg)
		normalize(cfg)
		return cfg, Check(cfg)
	}
	return nil, err
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = ".sapling"
	}

	if cfg.Validate.AuxiliaryRoots == nil {
		on := true
		cfg.Validate.AuxiliaryRoots = &on
	}
	if cfg.Validate.ExternalSymbols == nil {
		on := true
		cfg.Validate.ExternalSymbols = &on
	}
	if cfg.Validate.MaxSuggestions == 0 {
		cfg.Validate.MaxSuggestions = 3
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	if cfg.Output.Color == nil {
		on := true
		cfg.Output.Color = &on
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "history.db"
	}
	if cfg.History.Keep == 0 {
		cfg.History.Keep = 200
	}

	if cfg.Cache.Reports == 0 {
		cfg.Cache.Reports = 64
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.MinInterval == 0 {
		cfg.Watch.MinInterval = time.Second
	}
	if len(cfg.Watch.Paths) == 0 {
		cfg.Watch.Paths = []string{"."}
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "sapling"
	}
}

func normalize(cfg *Config) {
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Language.Name = strings.ToLower(strings.TrimSpace(cfg.Language.Name))
	for i, code := range cfg.Diagnostics.Disable {
		cfg.Diagnostics.Disable[i] = strings.ToLower(strings.TrimSpace(code))
	}
	cfg.Observability.MetricsAddr = strings.TrimSpace(cfg.Observability.MetricsAddr)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

// Check validates a fully defaulted configuration.
func Check(cfg *Config) error {
	checks := []func(*Config) error{
		validateVersion,
		validateValidate,
		validateDiagnostics,
		validateLanguage,
		validateOutput,
		validateHistory,
		validateWatch,
		validateObservability,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return coreerrors.Wrap(err, coreerrors.CodeConfigError, "invalid config")
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d", cfg.Version)
	}
	return nil
}

func validateValidate(cfg *Config) error {
	if cfg.Validate.MaxSuggestions < 0 {
		return fmt.Errorf("validate.max_suggestions must be >= 0")
	}
	return nil
}

func validateDiagnostics(cfg *Config) error {
	known := validate.Codes()
	for _, code := range cfg.Diagnostics.Disable {
		if !slices.Contains(known, validate.Code(code)) {
			return fmt.Errorf("diagnostics.disable: unknown diagnostic code %q", code)
		}
	}
	for _, pattern := range cfg.Diagnostics.IgnoreRules {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("diagnostics.ignore_rules: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateLanguage(cfg *Config) error {
	if cfg.Language.Name == "" {
		return nil
	}
	if !slices.Contains(language.Names(), cfg.Language.Name) {
		return fmt.Errorf("language.name: no bundled language %q (available: %s)",
			cfg.Language.Name, strings.Join(language.Names(), ", "))
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if !slices.Contains(outputFormats, cfg.Output.Format) {
		return fmt.Errorf("output.format must be one of %s, got %q", strings.Join(outputFormats, ", "), cfg.Output.Format)
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Keep < 0 {
		return fmt.Errorf("history.keep must be >= 0")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0")
	}
	if cfg.Watch.MinInterval < 0 {
		return fmt.Errorf("watch.min_interval must be >= 0")
	}
	for _, pattern := range cfg.Watch.Exclude {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.exclude: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if addr := cfg.Observability.MetricsAddr; addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("observability.metrics_addr %q: %w", addr, err)
		}
	}
	return nil
}
