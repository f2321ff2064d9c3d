package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: SAPLING_[SECTION]_[KEY] (e.g., SAPLING_OUTPUT_FORMAT).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Paths.StateDir, "SAPLING_PATHS_STATE_DIR")

	setEnvBool(&cfg.Validate.Parallel, "SAPLING_VALIDATE_PARALLEL")
	setEnvBool(&cfg.Validate.CheckMetadata, "SAPLING_VALIDATE_CHECK_METADATA")

	setEnvString(&cfg.Language.Name, "SAPLING_LANGUAGE_NAME")

	setEnvString(&cfg.Output.Format, "SAPLING_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "SAPLING_OUTPUT_PATH")

	setEnvBool(&cfg.History.Enabled, "SAPLING_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "SAPLING_HISTORY_PATH")

	setEnvInt(&cfg.Cache.Reports, "SAPLING_CACHE_REPORTS")

	setEnvDuration(&cfg.Watch.Debounce, "SAPLING_WATCH_DEBOUNCE")
	setEnvDuration(&cfg.Watch.MinInterval, "SAPLING_WATCH_MIN_INTERVAL")

	setEnvString(&cfg.Observability.MetricsAddr, "SAPLING_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "SAPLING_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "SAPLING_OBSERVABILITY_SERVICE_NAME")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
