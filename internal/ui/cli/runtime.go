package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sapling/internal/core/app"
	"sapling/internal/core/config"
	"sapling/internal/shared/observability"
	"sapling/internal/shared/util"

	"github.com/spf13/cobra"
)

// runtime carries what every command shares once the root has loaded the
// configuration.
type runtime struct {
	params rootParams
	stdout io.Writer
	stderr io.Writer

	cfg *config.Config
	// cfgPath is empty when no configuration file exists and defaults are
	// in use.
	cfgPath string
	paths   config.ResolvedPaths

	tracingShutdown func(context.Context) error
	closers         []func()
}

func (rt *runtime) setup(cmd *cobra.Command) error {
	configureLogging(rt.stderr, rt.params.verbose)

	explicit := cmd.Flags().Changed(flagConfig)
	cfg, err := config.LoadOrDefault(rt.params.configPath, explicit)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, err := os.Stat(rt.params.configPath); err == nil {
		rt.cfgPath = rt.params.configPath
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("detect working directory: %w", err)
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return fmt.Errorf("resolve runtime paths: %w", err)
	}
	rt.cfg = cfg
	rt.paths = paths

	shutdown, err := observability.InitTracing(cmd.Context(), observability.TracingConfig{
		Endpoint:    cfg.Observability.OTLPEndpoint,
		ServiceName: cfg.Observability.ServiceName,
		Insecure:    cfg.Observability.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	rt.tracingShutdown = shutdown
	slog.Debug("configuration loaded", "path", rt.cfgPath, "project_root", paths.ProjectRoot)
	return nil
}

func (rt *runtime) shutdown() {
	if rt.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rt.tracingShutdown(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
		cancel()
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func (rt *runtime) newService() (*app.Service, error) {
	return app.New(rt.cfg)
}

func (rt *runtime) format(fallback string) string {
	if f := strings.TrimSpace(rt.params.format); f != "" {
		return f
	}
	return fallback
}

// reportPath is where validation reports go: --output, then output.path.
func (rt *runtime) reportPath() string {
	if p := strings.TrimSpace(rt.params.output); p != "" {
		return p
	}
	return rt.paths.OutputPath
}

// writeOutput renders to stdout, or to path when one is set.
func (rt *runtime) writeOutput(path string, render func(io.Writer) error) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return render(rt.stdout)
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if err := util.WriteFileWithDirs(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("output written", "path", path)
	return nil
}

// redirectLogs sends logs to the state-dir log file so a full-screen UI
// is not overdrawn.
func (rt *runtime) redirectLogs() {
	logPath := rt.paths.LogPath
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		fmt.Fprintf(rt.stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		configureLogging(io.Discard, rt.params.verbose)
		return
	}
	if fi, err := os.Lstat(logPath); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		fmt.Fprintf(rt.stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		configureLogging(io.Discard, rt.params.verbose)
		return
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		fmt.Fprintf(rt.stderr, "warning: failed to open log file %s: %v\n", logPath, err)
		configureLogging(io.Discard, rt.params.verbose)
		return
	}
	configureLogging(f, rt.params.verbose)
	rt.closers = append(rt.closers, func() { _ = f.Close() })
}

func configureLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func exactArgs(n int) cobra.PositionalArgs {
	return usageArgs(cobra.ExactArgs(n))
}

func minArgs(n int) cobra.PositionalArgs {
	return usageArgs(cobra.MinimumNArgs(n))
}

func maxArgs(n int) cobra.PositionalArgs {
	return usageArgs(cobra.MaximumNArgs(n))
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
