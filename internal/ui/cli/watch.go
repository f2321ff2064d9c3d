package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"sapling/internal/core/app"
	"sapling/internal/core/config"
	"sapling/internal/data/history"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const trendWindow = 50

func newWatchCommand(rt *runtime) *cobra.Command {
	var useUI bool
	cmd := &cobra.Command{
		Use:   "watch [path...]",
		Short: "Re-validate grammars as they change",
		Long: `Validate every grammar under the given paths (default: watch.paths), then
re-validate files as they change until interrupted.

The configuration file is reloaded when it changes. When
observability.metrics_addr is set, /metrics and /health are served.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			paths := args
			if len(paths) == 0 {
				paths = rt.cfg.Watch.Paths
			}
			if useUI {
				return rt.runWatchUI(ctx, paths)
			}
			return rt.runWatch(ctx, paths, printUpdate(cmd.OutOrStdout()), nil)
		},
	}
	cmd.Flags().BoolVar(&useUI, "ui", false, "show the interactive dashboard")
	return cmd
}

// runWatch runs the watch service until ctx is canceled, rebuilding it
// whenever the configuration file changes.
func (rt *runtime) runWatch(ctx context.Context, paths []string, onUpdate func(app.Update), onService func(*app.Service)) error {
	reloads := make(chan *config.Config, 1)
	if rt.cfgPath != "" {
		cw := config.NewWatcher(rt.cfgPath, func(cfg *config.Config) {
			select {
			case reloads <- cfg:
			default:
			}
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config hot reload disabled", "path", rt.cfgPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	var current atomic.Pointer[app.Service]
	if addr := rt.cfg.Observability.MetricsAddr; addr != "" {
		srv := NewObservabilityServer(addr, func(ctx context.Context) app.HealthStatus {
			if svc := current.Load(); svc != nil {
				return svc.Health(ctx)
			}
			return app.HealthStatus{Status: "starting", Timestamp: time.Now().UTC(), Components: map[string]string{}}
		})
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start observability server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				slog.Warn("observability server shutdown failed", "error", err)
			}
		}()
	}

	cfg := rt.cfg
	for {
		svc, err := app.New(cfg)
		if err != nil {
			return err
		}
		svc.SetUpdateHandler(onUpdate)
		current.Store(svc)
		if onService != nil {
			onService(svc)
		}

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- svc.Watch(runCtx, paths) }()

		select {
		case err := <-done:
			cancel()
			_ = svc.Close()
			return err
		case next := <-reloads:
			cancel()
			if err := <-done; err != nil {
				slog.Warn("watch stopped with error during reload", "error", err)
			}
			_ = svc.Close()
			cfg = next
			slog.Info("configuration changed, restarting watch", "path", rt.cfgPath)
		}
	}
}

func (rt *runtime) runWatchUI(ctx context.Context, paths []string) error {
	rt.redirectLogs()

	var current atomic.Pointer[app.Service]
	var trend trendFunc
	if rt.cfg.History.Enabled {
		trend = func(grammar string) ([]history.TrendPoint, error) {
			svc := current.Load()
			if svc == nil {
				return nil, nil
			}
			return svc.Trend(ctx, grammar, trendWindow)
		}
	}

	p := tea.NewProgram(initialModel(trend), tea.WithAltScreen(), tea.WithContext(ctx))

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		err := rt.runWatch(watchCtx, paths,
			func(u app.Update) { p.Send(updateMsg{state: stateFromUpdate(u)}) },
			func(svc *app.Service) { current.Store(svc) })
		if err != nil {
			p.Quit()
		}
		done <- err
	}()

	_, err := p.Run()
	cancel()
	watchErr := <-done
	if watchErr != nil {
		return watchErr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func printUpdate(w io.Writer) func(app.Update) {
	return func(u app.Update) {
		st := stateFromUpdate(u)
		fmt.Fprintf(w, "%s %s %s\n", u.At.Format("15:04:05"), st.path, stateSummary(st))
	}
}
