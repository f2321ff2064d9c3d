package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"sapling/internal/core/watcher"
	"sapling/internal/shared/util"
)

// Watch validates every grammar file under paths, then re-validates files as
// they change until ctx is canceled. Re-validation batches are throttled to
// one per watch.min_interval. Results are delivered through the update
// handler.
func (s *Service) Watch(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		paths = s.Config.Watch.Paths
	}

	limiter := util.NewIntervalLimiter(s.Config.Watch.MinInterval)
	batches := make(chan []string, 16)

	w, err := watcher.NewWatcher(s.Config.Watch.Debounce, s.Config.Watch.Exclude, s.Config.Watch.Exclude, func(changed []string) {
		select {
		case batches <- changed:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(paths); err != nil {
		return err
	}

	initial, err := s.Discover(paths)
	if err != nil {
		return err
	}
	s.HandleChanges(ctx, initial)

	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-batches:
			if err := limiter.Wait(ctx, 1); err != nil {
				return nil
			}
			s.HandleChanges(ctx, changed)
		}
	}
}

// HandleChanges re-validates the given grammar files. Removed files are
// skipped.
func (s *Service) HandleChanges(ctx context.Context, paths []string) {
	slog.Info("detected changes", "count", len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			slog.Info("grammar file removed", "path", path)
			continue
		}
		res, err := s.ValidateFile(ctx, path)
		switch {
		case res == nil && err != nil:
			slog.Warn("failed to read grammar file", "path", path, "error", err)
		case err != nil:
			slog.Info("grammar rejected", "path", path, "error", err)
		default:
			slog.Info("grammar validated", "path", path, "diagnostics", res.Report.Len(), "cached", res.Cached)
		}
	}
}

// Discover lists the grammar files named by or contained in paths.
func (s *Service) Discover(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && s.excluded(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if util.IsGrammarFile(path) && !s.excluded(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (s *Service) excluded(name string) bool {
	for _, g := range s.watchExclude {
		if g.Match(name) {
			return true
		}
	}
	return false
}
