package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot string
	StateDir    string
	HistoryPath string
	LogPath     string
	OutputPath  string
}

// ResolvePaths anchors every relative path of cfg: the project root at cwd,
// the state dir at the project root, the history database at the state dir.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	projectRoot := ResolveRelative(cwd, cfg.Paths.ProjectRoot)
	stateDir := ResolveRelative(projectRoot, cfg.Paths.StateDir)

	resolved := ResolvedPaths{
		ProjectRoot: projectRoot,
		StateDir:    stateDir,
		HistoryPath: ResolveRelative(stateDir, cfg.History.Path),
		LogPath:     filepath.Join(stateDir, "sapling.log"),
	}
	if strings.TrimSpace(cfg.Output.Path) != "" {
		resolved.OutputPath = ResolveRelative(projectRoot, cfg.Output.Path)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
