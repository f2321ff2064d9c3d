// Package ports declares the interfaces the application core depends on.
package ports

import (
	"context"
	"time"

	"sapling/internal/data/history"
)

// HistoryStore persists validation runs.
type HistoryStore interface {
	SaveRun(ctx context.Context, run history.Run) (string, error)
	ListRuns(ctx context.Context, grammar string, limit int) ([]history.Run, error)
	GetRun(ctx context.Context, id string) (history.Run, error)
	Prune(ctx context.Context, grammar string, keep int) (int, error)
	Close() error
}

// Clock lets tests pin run timestamps.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
