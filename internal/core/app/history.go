package app

import (
	"context"
	"log/slog"

	coreerrors "sapling/internal/core/errors"
	"sapling/internal/data/history"
	"sapling/internal/shared/observability"
)

// record stores res in the history store. Failures are logged and counted
// but never fail the validation.
func (s *Service) record(ctx context.Context, res *Result) {
	if s.history == nil {
		return
	}

	run := history.Run{
		Grammar:     res.GrammarName(),
		Path:        res.Path,
		ContentHash: res.ContentHash,
		Timestamp:   s.clock.Now(),
		Outcome:     res.Outcome(),
		Duration:    res.Duration,
	}
	if res.Grammar != nil && res.Grammar.Rules != nil {
		run.RuleCount = res.Grammar.Rules.Len()
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	if res.Report != nil {
		run.Diagnostics = make([]history.Diagnostic, 0, res.Report.Len())
		for _, d := range res.Report.Diagnostics {
			run.Diagnostics = append(run.Diagnostics, history.Diagnostic{
				Code:     string(d.Code),
				Severity: d.Severity.String(),
				Rule:     d.Rule,
				Message:  d.Message,
			})
		}
	}

	if _, err := s.history.SaveRun(ctx, run); err != nil {
		observability.HistoryWriteErrorsTotal.Inc()
		slog.Warn("failed to record validation run", "grammar", run.Grammar, "error", err)
		return
	}
	if keep := s.Config.History.Keep; keep > 0 {
		if _, err := s.history.Prune(ctx, run.Grammar, keep); err != nil {
			slog.Warn("failed to prune history", "grammar", run.Grammar, "error", err)
		}
	}
}

var errHistoryDisabled = coreerrors.New(coreerrors.CodeNotSupported, "history is disabled")

// History lists recorded runs for grammar, newest first. An empty grammar
// lists runs of every grammar.
func (s *Service) History(ctx context.Context, grammar string, limit int) ([]history.Run, error) {
	if s.history == nil {
		return nil, errHistoryDisabled
	}
	return s.history.ListRuns(ctx, grammar, limit)
}

// Run returns a single recorded run with its diagnostics.
func (s *Service) Run(ctx context.Context, id string) (history.Run, error) {
	if s.history == nil {
		return history.Run{}, errHistoryDisabled
	}
	return s.history.GetRun(ctx, id)
}

// Trend returns per-run deltas for grammar, oldest first.
func (s *Service) Trend(ctx context.Context, grammar string, limit int) ([]history.TrendPoint, error) {
	runs, err := s.History(ctx, grammar, limit)
	if err != nil {
		return nil, err
	}
	return history.BuildTrend(runs), nil
}
