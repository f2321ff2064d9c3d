package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sapling/internal/core/config"
	coreerrors "sapling/internal/core/errors"
	"sapling/internal/data/grammarfile"
	"sapling/internal/data/history"
	"sapling/internal/engine/validate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listGrammar = `{
  "name": "list",
  "rules": {
    "document": {"type": "REPEAT", "content": {"type": "SYMBOL", "name": "item"}},
    "item": {"type": "CHOICE", "members": [
      {"type": "SYMBOL", "name": "number"},
      {"type": "SEQ", "members": [
        {"type": "SYMBOL", "name": "item"},
        {"type": "STRING", "value": ","},
        {"type": "SYMBOL", "name": "number"}
      ]}
    ]},
    "number": {"type": "PATTERN", "value": "\\d+"},
    "_orphan": {"type": "STRING", "value": "x"}
  }
}`

const undefinedGrammar = `{
  "name": "broken",
  "rules": {
    "document": {"type": "SYMBOL", "name": "itme"},
    "item": {"type": "BLANK"}
  }
}`

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T, mutate func(*config.Config), deps Dependencies) *Service {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	if deps.Clock == nil {
		deps.Clock = &fixedClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	}
	svc, err := NewWithDependencies(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func openHistory(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	return store
}

func TestNewWithDependencies_RequiresConfig(t *testing.T) {
	_, err := NewWithDependencies(nil, Dependencies{})
	assert.Error(t, err)
}

func TestNewWithDependencies_RejectsBadIgnorePattern(t *testing.T) {
	cfg := config.Default()
	cfg.Diagnostics.IgnoreRules = []string{"[a"}
	_, err := NewWithDependencies(cfg, Dependencies{})
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeConfigError))
}

func TestValidateBytes_ReportsDiagnostics(t *testing.T) {
	svc := newTestService(t, nil, Dependencies{})

	res, err := svc.ValidateBytes(context.Background(), "list.json", []byte(listGrammar), grammarfile.FormatJSON)
	require.NoError(t, err)
	require.NotNil(t, res.Report)

	assert.Equal(t, history.OutcomeOK, res.Outcome())
	assert.Equal(t, "list", res.GrammarName())
	assert.Equal(t, "document", res.Report.EntryPoint)
	assert.True(t, res.Report.HasCode(validate.CodeUnreachableRule, "_orphan"))
	assert.True(t, res.Report.HasCode(validate.CodeLeftRecursion, "item"))
	assert.Len(t, res.ContentHash, 16)
	assert.False(t, res.Cached)
}

func TestValidateBytes_UndefinedSymbol(t *testing.T) {
	svc := newTestService(t, nil, Dependencies{})

	res, err := svc.ValidateBytes(context.Background(), "broken.json", []byte(undefinedGrammar), grammarfile.FormatJSON)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Nil(t, res.Report)
	assert.Equal(t, history.OutcomeInvalid, res.Outcome())
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeValidationError))

	var verr *validate.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "document", verr.Rule)
	assert.Equal(t, "itme", verr.Symbol)
	assert.Contains(t, verr.Suggestions, "item")
	assert.Contains(t, err.Error(), "broken.json")
}

func TestValidateBytes_DecodeError(t *testing.T) {
	svc := newTestService(t, nil, Dependencies{})

	res, err := svc.ValidateBytes(context.Background(), "dir/mangled.json", []byte(`{"name": "x", "rules": [`), grammarfile.FormatJSON)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Nil(t, res.Grammar)
	assert.Equal(t, history.OutcomeDecodeError, res.Outcome())
	assert.Equal(t, "mangled", res.GrammarName())
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeDecodeError))
	assert.False(t, coreerrors.IsCode(err, coreerrors.CodeValidationError))
}

func TestValidateBytes_CanceledContext(t *testing.T) {
	svc := newTestService(t, nil, Dependencies{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.ValidateBytes(ctx, "list.json", []byte(listGrammar), grammarfile.FormatJSON)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateBytes_Cache(t *testing.T) {
	svc := newTestService(t, nil, Dependencies{})
	ctx := context.Background()

	first, err := svc.ValidateBytes(ctx, "list.json", []byte(listGrammar), grammarfile.FormatJSON)
	require.NoError(t, err)
	second, err := svc.ValidateBytes(ctx, "copy.json", []byte(listGrammar), grammarfile.FormatJSON)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, first.Report.Diagnostics, second.Report.Diagnostics)

	// Cached failures keep their per-call path.
	_, err = svc.ValidateBytes(ctx, "a.json", []byte(undefinedGrammar), grammarfile.FormatJSON)
	require.Error(t, err)
	res, err := svc.ValidateBytes(ctx, "b.json", []byte(undefinedGrammar), grammarfile.FormatJSON)
	require.Error(t, err)
	assert.True(t, res.Cached)
	assert.Contains(t, err.Error(), "b.json")
	assert.NotContains(t, err.Error(), "a.json")
}

func TestValidateBytes_CacheDisabled(t *testing.T) {
	svc := newTestService(t, func(cfg *config.Config) { cfg.Cache.Reports = -1 }, Dependencies{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := svc.ValidateBytes(ctx, "list.json", []byte(listGrammar), grammarfile.FormatJSON)
		require.NoError(t, err)
		assert.False(t, res.Cached)
	}
}

func TestValidateBytes_Filters(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		absent  validate.Code
		present validate.Code
	}{
		{
			name:    "DisabledCode",
			mutate:  func(cfg *config.Config) { cfg.Diagnostics.Disable = []string{string(validate.CodeUnreachableRule)} },
			absent:  validate.CodeUnreachableRule,
			present: validate.CodeLeftRecursion,
		},
		{
			name:    "IgnoredRule",
			mutate:  func(cfg *config.Config) { cfg.Diagnostics.IgnoreRules = []string{"_*"} },
			absent:  validate.CodeUnreachableRule,
			present: validate.CodeLeftRecursion,
		},
		{
			name:    "IgnoredRecursiveRule",
			mutate:  func(cfg *config.Config) { cfg.Diagnostics.IgnoreRules = []string{"it{e,}m"} },
			absent:  validate.CodeLeftRecursion,
			present: validate.CodeUnreachableRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.mutate, Dependencies{})
			res, err := svc.ValidateBytes(context.Background(), "list.json", []byte(listGrammar), grammarfile.FormatJSON)
			require.NoError(t, err)
			assert.Empty(t, res.Report.ByCode(tt.absent))
			assert.NotEmpty(t, res.Report.ByCode(tt.present))
		})
	}
}

func TestValidateBytes_LanguageCrossCheck(t *testing.T) {
	svc := newTestService(t, func(cfg *config.Config) { cfg.Language.Name = "go" }, Dependencies{})

	res, err := svc.ValidateBytes(context.Background(), "list.json", []byte(listGrammar), grammarfile.FormatJSON)
	require.NoError(t, err)
	assert.True(t, res.Report.HasCode(validate.CodeLanguageMismatch, "document"))
	assert.False(t, res.Report.HasCode(validate.CodeLanguageMismatch, "_orphan"))
}

func TestNewWithDependencies_UnknownLanguage(t *testing.T) {
	cfg := config.Default()
	cfg.Language.Name = "cobol"
	_, err := NewWithDependencies(cfg, Dependencies{})
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotSupported))
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.json")
	require.NoError(t, os.WriteFile(path, []byte(listGrammar), 0o644))

	svc := newTestService(t, nil, Dependencies{})
	res, err := svc.ValidateFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)

	_, err = svc.ValidateFile(context.Background(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotFound))
}

func TestValidate_RecordsHistory(t *testing.T) {
	store := openHistory(t)
	svc := newTestService(t, func(cfg *config.Config) { cfg.History.Keep = 2 }, Dependencies{History: store})
	ctx := context.Background()

	_, err := svc.ValidateBytes(ctx, "list.json", []byte(listGrammar), grammarfile.FormatJSON)
	require.NoError(t, err)
	_, err = svc.ValidateBytes(ctx, "broken.json", []byte(undefinedGrammar), grammarfile.FormatJSON)
	require.Error(t, err)
	_, err = svc.ValidateBytes(ctx, "list.json", []byte(listGrammar), grammarfile.FormatJSON)
	require.NoError(t, err)
	_, err = svc.ValidateBytes(ctx, "list.json", []byte(listGrammar), grammarfile.FormatJSON)
	require.NoError(t, err)

	runs, err := svc.History(ctx, "list", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2, "pruned to history.keep")
	assert.Equal(t, history.OutcomeOK, runs[0].Outcome)
	assert.Equal(t, 4, runs[0].RuleCount)
	assert.NotEmpty(t, runs[0].Diagnostics)

	broken, err := svc.History(ctx, "broken", 0)
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, history.OutcomeInvalid, broken[0].Outcome)
	assert.Contains(t, broken[0].Error, "itme")

	run, err := svc.Run(ctx, broken[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "broken.json", run.Path)

	trend, err := svc.Trend(ctx, "list", 0)
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.False(t, trend[1].Changed)
}

func TestHistory_Disabled(t *testing.T) {
	svc := newTestService(t, nil, Dependencies{})
	_, err := svc.History(context.Background(), "", 10)
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotSupported))
}

func TestSetUpdateHandler(t *testing.T) {
	svc := newTestService(t, nil, Dependencies{})

	var updates []Update
	svc.SetUpdateHandler(func(u Update) { updates = append(updates, u) })

	_, _ = svc.ValidateBytes(context.Background(), "list.json", []byte(listGrammar), grammarfile.FormatJSON)
	_, _ = svc.ValidateBytes(context.Background(), "broken.json", []byte(undefinedGrammar), grammarfile.FormatJSON)

	require.Len(t, updates, 2)
	assert.Equal(t, "list.json", updates[0].Result.Path)
	assert.Error(t, updates[1].Result.Err)
}

func TestTraceReferenceChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	require.NoError(t, os.WriteFile(path, []byte(listGrammar), 0o644))
	svc := newTestService(t, nil, Dependencies{})
	ctx := context.Background()

	chain, err := svc.TraceReferenceChain(ctx, path, "document", "number")
	require.NoError(t, err)
	assert.Equal(t, []string{"document", "item", "number"}, chain)

	_, err = svc.TraceReferenceChain(ctx, path, "number", "document")
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotFound))

	_, err = svc.TraceReferenceChain(ctx, path, "document", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	refs, err := svc.Referrers(ctx, path, "number")
	require.NoError(t, err)
	assert.Equal(t, []string{"item"}, refs.DirectReferrers)
	assert.Equal(t, []string{"document"}, refs.TransitiveReferrers)
}

func TestHealth(t *testing.T) {
	svc := newTestService(t, nil, Dependencies{})
	status := svc.Health(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "disabled", status.Components["history"])

	store := openHistory(t)
	withHistory := newTestService(t, func(cfg *config.Config) { cfg.History.Enabled = true }, Dependencies{History: store})
	status = withHistory.Health(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "ok", status.Components["history"])

	missing := newTestService(t, func(cfg *config.Config) { cfg.History.Enabled = true }, Dependencies{})
	assert.Equal(t, "degraded", missing.Health(context.Background()).Status)
}

func TestWatch_RevalidatesChangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.json")
	require.NoError(t, os.WriteFile(path, []byte(listGrammar), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	svc := newTestService(t, func(cfg *config.Config) {
		cfg.Watch.Debounce = 20 * time.Millisecond
		cfg.Watch.MinInterval = -1
	}, Dependencies{})

	updates := make(chan Update, 16)
	svc.SetUpdateHandler(func(u Update) { updates <- u })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx, []string{dir}) }()

	next := func() Update {
		select {
		case u := <-updates:
			return u
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for validation")
			return Update{}
		}
	}

	initial := next()
	assert.Equal(t, path, initial.Result.Path)
	require.NoError(t, initial.Result.Err)

	require.NoError(t, os.WriteFile(path, []byte(undefinedGrammar), 0o644))
	// A partially written file may first surface as a decode error.
	for next().Result.Outcome() != history.OutcomeInvalid {
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
