package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sapling/internal/core/config"
	coreerrors "sapling/internal/core/errors"
	"sapling/internal/core/ports"
	"sapling/internal/data/grammarfile"
	"sapling/internal/data/history"
	"sapling/internal/engine/grammar"
	"sapling/internal/engine/language"
	"sapling/internal/engine/validate"
	"sapling/internal/shared/observability"

	"github.com/gobwas/glob"
	sitter "github.com/tree-sitter/go-tree-sitter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Result is the outcome of validating one grammar document. Grammar is nil
// when decoding failed; Report is nil whenever Err is set.
type Result struct {
	Path        string
	Grammar     *grammar.Grammar
	Report      *validate.Report
	Err         error
	ContentHash string
	Duration    time.Duration
	Cached      bool
}

// Outcome classifies the result the way history records it.
func (r *Result) Outcome() history.Outcome {
	switch {
	case r.Err == nil:
		return history.OutcomeOK
	case coreerrors.IsCode(r.Err, coreerrors.CodeValidationError):
		return history.OutcomeInvalid
	default:
		return history.OutcomeDecodeError
	}
}

// GrammarName is the declared grammar name, or the file stem when the file
// could not be decoded.
func (r *Result) GrammarName() string {
	if r.Grammar != nil && r.Grammar.Name != "" {
		return r.Grammar.Name
	}
	base := filepath.Base(r.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Update is emitted after every validation so long-running front ends can
// refresh.
type Update struct {
	Result *Result
	At     time.Time
}

type Dependencies struct {
	History ports.HistoryStore
	Clock   ports.Clock
	// Language overrides the bundled language lookup for the cross-check.
	Language *sitter.Language
}

type Service struct {
	Config *config.Config

	validator    *validate.Validator
	history      ports.HistoryStore
	clock        ports.Clock
	cache        *reportCache
	language     *sitter.Language
	languageName string

	disabled     map[validate.Code]bool
	ignoreRules  []glob.Glob
	watchExclude []glob.Glob

	updateMu sync.RWMutex
	onUpdate func(Update)
}

// New builds a Service from configuration, opening the history store when
// history is enabled.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	deps := Dependencies{}
	if cfg.History.Enabled {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		paths, err := config.ResolvePaths(cfg, cwd)
		if err != nil {
			return nil, err
		}
		store, err := history.Open(paths.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		deps.History = store
	}
	svc, err := NewWithDependencies(cfg, deps)
	if err != nil && deps.History != nil {
		_ = deps.History.Close()
	}
	return svc, err
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	ignore, err := compileGlobs(cfg.Diagnostics.IgnoreRules)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeConfigError, "compile diagnostics.ignore_rules")
	}
	watchExclude, err := compileGlobs(cfg.Watch.Exclude)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeConfigError, "compile watch.exclude")
	}
	disabled := make(map[validate.Code]bool, len(cfg.Diagnostics.Disable))
	for _, code := range cfg.Diagnostics.Disable {
		disabled[validate.Code(strings.TrimSpace(code))] = true
	}

	lang := deps.Language
	langName := strings.TrimSpace(cfg.Language.Name)
	if lang == nil && langName != "" {
		lang, err = language.Lookup(langName)
		if err != nil {
			return nil, err
		}
	}

	clock := deps.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	opts := validatorOptions(cfg)
	return &Service{
		Config:       cfg,
		validator:    validate.New(opts),
		history:      deps.History,
		clock:        clock,
		cache:        newReportCache(cfg.Cache.Reports, fingerprint(cfg, opts)),
		language:     lang,
		languageName: langName,
		disabled:     disabled,
		ignoreRules:  ignore,
		watchExclude: watchExclude,
	}, nil
}

func validatorOptions(cfg *config.Config) validate.Options {
	return validate.Options{
		AuxiliaryRoots:  cfg.Validate.AuxiliaryRootsEnabled(),
		ExternalSymbols: cfg.Validate.ExternalSymbolsEnabled(),
		Parallel:        cfg.Validate.Parallel,
		CheckMetadata:   cfg.Validate.CheckMetadata,
		MaxSuggestions:  cfg.Validate.MaxSuggestions,
	}
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Service) Close() error {
	if s == nil || s.history == nil {
		return nil
	}
	return s.history.Close()
}

func (s *Service) SetUpdateHandler(fn func(Update)) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	s.onUpdate = fn
}

func (s *Service) emitUpdate(u Update) {
	s.updateMu.RLock()
	fn := s.onUpdate
	s.updateMu.RUnlock()
	if fn != nil {
		fn(u)
	}
}

// ValidateFile reads path and validates it. The returned Result is non-nil
// whenever the file could be read, including when decoding or validation
// failed; in that case the error is also returned.
func (s *Service) ValidateFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := coreerrors.CodeInternal
		if os.IsNotExist(err) {
			code = coreerrors.CodeNotFound
		}
		return nil, coreerrors.AddContext(coreerrors.Wrap(err, code, "read grammar file"), coreerrors.CtxPath, path)
	}
	return s.ValidateBytes(ctx, path, data, grammarfile.FormatFromPath(path))
}

// ValidateBytes validates an in-memory grammar document. path only labels the
// result.
func (s *Service) ValidateBytes(ctx context.Context, path string, data []byte, format grammarfile.Format) (*Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.ValidateBytes",
		trace.WithAttributes(attribute.String("path", path), attribute.String("format", string(format))))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	key, contentHash := s.cache.key(data, format)
	res := &Result{Path: path, ContentHash: contentHash}

	if entry, ok := s.cache.get(key); ok {
		observability.ReportCacheHits.Inc()
		res.Grammar, res.Report, res.Err, res.Cached = entry.grammar, entry.report, entry.err, true
	} else {
		res.Grammar, res.Report, res.Err = s.run(ctx, data, format)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.cache.add(key, cacheEntry{grammar: res.Grammar, report: res.Report, err: res.Err})
	}
	if res.Err != nil {
		res.Err = fmt.Errorf("%s: %w", path, res.Err)
	}
	res.Duration = time.Since(start)

	outcome := res.Outcome()
	observability.ValidationsTotal.WithLabelValues(string(outcome)).Inc()
	span.SetAttributes(attribute.String("outcome", string(outcome)), attribute.Bool("cached", res.Cached))
	if res.Err != nil {
		span.RecordError(res.Err)
	}

	s.record(ctx, res)
	s.emitUpdate(Update{Result: res, At: s.clock.Now()})
	slog.Debug("validated grammar", "path", path, "outcome", outcome, "cached", res.Cached, "duration", res.Duration)
	return res, res.Err
}

func (s *Service) run(ctx context.Context, data []byte, format grammarfile.Format) (*grammar.Grammar, *validate.Report, error) {
	g, err := grammarfile.Decode(data, format)
	if err != nil {
		return nil, nil, err
	}
	report, err := s.validator.Validate(ctx, g)
	if err != nil {
		return g, nil, err
	}
	if s.language != nil {
		report.Add(language.CrossCheck(g, s.languageName, s.language)...)
	}
	return g, s.filter(report), nil
}

// LoadGrammar decodes a grammar file without validating it.
func (s *Service) LoadGrammar(ctx context.Context, path string) (*grammar.Grammar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return grammarfile.Load(path)
}
