// # internal/engine/validate/validator.go
package validate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sapling/internal/engine/grammar"
	"sapling/internal/engine/graph"
	"sapling/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	// AuxiliaryRoots also starts the reachability walk from symbols used by
	// extras and externals, the word rule and supertypes.
	AuxiliaryRoots bool
	// ExternalSymbols lets rule bodies reference tokens declared only in
	// externals.
	ExternalSymbols bool
	// Parallel runs the advisory passes concurrently.
	Parallel bool
	// CheckMetadata reports names in inline, word, supertypes, conflicts and
	// precedences that resolve to nothing.
	CheckMetadata bool
	// MaxSuggestions bounds the "did you mean" list of a ValidationError.
	MaxSuggestions int
}

func DefaultOptions() Options {
	return Options{MaxSuggestions: 3}
}

type Validator struct {
	opts Options
}

func New(opts Options) *Validator {
	if opts.MaxSuggestions < 0 {
		opts.MaxSuggestions = 0
	}
	return &Validator{opts: opts}
}

// Validate checks g with default options.
func Validate(g *grammar.Grammar) (*Report, error) {
	return New(DefaultOptions()).Validate(context.Background(), g)
}

type pass struct {
	name string
	run  func() []Diagnostic
}

// Validate rejects g on the first undefined symbol and otherwise returns the
// advisory diagnostics of the remaining passes. g is never modified.
func (v *Validator) Validate(ctx context.Context, g *grammar.Grammar) (*Report, error) {
	if g == nil || g.Rules == nil {
		return nil, ErrNoRules
	}
	ctx, span := observability.Tracer.Start(ctx, "validate.Validate",
		trace.WithAttributes(attribute.String("grammar", g.Name)))
	defer span.End()

	var err error
	v.timed(ctx, "undefined_symbols", func() {
		err = checkUndefinedSymbols(g, v.opts)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	entry, ok := g.EntryPoint()
	if !ok {
		return nil, ErrNoRules
	}

	report := &Report{Grammar: g.Name, EntryPoint: entry}
	rg := graph.Build(g)

	passes := []pass{
		{"reachability", func() []Diagnostic { return checkReachability(g, rg, entry, v.opts) }},
		{"left_recursion", func() []Diagnostic { return checkLeftRecursion(g) }},
		{"precedence", func() []Diagnostic { return checkPrecedence(g) }},
	}
	if v.opts.CheckMetadata {
		passes = append(passes, pass{"metadata", func() []Diagnostic { return checkMetadata(g) }})
	}

	results := make([][]Diagnostic, len(passes))
	if v.opts.Parallel {
		var wg sync.WaitGroup
		for i, p := range passes {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v.timed(ctx, p.name, func() { results[i] = p.run() })
			}()
		}
		wg.Wait()
	} else {
		for i, p := range passes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			v.timed(ctx, p.name, func() { results[i] = p.run() })
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, diags := range results {
		report.Add(diags...)
	}
	for _, d := range report.Diagnostics {
		observability.DiagnosticsTotal.WithLabelValues(string(d.Code)).Inc()
	}
	span.SetAttributes(attribute.Int("diagnostics", report.Len()))
	slog.Debug("grammar validated", "grammar", g.Name, "rules", g.Rules.Len(), "diagnostics", report.Len())
	return report, nil
}

func (v *Validator) timed(ctx context.Context, name string, fn func()) {
	_, span := observability.Tracer.Start(ctx, "validate."+name)
	defer span.End()

	start := time.Now()
	fn()
	observability.PassDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
