package app

import (
	"context"
	"fmt"

	coreerrors "sapling/internal/core/errors"
	"sapling/internal/engine/grammar"
	"sapling/internal/engine/graph"
)

// RuleGraph decodes path and builds its rule reference graph.
func (s *Service) RuleGraph(ctx context.Context, path string) (*grammar.Grammar, *graph.Graph, error) {
	g, err := s.LoadGrammar(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return g, graph.Build(g), nil
}

// TraceReferenceChain finds the shortest chain of references from one rule
// to another.
func (s *Service) TraceReferenceChain(ctx context.Context, path, from, to string) ([]string, error) {
	_, rg, err := s.RuleGraph(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{from, to} {
		if !rg.Has(name) {
			err := coreerrors.Newf(coreerrors.CodeNotFound, "rule '%s' is not defined", name)
			return nil, coreerrors.AddContext(err, coreerrors.CtxRule, name)
		}
	}
	chain, ok := rg.FindReferenceChain(from, to)
	if !ok {
		return nil, coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeNotFound, fmt.Sprintf("no reference chain from '%s' to '%s'", from, to)),
			coreerrors.CtxPath, path)
	}
	return chain, nil
}

// Referrers reports which rules depend on rule.
func (s *Service) Referrers(ctx context.Context, path, rule string) (graph.ReferenceReport, error) {
	_, rg, err := s.RuleGraph(ctx, path)
	if err != nil {
		return graph.ReferenceReport{}, err
	}
	report, err := rg.Referrers(rule)
	if err != nil {
		return graph.ReferenceReport{}, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeNotFound, "referrers"), coreerrors.CtxRule, rule)
	}
	return report, nil
}
