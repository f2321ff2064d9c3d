// # internal/engine/graph/graph_test.go
package graph

import (
	"errors"
	"testing"

	"sapling/internal/engine/grammar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exprGrammar() *grammar.Grammar {
	return grammar.New("calc").
		Define("source_file", grammar.Repeat(grammar.Sym("statement"))).
		Define("statement", grammar.Seq(grammar.Sym("expression"), grammar.Str(";"))).
		Define("expression", grammar.Choice(
			grammar.Sym("binary"),
			grammar.Sym("number"),
			grammar.Sym("number"),
		)).
		Define("binary", grammar.PrecLeft(1, grammar.Seq(
			grammar.Field("left", grammar.Sym("expression")),
			grammar.Str("+"),
			grammar.Field("right", grammar.Sym("expression")),
		))).
		Define("number", grammar.Pattern(`\d+`)).
		Define("comment", grammar.Pattern(`#.*`))
}

func TestBuild_EdgesAndReferrers(t *testing.T) {
	g := Build(exprGrammar())

	assert.Equal(t, 6, g.NodeCount())
	assert.Equal(t, []string{"binary", "number"}, g.Edges("expression"), "edges are distinct and ordered")
	assert.Equal(t, []string{"expression"}, g.Edges("binary"))
	assert.Equal(t, []string{"statement", "binary"}, g.DirectReferrers("expression"))
	assert.Empty(t, g.Edges("number"))
	assert.Equal(t, 5, g.EdgeCount())
}

func TestBuild_UndeclaredTargets(t *testing.T) {
	gr := grammar.New("broken").
		Define("a", grammar.Seq(grammar.Sym("b"), grammar.Sym("missing")))
	g := Build(gr)

	assert.Empty(t, g.Edges("a"))
	assert.Equal(t, []string{"b", "missing"}, g.Undeclared("a"))
}

func TestReachable(t *testing.T) {
	g := Build(exprGrammar())

	visited := g.Reachable("source_file")
	for _, name := range []string{"source_file", "statement", "expression", "binary", "number"} {
		assert.True(t, visited[name], name)
	}
	assert.False(t, visited["comment"])
	assert.Equal(t, []string{"comment"}, g.Unreachable("source_file"))

	assert.Empty(t, g.Reachable("not_a_rule"))
	assert.Empty(t, g.Unreachable("source_file", "comment"))
}

func TestReachable_SelfLoopTerminates(t *testing.T) {
	g := Build(grammar.New("loop").Define("h", grammar.Sym("h")))
	assert.Equal(t, map[string]bool{"h": true}, g.Reachable("h"))
}

func TestReferrers(t *testing.T) {
	g := Build(exprGrammar())

	report, err := g.Referrers("number")
	require.NoError(t, err)
	assert.Equal(t, []string{"expression"}, report.DirectReferrers)
	assert.Equal(t, []string{"source_file", "statement", "binary"}, report.TransitiveReferrers)

	_, err = g.Referrers("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRuleNotFound))
}

func TestMetrics(t *testing.T) {
	g := Build(exprGrammar())
	m := g.Metrics()

	assert.Equal(t, 2, m["expression"].FanIn)
	assert.Equal(t, 2, m["expression"].FanOut)
	assert.True(t, m["expression"].Recursive)
	assert.True(t, m["binary"].Recursive)
	assert.False(t, m["number"].Recursive)
	assert.Equal(t, 0, m["number"].Depth)
	assert.Equal(t, 1, m["expression"].Depth, "expression/binary group reaches number")
	assert.Equal(t, 3, m["source_file"].Depth)

	top := g.TopImportance(1)
	require.Len(t, top, 1)
	assert.Equal(t, "expression", top[0].Rule)
	assert.Nil(t, g.TopImportance(0))
}
