package graph

import (
	"fmt"
	"testing"

	"sapling/internal/engine/grammar"
)

func ringGrammar(n int) *grammar.Grammar {
	g := grammar.New("ring")
	for i := 0; i < n; i++ {
		g.Define(fmt.Sprintf("rule%d", i), grammar.Seq(
			grammar.Str("("),
			grammar.Sym(fmt.Sprintf("rule%d", (i+1)%n)),
			grammar.Str(")"),
		))
	}
	return g
}

func BenchmarkBuild(b *testing.B) {
	g := ringGrammar(500)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Build(g)
	}
}

func BenchmarkRecursionGroups(b *testing.B) {
	gr := Build(ringGrammar(500))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = gr.RecursionGroups()
	}
}
