package validate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	coreerrors "sapling/internal/core/errors"
	g "sapling/internal/engine/grammar"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arithmetic() *g.Grammar {
	return g.New("arith").
		Define("program", g.Repeat(g.Sym("expr"))).
		Define("expr", g.Choice(
			g.PrecLeft(1, g.Seq(g.Sym("expr"), g.Str("+"), g.Sym("expr"))),
			g.PrecLeft(2, g.Seq(g.Sym("expr"), g.Str("*"), g.Sym("expr"))),
			g.Sym("number"),
		)).
		Define("number", g.Pattern(`\d+`))
}

func TestValidate_ResolvedGrammarSucceeds(t *testing.T) {
	report, err := Validate(arithmetic())
	require.NoError(t, err)
	assert.Equal(t, "arith", report.Grammar)
	assert.Equal(t, "program", report.EntryPoint)
	assert.Empty(t, report.ByCode(CodeUnreachableRule))
}

func TestValidate_UndefinedSymbol(t *testing.T) {
	gr := g.New("broken").
		Define("program", g.Seq(g.Sym("statement"), g.Str(";"))).
		Define("statment", g.Blank())

	report, err := Validate(gr)
	require.Error(t, err)
	assert.Nil(t, report)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "program", verr.Rule)
	assert.Equal(t, "statement", verr.Symbol)
	assert.Equal(t, []string{"statment"}, verr.Suggestions)
	assert.Contains(t, err.Error(), "program")
	assert.Contains(t, err.Error(), "statement")
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeValidationError))
	assert.False(t, coreerrors.IsCode(err, coreerrors.CodeDecodeError))
}

func TestValidate_UndefinedSymbolInEveryWrapper(t *testing.T) {
	wrappers := map[string]func(*g.Rule) *g.Rule{
		"choice":          func(r *g.Rule) *g.Rule { return g.Choice(g.Blank(), r) },
		"seq":             func(r *g.Rule) *g.Rule { return g.Seq(g.Str("x"), r) },
		"repeat":          g.Repeat,
		"repeat1":         g.Repeat1,
		"prec":            func(r *g.Rule) *g.Rule { return g.Prec(1, r) },
		"prec_left":       func(r *g.Rule) *g.Rule { return g.PrecLeft(1, r) },
		"prec_right":      func(r *g.Rule) *g.Rule { return g.PrecRight(1, r) },
		"prec_dynamic":    func(r *g.Rule) *g.Rule { return g.PrecDynamic(1, r) },
		"field":           func(r *g.Rule) *g.Rule { return g.Field("f", r) },
		"alias":           func(r *g.Rule) *g.Rule { return g.Alias("a", true, r) },
		"token":           g.Token,
		"immediate_token": g.ImmediateToken,
		"reserved":        func(r *g.Rule) *g.Rule { return g.Reserved("global", r) },
	}
	for name, wrap := range wrappers {
		t.Run(name, func(t *testing.T) {
			gr := g.New("w").Define("root", wrap(g.Sym("ghost")))
			_, err := Validate(gr)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "root", verr.Rule)
			assert.Equal(t, "ghost", verr.Symbol)
		})
	}
}

func TestValidate_StopsAtFirstUndefined(t *testing.T) {
	gr := g.New("two").
		Define("a", g.Seq(g.Sym("first_missing"), g.Sym("second_missing"))).
		Define("b", g.Sym("third_missing"))

	_, err := Validate(gr)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "first_missing", verr.Symbol)
}

func TestValidate_AuxiliaryLists(t *testing.T) {
	gr := g.New("aux").Define("root", g.Blank())
	gr.Externals = []*g.Rule{g.Sym("heredoc_start"), g.Str("\n")}
	gr.Extras = []*g.Rule{g.Pattern(`\s`), g.Sym("heredoc_start")}

	_, err := Validate(gr)
	require.NoError(t, err, "extras may use external tokens")

	gr.Extras = append(gr.Extras, g.Sym("comment"))
	_, err = Validate(gr)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "extras", verr.Rule)
	assert.Equal(t, "comment", verr.Symbol)

	gr.Extras = nil
	gr.Reserved = map[string][]*g.Rule{"global": {g.Str("if"), g.Sym("kw")}}
	_, err = Validate(gr)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "reserved.global", verr.Rule)
}

func TestValidate_ExternalSymbolsOption(t *testing.T) {
	gr := g.New("ext").Define("root", g.Seq(g.Sym("indent"), g.Str("x")))
	gr.Externals = []*g.Rule{g.Sym("indent")}

	_, err := Validate(gr)
	require.Error(t, err)

	_, err = New(Options{ExternalSymbols: true}).Validate(context.Background(), gr)
	require.NoError(t, err)
}

func TestValidate_NoRules(t *testing.T) {
	_, err := Validate(g.New("empty"))
	require.ErrorIs(t, err, ErrNoRules)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeValidationError))

	_, err = Validate(nil)
	require.ErrorIs(t, err, ErrNoRules)
}

func TestReachability(t *testing.T) {
	build := func() *g.Grammar {
		return g.New("reach").
			Define("A", g.Sym("B")).
			Define("B", g.Blank()).
			Define("C", g.Blank())
	}

	report, err := Validate(build())
	require.NoError(t, err)
	assert.True(t, report.HasCode(CodeUnreachableRule, "C"))
	assert.False(t, report.HasCode(CodeUnreachableRule, "B"))
	assert.False(t, report.HasCode(CodeUnreachableRule, "A"))

	inlined := build()
	inlined.Inline = []string{"C"}
	report, err = Validate(inlined)
	require.NoError(t, err)
	assert.Empty(t, report.ByCode(CodeUnreachableRule))
}

func TestReachability_EntryIsFirstDeclared(t *testing.T) {
	gr := g.New("order").
		Define("zeta", g.Sym("alpha")).
		Define("alpha", g.Blank()).
		Define("mid", g.Blank())

	for i := 0; i < 20; i++ {
		report, err := Validate(gr)
		require.NoError(t, err)
		assert.Equal(t, "zeta", report.EntryPoint)
		require.Len(t, report.ByCode(CodeUnreachableRule), 1)
		assert.Equal(t, "mid", report.ByCode(CodeUnreachableRule)[0].Rule)
	}
}

func TestReachability_AuxiliaryRoots(t *testing.T) {
	gr := g.New("aux").
		Define("source", g.Blank()).
		Define("comment", g.Pattern(`//.*`)).
		Define("identifier", g.Pattern(`[a-z]+`)).
		Define("_expression", g.Blank())
	gr.Extras = []*g.Rule{g.Sym("comment")}
	gr.Word = "identifier"
	gr.Supertypes = []string{"_expression"}

	report, err := Validate(gr)
	require.NoError(t, err)
	assert.Len(t, report.ByCode(CodeUnreachableRule), 3)

	report, err = New(Options{AuxiliaryRoots: true}).Validate(context.Background(), gr)
	require.NoError(t, err)
	assert.Empty(t, report.ByCode(CodeUnreachableRule))
}

func TestLeftRecursion(t *testing.T) {
	gr := g.New("lr").
		Define("E", g.Choice(g.Seq(g.Sym("E"), g.Str("+"), g.Sym("E")), g.Str("n"))).
		Define("F", g.Seq(g.Str("("), g.Sym("F"), g.Str(")"), g.Sym("E")))

	report, err := Validate(gr)
	require.NoError(t, err)
	assert.True(t, report.HasCode(CodeLeftRecursion, "E"))
	assert.False(t, report.HasCode(CodeLeftRecursion, "F"))
	for _, d := range report.ByCode(CodeLeftRecursion) {
		assert.Equal(t, SeverityInfo, d.Severity)
	}
}

func TestHasImmediateLeftRecursion(t *testing.T) {
	tests := []struct {
		name string
		rule *g.Rule
		want bool
	}{
		{"bare symbol", g.Sym("t"), true},
		{"other symbol", g.Sym("u"), false},
		{"seq first", g.Seq(g.Sym("t"), g.Str("x")), true},
		{"seq second", g.Seq(g.Str("x"), g.Sym("t")), false},
		{"empty seq", g.Seq(), false},
		{"choice any", g.Choice(g.Str("x"), g.Sym("t")), true},
		{"prec", g.Prec(3, g.Sym("t")), true},
		{"prec left", g.PrecLeft(1, g.Seq(g.Sym("t"), g.Str("+"))), true},
		{"prec right", g.PrecRight(1, g.Sym("t")), true},
		{"prec dynamic", g.PrecDynamic(1, g.Sym("t")), true},
		{"field", g.Field("lhs", g.Sym("t")), true},
		{"alias", g.Alias("x", false, g.Sym("t")), true},
		{"reserved", g.Reserved("ctx", g.Sym("t")), true},
		{"repeat", g.Repeat(g.Sym("t")), false},
		{"repeat1", g.Repeat1(g.Sym("t")), false},
		{"token", g.Token(g.Sym("t")), false},
		{"immediate token", g.ImmediateToken(g.Sym("t")), false},
		{"terminal", g.Str("t"), false},
		{"blank", g.Blank(), false},
		{"nested", g.Choice(g.Str("a"), g.Field("x", g.Seq(g.PrecLeft(2, g.Sym("t")), g.Str("b")))), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasImmediateLeftRecursion(tt.rule, "t"))
		})
	}
}

func TestPrecedence(t *testing.T) {
	gr := g.New("prec").
		Define("G", g.Choice(
			g.PrecLeft(1, g.Seq(g.Sym("atom"), g.Str("+"), g.Sym("atom"))),
			g.PrecLeft(2, g.Seq(g.Sym("atom"), g.Str("*"), g.Sym("atom"))),
		)).
		Define("H", g.Choice(
			g.PrecLeft(1, g.Seq(g.Sym("atom"), g.Str("-"), g.Sym("atom"))),
			g.PrecLeft(1, g.Seq(g.Sym("atom"), g.Str("/"), g.Sym("atom"))),
		)).
		Define("atom", g.Pattern(`\w+`))

	report, err := Validate(gr)
	require.NoError(t, err)

	diags := report.ByCode(CodeMultiplePrecedence)
	require.Len(t, diags, 1)
	assert.Equal(t, "G", diags[0].Rule)
	assert.Equal(t, []int{1, 2}, diags[0].Levels)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
}

func TestPrecedenceLevels(t *testing.T) {
	tests := []struct {
		name string
		rule *g.Rule
		want []int
	}{
		{"none", g.Seq(g.Str("a")), nil},
		{"order found", g.Choice(g.PrecRight(5, g.Blank()), g.Prec(-1, g.Blank()), g.PrecLeft(5, g.Blank())), []int{5, -1}},
		{"nested wrapper", g.Prec(1, g.Repeat(g.Field("x", g.Alias("y", true, g.PrecLeft(2, g.Blank()))))), []int{1, 2}},
		{"dynamic ignored", g.Choice(g.Prec(1, g.Blank()), g.PrecDynamic(7, g.Blank())), []int{1}},
		{"named ignored", g.Choice(g.Prec(1, g.Blank()), g.PrecNamed(g.TypePrecLeft, "additive", g.Blank())), []int{1}},
		{"through token", g.Token(g.Choice(g.Prec(1, g.Str("a")), g.Prec(2, g.Str("b")))), []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, precedenceLevels(tt.rule)); diff != "" {
				t.Errorf("levels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_SelfReferenceTerminates(t *testing.T) {
	report, err := Validate(g.New("self").Define("H", g.Sym("H")))
	require.NoError(t, err)
	assert.True(t, report.HasCode(CodeLeftRecursion, "H"))
}

func TestValidate_DeepNesting(t *testing.T) {
	rule := g.Sym("leaf")
	for i := 0; i < 100000; i++ {
		rule = g.Seq(g.PrecLeft(i%2, rule), g.Str("x"))
	}
	gr := g.New("deep").Define("root", rule).Define("leaf", g.Blank())

	report, err := Validate(gr)
	require.NoError(t, err)
	assert.True(t, report.HasCode(CodeMultiplePrecedence, "root"))
}

func TestValidate_Idempotent(t *testing.T) {
	gr := arithmetic().Define("orphan", g.Sym("orphan"))

	first, err1 := Validate(gr)
	second, err2 := Validate(gr)
	require.NoError(t, err1)
	require.NoError(t, err2)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reports differ (-first +second):\n%s", diff)
	}
}

func TestValidate_DiagnosticOrder(t *testing.T) {
	gr := arithmetic().
		Define("unused_b", g.Choice(g.Sym("unused_b"), g.Str("b"))).
		Define("unused_a", g.Blank())

	report, err := Validate(gr)
	require.NoError(t, err)

	var got []string
	for _, d := range report.Diagnostics {
		got = append(got, fmt.Sprintf("%s:%s", d.Code, d.Rule))
	}
	want := []string{
		"unreachable-rule:unused_b",
		"unreachable-rule:unused_a",
		"left-recursion:expr",
		"left-recursion:unused_b",
		"multiple-precedence:expr",
	}
	assert.Equal(t, want, got)
}

func TestValidate_ParallelMatchesSequential(t *testing.T) {
	gr := arithmetic().
		Define("unused", g.Choice(g.PrecRight(3, g.Sym("unused")), g.Prec(4, g.Str("u"))))
	gr.Inline = []string{"missing_inline"}

	seq, err := New(Options{CheckMetadata: true}).Validate(context.Background(), gr)
	require.NoError(t, err)
	par, err := New(Options{CheckMetadata: true, Parallel: true}).Validate(context.Background(), gr)
	require.NoError(t, err)

	if diff := cmp.Diff(seq, par); diff != "" {
		t.Errorf("parallel report differs (-seq +par):\n%s", diff)
	}
}

func TestValidate_Metadata(t *testing.T) {
	gr := arithmetic()
	gr.Externals = []*g.Rule{g.Sym("heredoc")}
	gr.Inline = []string{"expr", "gone"}
	gr.Word = "ident"
	gr.Supertypes = []string{"heredoc"}
	gr.Conflicts = [][]string{{"expr", "nope"}}
	gr.Precedences = [][]g.PrecedenceEntry{{g.PrecedenceName("sum"), g.PrecedenceRef("missing_ref")}}

	report, err := Validate(gr)
	require.NoError(t, err)
	assert.Empty(t, report.ByCode(CodeDanglingReference), "off by default")

	report, err = New(Options{CheckMetadata: true}).Validate(context.Background(), gr)
	require.NoError(t, err)
	var dangling []string
	for _, d := range report.ByCode(CodeDanglingReference) {
		dangling = append(dangling, d.Related[0]+":"+d.Rule)
	}
	assert.Equal(t, []string{"inline:gone", "word:ident", "conflicts:nope", "precedences:missing_ref"}, dangling)
}

func TestValidate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(DefaultOptions()).Validate(ctx, arithmetic())
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidate_DoesNotMutate(t *testing.T) {
	gr := arithmetic()
	before := make(map[string]string)
	gr.Rules.Each(func(name string, r *g.Rule) bool {
		before[name] = r.String()
		return true
	})

	_, err := Validate(gr)
	require.NoError(t, err)

	gr.Rules.Each(func(name string, r *g.Rule) bool {
		assert.Equal(t, before[name], r.String(), name)
		return true
	})
	assert.Equal(t, []string{"program", "expr", "number"}, gr.Rules.Names())
}
