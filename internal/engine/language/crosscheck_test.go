package language

import (
	"testing"

	coreerrors "sapling/internal/core/errors"
	g "sapling/internal/engine/grammar"
	"sapling/internal/engine/validate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	lang, err := Lookup("Go")
	require.NoError(t, err)
	require.NotNil(t, lang)

	again, err := Lookup("go")
	require.NoError(t, err)
	assert.Same(t, lang, again)

	_, err = Lookup("cobol")
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotSupported))
	assert.Contains(t, Names(), "typescript")
}

func TestCrossCheck_Go(t *testing.T) {
	lang, err := Lookup("go")
	require.NoError(t, err)

	gr := g.New("go").
		Define("source_file", g.Repeat(g.Sym("function_declaration"))).
		Define("function_declaration", g.Seq(
			g.Str("func"),
			g.Field("name", g.Sym("identifier")),
			g.Field("flavour", g.Sym("identifier")),
		)).
		Define("identifier", g.Pattern(`[a-z]+`)).
		Define("_hidden", g.Blank()).
		Define("spliced", g.Blank()).
		Define("made_up_node", g.Alias("another_made_up", true, g.Sym("identifier")))
	gr.Inline = []string{"spliced"}

	diags := CrossCheck(gr, "go", lang)

	var keys []string
	for _, d := range diags {
		assert.Equal(t, validate.CodeLanguageMismatch, d.Code)
		assert.Equal(t, []string{"go"}, d.Related)
		keys = append(keys, d.Rule+"|"+d.Message)
	}
	assert.Equal(t, []string{
		"function_declaration|field 'flavour' used in rule 'function_declaration' is not a field of language 'go'",
		"made_up_node|rule 'made_up_node' is not a named node kind in language 'go'",
		"made_up_node|alias 'another_made_up' in rule 'made_up_node' is not a named node kind in language 'go'",
	}, keys)
}

func TestCrossCheck_Nil(t *testing.T) {
	assert.Nil(t, CrossCheck(nil, "go", nil))
}
