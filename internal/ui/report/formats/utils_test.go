package formats

import (
	"testing"

	"sapling/internal/engine/graph"

	"github.com/stretchr/testify/assert"
)

func TestRuleLabel(t *testing.T) {
	t.Parallel()

	metrics := map[string]graph.RuleMetrics{
		"expression": {Depth: 2, FanIn: 3, FanOut: 4},
	}
	assert.Equal(t, "expression\\n(d=2 in=3 out=4)", ruleLabel("expression", metrics))
	assert.Equal(t, "number", ruleLabel("number", metrics))
	assert.Equal(t, "number", ruleLabel("number", nil))
}

func TestSanitizeID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: "r"},
		{name: "Plain", input: "expression", expected: "expression"},
		{name: "Hidden", input: "_statement", expected: "r_statement"},
		{name: "Digit", input: "1st", expected: "r1st"},
		{name: "Punctuation", input: "a-b.c", expected: "a_b_c"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, sanitizeID(tc.input))
		})
	}
}

func TestMakeIDs_Distinct(t *testing.T) {
	t.Parallel()

	ids := makeIDs([]string{"a-b", "a_b", "a.b"})
	assert.Equal(t, "a_b", ids["a-b"])
	assert.Equal(t, "a_b_2", ids["a_b"])
	assert.Equal(t, "a_b_3", ids["a.b"])
}

func TestRelativeURI(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "grammars/c.json", relativeURI("/work", "/work/grammars/c.json"))
	assert.Equal(t, "grammars/c.json", relativeURI("", "grammars/c.json"))
	assert.Equal(t, "/elsewhere/c.json", relativeURI("", "/elsewhere/c.json"))
}
