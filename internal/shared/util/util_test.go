package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./grammars/c.json  ", expected: "grammars/c.json"},
		{name: "Relative", input: "grammars/../c.json", expected: "c.json"},
		{name: "Backslashes", input: `grammars\c.json`, expected: "grammars/c.json"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, NormalizePatternPath(tc.input))
		})
	}
}

func TestIsGrammarFile(t *testing.T) {
	assert.True(t, IsGrammarFile("grammar.json"))
	assert.True(t, IsGrammarFile("dir/grammar.YAML"))
	assert.True(t, IsGrammarFile("grammar.yml"))
	assert.False(t, IsGrammarFile("grammar.js"))
	assert.False(t, IsGrammarFile("README"))
}

func TestSortedStringKeys(t *testing.T) {
	keys := SortedStringKeys(map[string]int{"warning": 2, "info": 1, "error": 0})
	assert.Equal(t, []string{"error", "info", "warning"}, keys)
	assert.Empty(t, SortedStringKeys(map[string]bool{}))
}

func TestWriteFileWithDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "report.json")
	require.NoError(t, WriteFileWithDirs(path, []byte("{}"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
