// # internal/ui/report/formats/sarif_test.go
package formats

import (
	"encoding/json"
	"testing"

	"sapling/internal/engine/validate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeSARIF(t *testing.T, data []byte) sarifReport {
	t.Helper()
	var report sarifReport
	require.NoError(t, json.Unmarshal(data, &report), "output is not valid JSON")
	return report
}

func TestGenerateSARIF_EmptyResults(t *testing.T) {
	data, err := GenerateSARIF("", nil)
	require.NoError(t, err)

	report := decodeSARIF(t, data)
	assert.Equal(t, sarifSchema, report.Schema)
	assert.Equal(t, sarifVersion, report.Version)
	require.Len(t, report.Runs, 1)
	assert.Empty(t, report.Runs[0].Results)
	assert.Empty(t, report.Runs[0].Tool.Driver.Rules)
	assert.Equal(t, "sapling", report.Runs[0].Tool.Driver.Name)
}

func TestGenerateSARIF_Diagnostics(t *testing.T) {
	files := []File{{
		Path:    "/project/grammars/arith.json",
		Grammar: "arith",
		Diagnostics: []validate.Diagnostic{
			{Code: validate.CodeUnreachableRule, Severity: validate.SeverityWarning, Rule: "orphan", Message: "unreachable rule 'orphan'"},
			{Code: validate.CodeLeftRecursion, Severity: validate.SeverityInfo, Rule: "expr", Message: "rule 'expr' has left recursion"},
		},
	}}

	data, err := GenerateSARIF("/project", files)
	require.NoError(t, err)
	report := decodeSARIF(t, data)

	results := report.Runs[0].Results
	require.Len(t, results, 2)

	assert.Equal(t, ruleIDUnreachable, results[0].RuleID)
	assert.Equal(t, "warning", results[0].Level)
	require.Len(t, results[0].Locations, 1)
	loc := results[0].Locations[0]
	assert.Equal(t, "grammars/arith.json", loc.PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, "%SRCROOT%", loc.PhysicalLocation.ArtifactLocation.URIBaseID)
	assert.Equal(t, []sarifLogicalLocation{{Name: "orphan", Kind: "member"}}, loc.LogicalLocations)

	assert.Equal(t, ruleIDLeftRecursion, results[1].RuleID)
	assert.Equal(t, "note", results[1].Level)

	rules := report.Runs[0].Tool.Driver.Rules
	require.Len(t, rules, 2)
	assert.Equal(t, ruleIDUnreachable, rules[0].ID)
	assert.Equal(t, ruleIDLeftRecursion, rules[1].ID)
}

func TestGenerateSARIF_Failures(t *testing.T) {
	files := []File{
		{Path: "bad.json", Failure: &Failure{Code: "DECODE_ERROR", Message: "unexpected end of JSON input"}},
		{Path: "undef.json", Failure: &Failure{
			Code:    "VALIDATION_ERROR",
			Message: "undefined symbol 'itme' referenced in rule 'document'",
			Rule:    "document",
			Symbol:  "itme",
		}},
	}

	data, err := GenerateSARIF("", files)
	require.NoError(t, err)
	report := decodeSARIF(t, data)

	results := report.Runs[0].Results
	require.Len(t, results, 2)
	assert.Equal(t, ruleIDDecode, results[0].RuleID)
	assert.Empty(t, results[0].Locations[0].LogicalLocations)
	assert.Equal(t, ruleIDUndefinedSymbol, results[1].RuleID)
	assert.Equal(t, "error", results[1].Level)
	assert.Equal(t, "document", results[1].Locations[0].LogicalLocations[0].Name)
}

func TestSeverityToLevel(t *testing.T) {
	assert.Equal(t, "warning", severityToLevel(validate.SeverityWarning))
	assert.Equal(t, "note", severityToLevel(validate.SeverityInfo))
}
