// # internal/ui/report/formats/sarif.go
package formats

import (
	"encoding/json"

	"sapling/internal/engine/validate"
	"sapling/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDDecode            = "SAP000"
	ruleIDUndefinedSymbol   = "SAP001"
	ruleIDUnreachable       = "SAP002"
	ruleIDLeftRecursion     = "SAP003"
	ruleIDPrecedence        = "SAP004"
	ruleIDDanglingReference = "SAP005"
	ruleIDLanguageMismatch  = "SAP006"
)

// sarifReport is the top-level SARIF document.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation  `json:"physicalLocation"`
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

// sarifLogicalLocation names the grammar rule a result belongs to; grammar
// files carry no line information once decoded.
type sarifLogicalLocation struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type ruleInfo struct {
	id    string
	name  string
	desc  string
	level string
}

var ruleCatalog = []ruleInfo{
	{ruleIDDecode, "DecodeError", "The grammar file could not be decoded.", "error"},
	{ruleIDUndefinedSymbol, "UndefinedSymbol", "A rule references a symbol that is not defined.", "error"},
	{ruleIDUnreachable, "UnreachableRule", "A rule cannot be reached from the entry point.", "warning"},
	{ruleIDLeftRecursion, "LeftRecursion", "A rule is immediately left-recursive.", "note"},
	{ruleIDPrecedence, "MultiplePrecedence", "A rule uses more than one precedence level.", "warning"},
	{ruleIDDanglingReference, "DanglingReference", "Grammar metadata names something that is not a rule.", "warning"},
	{ruleIDLanguageMismatch, "LanguageMismatch", "The grammar disagrees with the compiled language.", "warning"},
}

var ruleIDByCode = map[validate.Code]string{
	validate.CodeUnreachableRule:    ruleIDUnreachable,
	validate.CodeLeftRecursion:      ruleIDLeftRecursion,
	validate.CodeMultiplePrecedence: ruleIDPrecedence,
	validate.CodeDanglingReference:  ruleIDDanglingReference,
	validate.CodeLanguageMismatch:   ruleIDLanguageMismatch,
}

// GenerateSARIF builds a SARIF v2.1.0 document from validation results.
// All file URIs are made relative to projectRoot; absolute paths are never
// included so that reports are safe to share.
func GenerateSARIF(projectRoot string, files []File) ([]byte, error) {
	results := make([]sarifResult, 0)
	used := make(map[string]bool)

	for _, f := range files {
		uri := relativeURI(projectRoot, f.Path)

		if f.Failure != nil {
			id := ruleIDDecode
			if f.Failure.Symbol != "" {
				id = ruleIDUndefinedSymbol
			}
			used[id] = true
			results = append(results, sarifResult{
				RuleID:    id,
				Level:     "error",
				Message:   sarifMessage{Text: f.Failure.Message},
				Locations: []sarifLocation{location(uri, f.Failure.Rule)},
			})
			continue
		}

		for _, d := range f.Diagnostics {
			id, ok := ruleIDByCode[d.Code]
			if !ok {
				continue
			}
			used[id] = true
			results = append(results, sarifResult{
				RuleID:    id,
				Level:     severityToLevel(d.Severity),
				Message:   sarifMessage{Text: d.Message},
				Locations: []sarifLocation{location(uri, d.Rule)},
			})
		}
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "sapling",
						Version: version.Version,
						Rules:   buildSARIFRules(used),
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns only the rules that are relevant for the given findings.
func buildSARIFRules(used map[string]bool) []sarifRule {
	rules := make([]sarifRule, 0, len(used))
	for _, info := range ruleCatalog {
		if !used[info.id] {
			continue
		}
		rules = append(rules, sarifRule{
			ID:               info.id,
			Name:             info.name,
			ShortDescription: sarifMessage{Text: info.desc},
			DefaultConfig:    sarifRuleDefaultConfig{Level: info.level},
		})
	}
	return rules
}

func location(uri, rule string) sarifLocation {
	loc := sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{
				URI:       uri,
				URIBaseID: "%SRCROOT%",
			},
		},
	}
	if rule != "" {
		loc.LogicalLocations = []sarifLogicalLocation{{Name: rule, Kind: "member"}}
	}
	return loc
}

func severityToLevel(sev validate.Severity) string {
	switch sev {
	case validate.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}
