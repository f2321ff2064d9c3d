package formats

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"sapling/internal/engine/graph"
)

func ruleLabel(rule string, metrics map[string]graph.RuleMetrics) string {
	metric, ok := metrics[rule]
	if !ok {
		return rule
	}
	return fmt.Sprintf("%s\\n(d=%d in=%d out=%d)", rule, metric.Depth, metric.FanIn, metric.FanOut)
}

func sanitizeID(name string) string {
	if name == "" {
		return "r"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	first := rune(out[0])
	if unicode.IsDigit(first) || first == '_' {
		return "r" + out
	}
	return out
}

// makeIDs assigns every name a distinct identifier that is safe in DOT and
// Mermaid sources.
func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot. If the path is already relative or projectRoot is
// empty, the original path (with forward slashes) is returned.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(projectRoot, filePath)
		if err == nil {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}

func edgeSet(groups [][]string, edges func(string) []string) map[string]map[string]bool {
	set := make(map[string]map[string]bool)
	for _, group := range groups {
		members := make(map[string]bool, len(group))
		for _, m := range group {
			members[m] = true
		}
		for _, from := range group {
			for _, to := range edges(from) {
				if !members[to] {
					continue
				}
				if set[from] == nil {
					set[from] = make(map[string]bool)
				}
				set[from][to] = true
			}
		}
	}
	return set
}
