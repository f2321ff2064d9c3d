package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	coreerrors "sapling/internal/core/errors"
	"sapling/internal/engine/graph"
	"sapling/internal/ui/report/formats"

	"github.com/olekukonko/tablewriter"
)

const FormatMermaid Format = "mermaid"

// RenderGraph writes the rule graph of a grammar. Text output is a table of
// per-rule metrics; dot and mermaid produce diagram sources.
func RenderGraph(w io.Writer, format Format, entry string, rg *graph.Graph) error {
	metrics := rg.Metrics()
	switch format {
	case FormatDOT:
		gen := formats.NewDOTGenerator(rg)
		gen.SetRuleMetrics(metrics)
		out, err := gen.Generate(entry)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatMermaid:
		out, err := formats.NewMermaidGenerator(rg).Generate(entry)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatText, "":
		return renderGraphTable(w, entry, rg, metrics)
	default:
		return coreerrors.Newf(coreerrors.CodeNotSupported, "format %q cannot render a rule graph", format)
	}
}

func renderGraphTable(w io.Writer, entry string, rg *graph.Graph, metrics map[string]graph.RuleMetrics) error {
	reachable := rg.Reachable(entry)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rule", "Depth", "FanIn", "FanOut", "Recursive", "Reachable", "References"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, name := range rg.Nodes() {
		m := metrics[name]
		table.Append([]string{
			name,
			strconv.Itoa(m.Depth),
			strconv.Itoa(m.FanIn),
			strconv.Itoa(m.FanOut),
			strconv.FormatBool(m.Recursive),
			strconv.FormatBool(reachable[name]),
			strings.Join(rg.Edges(name), ", "),
		})
	}
	table.Render()

	groups := rg.RecursionGroups()
	if len(groups) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\nrecursion groups:"); err != nil {
		return err
	}
	for _, group := range groups {
		if _, err := fmt.Fprintf(w, "  %s\n", strings.Join(group, " -> ")); err != nil {
			return err
		}
	}
	return nil
}
