package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	coreerrors "sapling/internal/core/errors"
	"sapling/internal/data/history"

	"github.com/olekukonko/tablewriter"
)

const FormatTSV Format = "tsv"

// RenderRuns writes recorded runs with per-run trend deltas, newest first.
func RenderRuns(w io.Writer, format Format, runs []history.Run) error {
	points := history.BuildTrend(runs)
	// BuildTrend is oldest first; listings read newest first.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	switch format {
	case FormatJSON:
		if points == nil {
			points = []history.TrendPoint{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	case FormatTSV:
		return renderRunsTSV(w, points)
	case FormatText, "":
		return renderRunsTable(w, points)
	default:
		return coreerrors.Newf(coreerrors.CodeNotSupported, "format %q cannot render history", format)
	}
}

func renderRunsTSV(w io.Writer, points []history.TrendPoint) error {
	var buf strings.Builder
	buf.WriteString("ID\tTimestamp\tGrammar\tPath\tOutcome\tRules\tDiagnostics\tDeltaRules\tDeltaDiagnostics\tChanged\tDurationMS\n")
	for _, p := range points {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%t\t%.3f\n",
			p.Run.ID,
			p.Run.Timestamp.UTC().Format(time.RFC3339),
			p.Run.Grammar,
			p.Run.Path,
			p.Run.Outcome,
			p.Run.RuleCount,
			p.DiagnosticCount,
			p.DeltaRules,
			p.DeltaDiagnostics,
			p.Changed,
			float64(p.Run.Duration)/float64(time.Millisecond),
		))
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

func renderRunsTable(w io.Writer, points []history.TrendPoint) error {
	if len(points) == 0 {
		_, err := fmt.Fprintln(w, "no recorded runs")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"When", "Grammar", "Outcome", "Rules", "Diagnostics", "Δ", "Changed", "ID"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, p := range points {
		table.Append([]string{
			p.Run.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			p.Run.Grammar,
			string(p.Run.Outcome),
			strconv.Itoa(p.Run.RuleCount),
			strconv.Itoa(p.DiagnosticCount),
			signed(p.DeltaDiagnostics),
			strconv.FormatBool(p.Changed),
			shortID(p.Run.ID),
		})
	}
	table.Render()
	return nil
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
