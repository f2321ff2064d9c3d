package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"sapling/internal/data/history"
	"sapling/internal/ui/report"

	"github.com/spf13/cobra"
)

func newHistoryCommand(rt *runtime) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history [grammar]",
		Short: "List recorded validation runs",
		Long: `List recorded validation runs, newest first, with the change in rule and
diagnostic counts against the previous run of the same grammar.

Requires [history] enabled = true in the configuration.`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := report.Format(strings.ToLower(rt.format(string(report.FormatText))))
			switch format {
			case report.FormatText, report.FormatJSON, report.FormatTSV:
			default:
				return usageError{fmt.Errorf("history supports text, json and tsv, not %q", format)}
			}

			svc, err := rt.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if runID != "" {
				run, err := svc.Run(cmd.Context(), runID)
				if err != nil {
					return err
				}
				return rt.writeOutput(rt.params.output, func(w io.Writer) error {
					return renderRunDetail(w, format, run)
				})
			}

			grammar := ""
			if len(args) == 1 {
				grammar = args[0]
			}
			runs, err := svc.History(cmd.Context(), grammar, limit)
			if err != nil {
				return err
			}
			return rt.writeOutput(rt.params.output, func(w io.Writer) error {
				return report.RenderRuns(w, format, runs)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&runID, "id", "", "show a single run with its diagnostics")
	return cmd
}

func renderRunDetail(w io.Writer, format report.Format, run history.Run) error {
	if format == report.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}
	if err := report.RenderRuns(w, format, []history.Run{run}); err != nil {
		return err
	}
	if run.Error != "" {
		fmt.Fprintf(w, "\nerror: %s\n", run.Error)
	}
	for _, d := range run.Diagnostics {
		if _, err := fmt.Fprintf(w, "  %-8s %-20s %s\n", d.Severity, d.Code, d.Message); err != nil {
			return err
		}
	}
	return nil
}
