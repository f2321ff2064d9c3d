package cli

import (
	"fmt"
	"io"
	"strings"

	"sapling/internal/ui/report"

	"github.com/spf13/cobra"
)

func newGraphCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <file>",
		Short: "Print the rule reference graph of a grammar",
		Long: `Print the rule reference graph of a grammar.

--format selects text (metrics table and recursion groups), dot or mermaid.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := report.Format(strings.ToLower(rt.format(string(report.FormatText))))
			switch format {
			case report.FormatText, report.FormatDOT, report.FormatMermaid:
			default:
				return usageError{fmt.Errorf("graph supports text, dot and mermaid, not %q", format)}
			}

			svc, err := rt.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			g, rg, err := svc.RuleGraph(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			entry, _ := g.EntryPoint()
			return rt.writeOutput(rt.params.output, func(w io.Writer) error {
				return report.RenderGraph(w, format, entry, rg)
			})
		},
	}
}

func newTraceCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "trace <file> <from> <to>",
		Short: "Show the shortest reference chain between two rules",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rt.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			chain, err := svc.TraceReferenceChain(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(chain, " -> "))
			return err
		},
	}
}

func newReferrersCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "referrers <file> <rule>",
		Short: "List the rules that depend on a rule",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rt.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			rep, err := svc.Referrers(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rule:       %s\n", rep.Target)
			fmt.Fprintf(out, "direct:     %s\n", joinOrNone(rep.DirectReferrers))
			_, err = fmt.Fprintf(out, "transitive: %s\n", joinOrNone(rep.TransitiveReferrers))
			return err
		},
	}
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
