package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"sapling/internal/core/app"
	"sapling/internal/engine/graph"
	"sapling/internal/ui/report"

	"github.com/spf13/cobra"
)

func newValidateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path> [path...]",
		Short: "Validate grammar files",
		Long: `Validate one or more grammar files.

Directories are searched for .json, .yaml and .yml grammars. The exit code is
1 when any grammar fails to decode or references an undefined symbol.
Diagnostics alone never fail the run.`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runValidate(cmd.Context(), args)
		},
	}
}

func (rt *runtime) runValidate(ctx context.Context, paths []string) error {
	format, err := report.ParseFormat(rt.format(rt.cfg.Output.Format))
	if err != nil {
		return usageError{err}
	}

	svc, err := rt.newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	files, err := svc.Discover(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return usageError{fmt.Errorf("no grammar files found in %s", strings.Join(paths, ", "))}
	}

	results := make([]*app.Result, 0, len(files))
	rejected := false
	for _, path := range files {
		res, err := svc.ValidateFile(ctx, path)
		if res == nil {
			return err
		}
		if err != nil {
			rejected = true
		}
		results = append(results, res)
	}

	err = rt.writeOutput(rt.reportPath(), func(w io.Writer) error {
		if format == report.FormatDOT {
			return renderResultGraphs(w, results)
		}
		rendered := make([]report.File, 0, len(results))
		for _, res := range results {
			rendered = append(rendered, report.FileFromResult(res))
		}
		return report.Render(w, format, rendered, report.Options{
			ProjectRoot: rt.paths.ProjectRoot,
			Color:       rt.cfg.Output.ColorEnabled(),
		})
	})
	if err != nil {
		return err
	}
	if rejected {
		return errRejected
	}
	return nil
}

// renderResultGraphs writes one digraph per accepted grammar.
func renderResultGraphs(w io.Writer, results []*app.Result) error {
	for _, res := range results {
		if res.Err != nil || res.Grammar == nil {
			continue
		}
		if err := report.RenderGraph(w, report.FormatDOT, res.Report.EntryPoint, graph.Build(res.Grammar)); err != nil {
			return err
		}
	}
	return nil
}
