package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F87171"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
)

type painter struct {
	color bool
}

func (p painter) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func renderText(w io.Writer, files []File, opts Options) error {
	p := painter{color: opts.Color}

	for i, f := range files {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}

		header := f.Path
		if f.Grammar != "" {
			header = fmt.Sprintf("%s (%s)", f.Path, f.Grammar)
		}
		if _, err := fmt.Fprintln(w, p.paint(headerStyle, header)); err != nil {
			return err
		}

		if f.Failure != nil {
			if err := writeFailure(w, p, f.Failure); err != nil {
				return err
			}
			continue
		}

		if len(f.Diagnostics) == 0 {
			if _, err := fmt.Fprintf(w, "  %s entry point '%s', no diagnostics\n", p.paint(successStyle, "ok"), f.EntryPoint); err != nil {
				return err
			}
			continue
		}

		if _, err := fmt.Fprintf(w, "  entry point '%s'\n", f.EntryPoint); err != nil {
			return err
		}
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Severity", "Code", "Rule", "Message"})
		table.SetAutoWrapText(false)
		table.SetAutoFormatHeaders(false)
		table.SetBorder(false)
		table.SetColumnSeparator("")
		table.SetHeaderLine(false)
		table.SetTablePadding("  ")
		table.SetNoWhiteSpace(true)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		for _, d := range f.Diagnostics {
			table.Append([]string{d.Severity.String(), string(d.Code), d.Rule, d.Message})
		}
		table.Render()
	}

	s := Summarize(files)
	line := fmt.Sprintf("%d file(s), %d failed, %d warning(s), %d info", s.Files, s.Failed, s.Warnings, s.Infos)
	style := successStyle
	switch {
	case s.Failed > 0:
		style = errorStyle
	case s.Warnings > 0:
		style = warningStyle
	}
	if len(files) > 0 {
		line = "\n" + p.paint(style, line)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func writeFailure(w io.Writer, p painter, f *Failure) error {
	label := "decode error"
	if f.Symbol != "" {
		label = "invalid"
	}
	_, err := fmt.Fprintf(w, "  %s %s\n", p.paint(errorStyle, label), f.Message)
	return err
}
