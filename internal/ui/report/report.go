// Package report renders validation results for people and tools.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"sapling/internal/core/app"
	coreerrors "sapling/internal/core/errors"
	"sapling/internal/engine/validate"
	"sapling/internal/ui/report/formats"
)

type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
	FormatDOT   Format = "dot"
)

type File = formats.File
type Failure = formats.Failure

// Options tune the renderers.
type Options struct {
	// ProjectRoot anchors relative paths in SARIF output.
	ProjectRoot string
	Color       bool
}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatSARIF, FormatDOT:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", coreerrors.Newf(coreerrors.CodeNotSupported, "unsupported report format %q", s)
	}
}

// FileFromResult converts a service result into its rendered form.
func FileFromResult(res *app.Result) File {
	f := File{
		Path:        res.Path,
		Grammar:     res.GrammarName(),
		Cached:      res.Cached,
		Diagnostics: []validate.Diagnostic{},
	}
	if res.Report != nil {
		f.EntryPoint = res.Report.EntryPoint
		f.Diagnostics = append(f.Diagnostics, res.Report.Diagnostics...)
	}
	if res.Err == nil {
		return f
	}

	failure := &Failure{Code: string(coreerrors.CodeOf(res.Err)), Message: res.Err.Error()}
	var verr *validate.ValidationError
	if errors.As(res.Err, &verr) {
		failure.Message = verr.Error()
		failure.Rule = verr.Rule
		failure.Symbol = verr.Symbol
		failure.Suggestions = append([]string(nil), verr.Suggestions...)
	}
	f.Failure = failure
	return f
}

// Render writes files in the requested format. DOT output needs a rule
// graph and is produced by RenderGraph instead.
func Render(w io.Writer, format Format, files []File, opts Options) error {
	switch format {
	case FormatText:
		return renderText(w, files, opts)
	case FormatJSON:
		return renderJSON(w, files)
	case FormatSARIF:
		data, err := formats.GenerateSARIF(opts.ProjectRoot, files)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		return coreerrors.Newf(coreerrors.CodeNotSupported, "format %q cannot render validation results", format)
	}
}

// Summary tallies a batch of files.
type Summary struct {
	Files    int `json:"files"`
	Failed   int `json:"failed"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

func Summarize(files []File) Summary {
	s := Summary{Files: len(files)}
	for _, f := range files {
		if f.Failure != nil {
			s.Failed++
		}
		for _, d := range f.Diagnostics {
			if d.Severity == validate.SeverityWarning {
				s.Warnings++
			} else {
				s.Infos++
			}
		}
	}
	return s
}
