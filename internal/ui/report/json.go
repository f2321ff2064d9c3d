package report

import (
	"encoding/json"
	"io"

	"sapling/internal/shared/version"
)

type jsonDocument struct {
	Tool    string  `json:"tool"`
	Version string  `json:"version"`
	Summary Summary `json:"summary"`
	Files   []File  `json:"files"`
}

func renderJSON(w io.Writer, files []File) error {
	if files == nil {
		files = []File{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonDocument{
		Tool:    "sapling",
		Version: version.Version,
		Summary: Summarize(files),
		Files:   files,
	})
}
