package formats

import "sapling/internal/engine/validate"

// File is the validation outcome of one grammar file as the renderers see it.
type File struct {
	Path        string                `json:"path"`
	Grammar     string                `json:"grammar"`
	EntryPoint  string                `json:"entry_point,omitempty"`
	Cached      bool                  `json:"cached,omitempty"`
	Diagnostics []validate.Diagnostic `json:"diagnostics"`
	Failure     *Failure              `json:"failure,omitempty"`
}

// Failure describes why a file was rejected.
type Failure struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Rule        string   `json:"rule,omitempty"`
	Symbol      string   `json:"symbol,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
