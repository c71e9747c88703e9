package diagfmt

import (
	"encoding/json"
	"io"
	"strings"

	"zealbuild/internal/diag"
)

// DiagnosticJSON is one diagnostic in JSON output.
type DiagnosticJSON struct {
	Stage    string `json:"stage"`
	Severity string `json:"severity"`
	File     string `json:"file,omitempty"`
	Line     uint32 `json:"line,omitempty"`
	Message  string `json:"message"`
}

// DiagnosticsOutput is the root of JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Total       int              `json:"total"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
}

// BuildDiagnosticsOutput builds the JSON document without serialising it.
func BuildDiagnosticsOutput(items []diag.Diagnostic, opts JSONOpts) DiagnosticsOutput {
	shown := limit(len(items), opts.Max)
	out := DiagnosticsOutput{
		Diagnostics: make([]DiagnosticJSON, 0, shown),
		Total:       len(items),
	}
	for _, d := range items[:shown] {
		out.Diagnostics = append(out.Diagnostics, DiagnosticJSON{
			Stage:    string(d.Stage),
			Severity: strings.ToLower(d.Severity.String()),
			File:     formatPath(d.File, opts.PathMode),
			Line:     d.Line,
			Message:  d.Message,
		})
	}
	out.Count = len(out.Diagnostics)
	out.Errors, out.Warnings = count(items)
	return out
}

// JSON writes diagnostics as one indented JSON document.
func JSON(w io.Writer, items []diag.Diagnostic, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(items, opts))
}
