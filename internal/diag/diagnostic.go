package diag

import (
	"fmt"
	"strconv"
)

// Stage names the toolchain stage a diagnostic originates from.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageAssemble Stage = "assemble"
	StageLink     Stage = "link"
	StageExtract  Stage = "extract"
)

type Diagnostic struct {
	Stage    Stage    `json:"stage"`
	Severity Severity `json:"severity"`
	File     string   `json:"file,omitempty"`
	Line     uint32   `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// HasPosition reports whether the tool reported a file and line.
func (d Diagnostic) HasPosition() bool {
	return d.File != "" && d.Line > 0
}

// Position renders "file:line", or "" when no position is known.
func (d Diagnostic) Position() string {
	if !d.HasPosition() {
		return ""
	}
	return d.File + ":" + strconv.FormatUint(uint64(d.Line), 10)
}

func (d Diagnostic) String() string {
	if pos := d.Position(); pos != "" {
		return fmt.Sprintf("%s: %s: %s", d.Stage, pos, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Stage, d.Message)
}
