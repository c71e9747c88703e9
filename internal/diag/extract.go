package diag

import (
	"regexp"
	"strconv"
	"strings"
)

// positionRe matches a leading "<file>:<line>:" prefix as printed by the GNU
// assembler and linker.
var positionRe = regexp.MustCompile(`^\s*([\w/.\-]+):(\d+):`)

var warningRe = regexp.MustCompile(`(?i)warning:`)

// Extract turns one raw stderr line of stage into a Diagnostic. Every line
// yields a Diagnostic; lines without a position keep File and Line empty.
func Extract(stage Stage, line string) Diagnostic {
	line = strings.TrimRight(line, "\r\n")
	d := Diagnostic{
		Stage:    stage,
		Severity: SevError,
		Message:  line,
	}

	scan := line
	if loc := warningRe.FindStringIndex(line); loc != nil {
		d.Severity = SevWarning
		scan = line[:loc[0]]
	}

	m := positionRe.FindStringSubmatch(scan)
	if m == nil {
		return d
	}
	n, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil || n == 0 {
		return d
	}
	d.File = m[1]
	d.Line = uint32(n)
	return d
}
