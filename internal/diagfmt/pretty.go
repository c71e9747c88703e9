package diagfmt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"zealbuild/internal/diag"
)

type palette struct {
	err, warn, info, pos, stage, gutter *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan),
		pos:    color.New(color.Bold),
		stage:  color.New(color.FgMagenta),
		gutter: color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.pos, p.stage, p.gutter} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty prints diagnostics in emission order:
//
//	main.asm:3: ERROR [assemble] Error: unknown opcode `lx'
//	    3 | lx a, 1
//
// followed by a summary line.
func Pretty(w io.Writer, items []diag.Diagnostic, opts PrettyOpts) error {
	bw := bufio.NewWriter(w)
	pal := newPalette(opts.Color)

	stageWidth := 0
	for _, d := range items {
		stageWidth = max(stageWidth, runewidth.StringWidth(string(d.Stage)))
	}

	shown := limit(len(items), opts.Max)
	for _, d := range items[:shown] {
		if d.HasPosition() {
			pos := formatPath(d.File, opts.PathMode) + ":" + strconv.FormatUint(uint64(d.Line), 10) + ":"
			fmt.Fprint(bw, pal.pos.Sprint(pos), " ")
		}
		stage := runewidth.FillRight(string(d.Stage), stageWidth)
		fmt.Fprintf(bw, "%s %s %s\n",
			pal.severity(d.Severity).Sprint(d.Severity.String()),
			pal.stage.Sprint("["+stage+"]"),
			message(d),
		)
		if opts.Context && d.HasPosition() && opts.Sources != nil {
			if line, ok := sourceLine(opts.Sources, d.File, d.Line); ok {
				if opts.Width > 0 {
					line = runewidth.Truncate(line, opts.Width, "…")
				}
				fmt.Fprintf(bw, "%s %s\n", pal.gutter.Sprintf("%5d |", d.Line), line)
			}
		}
	}

	errs, warns := count(items)
	summary := fmt.Sprintf("%d error(s), %d warning(s)", errs, warns)
	if hidden := len(items) - shown; hidden > 0 {
		summary += fmt.Sprintf(", %d more not shown", hidden)
	}
	fmt.Fprintln(bw, summary)
	return bw.Flush()
}

// message drops a leading "file:line:" that only repeats the position.
func message(d diag.Diagnostic) string {
	msg := strings.TrimSpace(d.Message)
	if d.HasPosition() {
		if rest, ok := strings.CutPrefix(msg, d.Position()+":"); ok && strings.TrimSpace(rest) != "" {
			return strings.TrimSpace(rest)
		}
	}
	return msg
}

func sourceLine(lookup SourceLookup, file string, line uint32) (string, bool) {
	data, ok := lookup(file)
	if !ok {
		return "", false
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := uint32(1); sc.Scan(); n++ {
		if n == line {
			return strings.ReplaceAll(strings.TrimRight(sc.Text(), "\r"), "\t", "    "), true
		}
	}
	return "", false
}

func count(items []diag.Diagnostic) (errs, warns int) {
	for _, d := range items {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	return errs, warns
}
