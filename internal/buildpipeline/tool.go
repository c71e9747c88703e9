package buildpipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"zealbuild/internal/vfs"
)

// Invocation is one call of a stage tool against its arena.
type Invocation struct {
	Stage  Stage
	Args   []string
	Store  vfs.Store         // the stage arena; outputs are written back here
	Stderr func(line string) // called for every stderr line, in order
}

// Tool runs one external stage. A non-zero exit code is reported through
// the return value, not as an error; err is for failures to run at all.
type Tool interface {
	Run(ctx context.Context, inv Invocation) (exitCode int, err error)
}

// ToolFunc adapts a function to Tool.
type ToolFunc func(ctx context.Context, inv Invocation) (int, error)

func (f ToolFunc) Run(ctx context.Context, inv Invocation) (int, error) {
	return f(ctx, inv)
}

// Tools binds a Tool to every stage.
type Tools struct {
	Assemble Tool
	Link     Tool
	Extract  Tool
}

// Default Z80 GNU binutils executables.
const (
	DefaultAssembler = "z80-elf-as"
	DefaultLinker    = "z80-elf-ld"
	DefaultObjcopy   = "z80-elf-objcopy"
)

// ExecTools returns host tools; empty paths fall back to the defaults.
func ExecTools(as, ld, objcopy string) Tools {
	pick := func(p, def string) string {
		if strings.TrimSpace(p) == "" {
			return def
		}
		return p
	}
	return Tools{
		Assemble: ExecTool{Path: pick(as, DefaultAssembler)},
		Link:     ExecTool{Path: pick(ld, DefaultLinker)},
		Extract:  ExecTool{Path: pick(objcopy, DefaultObjcopy)},
	}
}

func (t Tools) forStage(stage Stage) Tool {
	switch stage {
	case StageAssemble:
		return t.Assemble
	case StageLink:
		return t.Link
	case StageExtract:
		return t.Extract
	}
	return nil
}

// ExecTool runs a host executable. The arena is materialised into a
// private temporary directory, the tool runs there with relative paths,
// and every file it leaves behind is copied back into the arena.
type ExecTool struct {
	Path   string
	Stdout io.Writer // optional; stdout is discarded when nil
}

func (t ExecTool) Run(ctx context.Context, inv Invocation) (int, error) {
	dir, err := os.MkdirTemp("", "zealbuild-"+string(inv.Stage)+"-")
	if err != nil {
		return -1, fmt.Errorf("create %s workspace: %w", inv.Stage, err)
	}
	defer os.RemoveAll(dir)

	host := vfs.NewOSStore(dir)
	if err := vfs.Copy(host, inv.Store); err != nil {
		return -1, fmt.Errorf("stage %s inputs: %w", inv.Stage, err)
	}

	cmd := exec.CommandContext(ctx, t.Path, inv.Args...)
	cmd.Dir = dir
	cmd.Stdout = t.Stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, err
	}
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start %s: %w", t.Path, err)
	}

	// Wait closes the pipe, so every line is read before it.
	sc := bufio.NewScanner(stderr)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if inv.Stderr != nil {
			inv.Stderr(sc.Text())
		}
	}
	// Keep the pipe drained if a line overflowed the scanner.
	_, _ = io.Copy(io.Discard, stderr)
	waitErr := cmd.Wait()

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return -1, fmt.Errorf("run %s: %w", t.Path, waitErr)
		}
		code = exitErr.ExitCode()
		if code < 0 {
			return -1, fmt.Errorf("run %s: %w", t.Path, waitErr)
		}
	}

	if err := vfs.Copy(inv.Store, host); err != nil {
		return code, fmt.Errorf("stage %s outputs: %w", inv.Stage, err)
	}
	return code, nil
}
