package buildpipeline

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zealbuild/assets"
	"zealbuild/internal/diag"
	"zealbuild/internal/include"
	"zealbuild/internal/vfs"
)

// stubTool records its invocations and writes the given files into the arena.
type stubTool struct {
	mu      sync.Mutex
	calls   int
	arenas  [][]string
	code    int
	lines   []string
	outputs map[string][]byte
	err     error
}

func (s *stubTool) Run(_ context.Context, inv Invocation) (int, error) {
	s.mu.Lock()
	s.calls++
	names, _ := inv.Store.List()
	s.arenas = append(s.arenas, names)
	s.mu.Unlock()

	for _, line := range s.lines {
		inv.Stderr(line)
	}
	for name, data := range s.outputs {
		if err := vfs.WriteFileAll(inv.Store, name, data); err != nil {
			return -1, err
		}
	}
	return s.code, s.err
}

type stubs struct {
	as, ld, objcopy *stubTool
}

func newStubs() stubs {
	return stubs{
		as: &stubTool{outputs: map[string][]byte{
			"src/main.asm.o":   []byte("OBJ"),
			"src/main.asm.lst": []byte("   1 0000 00       \t nop\n"),
		}},
		ld: &stubTool{outputs: map[string][]byte{
			"src/main.asm.elf": []byte("ELF"),
			"src/main.asm.map": []byte("MAP"),
		}},
		objcopy: &stubTool{outputs: map[string][]byte{
			"src/main.asm.bin": {0xC9},
		}},
	}
}

func (s stubs) pipeline() *Pipeline {
	return &Pipeline{Tools: Tools{Assemble: s.as, Link: s.ld, Extract: s.objcopy}}
}

func TestRunEndToEnd(t *testing.T) {
	local := vfs.NewMemStore()
	require.NoError(t, vfs.WriteFileAll(local, "user/sub.asm", []byte("nop\n")))
	source := []byte("nop\n.include \"sub.asm\"\n")

	resolved, err := include.New(local, nil).Resolve(context.Background(), "main.asm", source)
	require.NoError(t, err)
	require.Equal(t, include.Bundle{"sub.asm": {Name: "sub.asm", Data: []byte("nop\n")}}, resolved.Bundle)

	s := newStubs()
	res, err := s.pipeline().Run(context.Background(), "main.asm", source, Config{BaseAddress: Linked(), Dependencies: resolved.Bundle})
	require.NoError(t, err)

	assert.Equal(t, []byte{0xC9}, res.Binary)
	assert.Equal(t, []byte{0x00}, res.Image)
	assert.Equal(t, []byte("OBJ"), res.Object)
	assert.Equal(t, []byte("ELF"), res.ELF)
	assert.Equal(t, "MAP", res.Map)
	assert.Empty(t, res.Diagnostics)
	assert.NotEmpty(t, res.RunID)
	for _, st := range Stages {
		assert.True(t, res.Timings.Has(st), st)
	}

	assert.Equal(t, []string{"src/main.asm", "src/sub.asm"}, s.as.arenas[0])
	assert.Equal(t, []string{"src/main.asm.o", assets.LinkerScriptName}, s.ld.arenas[0])
	assert.Equal(t, []string{"src/main.asm.elf"}, s.objcopy.arenas[0])
}

func TestRunShortCircuitsOnExitCode(t *testing.T) {
	s := newStubs()
	s.as.code = 1
	s.as.lines = []string{"a.asm:3: error X", "warning: foo"}

	res, err := s.pipeline().Run(context.Background(), "main.asm", nil, Config{})
	assert.Nil(t, res)
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, ErrStageExit)
	assert.Equal(t, StageAssemble, perr.Stage)
	assert.Equal(t, 1, perr.ExitCode)

	require.Len(t, perr.Diagnostics, 2)
	assert.Equal(t, "a.asm", perr.Diagnostics[0].File)
	assert.Equal(t, uint32(3), perr.Diagnostics[0].Line)
	assert.False(t, perr.Diagnostics[1].HasPosition())
	assert.Equal(t, "warning: foo", perr.Diagnostics[1].Message)

	assert.Zero(t, s.ld.calls)
	assert.Zero(t, s.objcopy.calls)
}

func TestRunDiagnosticsAreFatalAtExitZero(t *testing.T) {
	s := newStubs()
	s.ld.lines = []string{"src/main.asm:4: warning: section overlap"}

	_, err := s.pipeline().Run(context.Background(), "main.asm", nil, Config{})
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, ErrStageDiagnostics)
	assert.Equal(t, StageLink, perr.Stage)
	require.Len(t, perr.Diagnostics, 1)
	assert.Equal(t, "main.asm", perr.Diagnostics[0].File, "arena prefix is stripped")
	assert.Zero(t, s.objcopy.calls)
}

func TestRunAllowWarnings(t *testing.T) {
	s := newStubs()
	s.as.lines = []string{"main.asm:2: Warning: value truncated"}

	res, err := s.pipeline().Run(context.Background(), "main.asm", nil, Config{AllowWarnings: true})
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.SevWarning, res.Diagnostics[0].Severity)

	s = newStubs()
	s.as.lines = []string{"main.asm:2: Error: bad operand"}
	_, err = s.pipeline().Run(context.Background(), "main.asm", nil, Config{AllowWarnings: true})
	assert.ErrorIs(t, err, ErrStageDiagnostics)
}

func TestRunSilentFailureGetsExitDiagnostic(t *testing.T) {
	s := newStubs()
	s.objcopy.code = 2

	_, err := s.pipeline().Run(context.Background(), "main.asm", nil, Config{})
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	require.Len(t, perr.Diagnostics, 1)
	assert.Equal(t, diag.Diagnostic{Stage: StageExtract, Severity: diag.SevError, Message: "exit code 2"}, perr.Diagnostics[0])
}

func TestRunToolError(t *testing.T) {
	s := newStubs()
	s.as.err = errors.New("exec: \"z80-elf-as\": executable file not found in $PATH")
	s.as.code = -1

	_, err := s.pipeline().Run(context.Background(), "main.asm", nil, Config{})
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	require.Len(t, perr.Diagnostics, 1)
	assert.Contains(t, perr.Diagnostics[0].Message, "executable file not found")
}

func TestRunMissingOutput(t *testing.T) {
	s := newStubs()
	delete(s.ld.outputs, "src/main.asm.map")

	_, err := s.pipeline().Run(context.Background(), "main.asm", nil, Config{})
	assert.ErrorIs(t, err, ErrStageOutput)
	assert.Zero(t, s.objcopy.calls)
}

func TestRunFixedBaseSkipsLinkerScript(t *testing.T) {
	s := newStubs()
	_, err := s.pipeline().Run(context.Background(), "main.asm", nil, Config{BaseAddress: Fixed(0x4000)})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.asm.o"}, s.ld.arenas[0])
}

func TestRunProgressAndReporter(t *testing.T) {
	s := newStubs()
	s.as.lines = []string{"main.asm:1: warning: odd"}
	p := s.pipeline()

	var events []Event
	p.Progress = SinkFunc(func(e Event) { events = append(events, e) })
	var live []diag.Diagnostic
	p.Reporter = diag.ReporterFunc(func(d diag.Diagnostic) { live = append(live, d) })

	_, err := p.Run(context.Background(), "main.asm", nil, Config{AllowWarnings: true})
	require.NoError(t, err)
	require.Len(t, live, 1)

	var got []string
	for _, e := range events {
		assert.Equal(t, "main.asm", e.File)
		got = append(got, string(e.Stage)+":"+string(e.Status))
	}
	assert.Equal(t, []string{
		"assemble:working", "assemble:done",
		"link:working", "link:done",
		"extract:working", "extract:done",
	}, got)
}

func TestRunRejectsBadName(t *testing.T) {
	_, err := newStubs().pipeline().Run(context.Background(), "../main.asm", nil, Config{})
	assert.Error(t, err)
}

func TestArgs(t *testing.T) {
	deps := include.Bundle{
		"files/headers/zos_sys.asm": {Name: "files/headers/zos_sys.asm"},
		"sub.asm":                   {Name: "sub.asm"},
	}
	assert.Equal(t,
		[]string{"--warn", "-g", "-I", "src", "-I", "src/files", "-I", "src/files/headers", "-alh=src/main.asm.lst", "-o", "src/main.asm.o", "src/main.asm"},
		AssembleArgs("main.asm", Config{Verbose: true, Dependencies: deps}))
	assert.Equal(t,
		[]string{"-g", "-I", "src", "-alh=src/main.asm.lst", "-o", "src/main.asm.o", "src/main.asm"},
		AssembleArgs("main.asm", Config{}))

	assert.Equal(t,
		[]string{"-T", "zeal8bit.ld", "-o", "src/main.asm.elf", "-Map=src/main.asm.map", "src/main.asm.o"},
		LinkArgs("main.asm", Config{BaseAddress: Linked()}))
	assert.Equal(t,
		[]string{"-verbose", "-Ttext", "0x4000", "-o", "src/main.asm.elf", "-Map=src/main.asm.map", "src/main.asm.o"},
		LinkArgs("main.asm", Config{Verbose: true, BaseAddress: Fixed(0x4000)}))

	assert.Equal(t,
		[]string{"--verbose", "-O", "binary", "src/main.asm.elf", "src/main.asm.bin"},
		ExtractArgs("main.asm", Config{Verbose: true}))
}

func TestParseBaseAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    BaseAddress
		wantErr bool
	}{
		{in: "", want: Linked()},
		{in: "Linked", want: Linked()},
		{in: "0x4000", want: Fixed(0x4000)},
		{in: "16384", want: Fixed(0x4000)},
		{in: "0x0000", want: Fixed(0)},
		{in: "0x10000", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "org", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseBaseAddress(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	var b BaseAddress
	require.NoError(t, b.UnmarshalText([]byte("0xC000")))
	assert.Equal(t, "0xc000", b.String())
	assert.True(t, Linked().IsLinked())
}

func TestExecTool(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no POSIX shell available")
	}
	arena := vfs.NewMemStore()
	require.NoError(t, vfs.WriteFileAll(arena, "src/in.txt", []byte("payload")))

	var lines []string
	code, err := ExecTool{Path: sh}.Run(context.Background(), Invocation{
		Stage:  StageAssemble,
		Args:   []string{"-c", "cat src/in.txt > src/out.txt; echo 'src/in.txt:1: oops' >&2; echo second >&2; exit 3"},
		Store:  arena,
		Stderr: func(l string) { lines = append(lines, l) },
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, []string{"src/in.txt:1: oops", "second"}, lines)

	out, err := arena.ReadFile("src/out.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(out))
}
