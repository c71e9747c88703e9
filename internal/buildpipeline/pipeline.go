package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"zealbuild/assets"
	"zealbuild/internal/diag"
	"zealbuild/internal/image"
	"zealbuild/internal/trace"
	"zealbuild/internal/vfs"
)

// SourceDir is the arena directory holding the source and every artifact.
const SourceDir = "src"

// Pipeline runs assemble, link and extract in sequence. Each stage gets a
// fresh arena; nothing but declared outputs crosses from one stage to the
// next. A Pipeline holds no per-run state.
type Pipeline struct {
	Tools    Tools
	Progress ProgressSink  // optional
	Reporter diag.Reporter // optional; sees each diagnostic as it arrives
	// LinkerScript replaces the embedded default script when non-nil.
	LinkerScript []byte
}

// Result is the outcome of a successful run.
type Result struct {
	RunID       string
	Object      []byte
	Listing     string
	ELF         []byte
	Map         string
	Binary      []byte
	Image       []byte // reconstructed from Listing
	Diagnostics []diag.Diagnostic
	Timings     Timings
}

// Artifact names for fileName inside the arena.
type artifacts struct {
	source, object, listing, elf, linkMap, binary string
}

func artifactsFor(fileName string) artifacts {
	src := path.Join(SourceDir, fileName)
	return artifacts{
		source:  src,
		object:  src + ".o",
		listing: src + ".lst",
		elf:     src + ".elf",
		linkMap: src + ".map",
		binary:  src + ".bin",
	}
}

// AssembleArgs returns the assembler argument vector for fileName.
func AssembleArgs(fileName string, cfg Config) []string {
	a := artifactsFor(fileName)
	var args []string
	if cfg.Verbose {
		args = append(args, "--warn")
	}
	args = append(args, "-g", "-I", SourceDir)
	for _, dir := range cfg.Dependencies.Dirs() {
		args = append(args, "-I", path.Join(SourceDir, dir))
	}
	return append(args, "-alh="+a.listing, "-o", a.object, a.source)
}

// LinkArgs returns the linker argument vector for fileName.
func LinkArgs(fileName string, cfg Config) []string {
	a := artifactsFor(fileName)
	var args []string
	if cfg.Verbose {
		args = append(args, "-verbose")
	}
	if addr, ok := cfg.BaseAddress.Addr(); ok {
		args = append(args, "-Ttext", fmt.Sprintf("0x%04x", addr))
	} else {
		args = append(args, "-T", assets.LinkerScriptName)
	}
	return append(args, "-o", a.elf, "-Map="+a.linkMap, a.object)
}

// ExtractArgs returns the objcopy argument vector for fileName.
func ExtractArgs(fileName string, cfg Config) []string {
	a := artifactsFor(fileName)
	var args []string
	if cfg.Verbose {
		args = append(args, "--verbose")
	}
	return append(args, "-O", "binary", a.elf, a.binary)
}

// run carries the state of one Run call.
type run struct {
	p       *Pipeline
	cfg     Config
	file    string
	bag     *diag.Bag
	timings Timings
	tracer  trace.Tracer
	spanID  uint64
}

// Run builds fileName from source. On failure it returns a *PipelineError
// holding every diagnostic collected so far; no later stage is invoked and
// no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, fileName string, source []byte, cfg Config) (*Result, error) {
	name, err := vfs.Clean(fileName)
	if err != nil || name == "." {
		return nil, fmt.Errorf("invalid source name %q", fileName)
	}
	name = path.Base(name)

	runID := uuid.NewString()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "pipeline", trace.CurrentSpan(ctx))
	span.WithExtra("run", runID).WithExtra("file", name).WithExtra("base", cfg.BaseAddress.String())

	r := &run{
		p:      p,
		cfg:    cfg,
		file:   name,
		bag:    diag.NewBag(0),
		tracer: tracer,
		spanID: span.ID(),
	}
	a := artifactsFor(name)

	asmIn := map[string][]byte{a.source: source}
	for unitName, u := range cfg.Dependencies {
		asmIn[path.Join(SourceDir, unitName)] = u.Data
	}
	asmOut, err := r.stage(ctx, StageAssemble, AssembleArgs(name, cfg), asmIn, a.object, a.listing)
	if err != nil {
		span.End("failed")
		return nil, err
	}

	linkIn := map[string][]byte{a.object: asmOut[a.object]}
	if cfg.BaseAddress.IsLinked() {
		script := p.LinkerScript
		if script == nil {
			script = assets.LinkerScript()
		}
		linkIn[assets.LinkerScriptName] = script
	}
	linkOut, err := r.stage(ctx, StageLink, LinkArgs(name, cfg), linkIn, a.elf, a.linkMap)
	if err != nil {
		span.End("failed")
		return nil, err
	}

	extractIn := map[string][]byte{a.elf: linkOut[a.elf]}
	extractOut, err := r.stage(ctx, StageExtract, ExtractArgs(name, cfg), extractIn, a.binary)
	if err != nil {
		span.End("failed")
		return nil, err
	}

	listing := string(asmOut[a.listing])
	res := &Result{
		RunID:       runID,
		Object:      asmOut[a.object],
		Listing:     listing,
		ELF:         linkOut[a.elf],
		Map:         string(linkOut[a.linkMap]),
		Binary:      extractOut[a.binary],
		Image:       image.Assemble(image.ParseListing(listing)),
		Diagnostics: r.bag.Items(),
		Timings:     r.timings,
	}
	span.WithExtra("bytes", strconv.Itoa(len(res.Binary))).End("")
	return res, nil
}

// stage runs one tool in a fresh arena seeded with inputs and returns the
// declared outputs.
func (r *run) stage(ctx context.Context, stage Stage, args []string, inputs map[string][]byte, outputs ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	r.emit(stage, StatusWorking, nil, 0)
	span := trace.Begin(r.tracer, trace.ScopeStage, string(stage), r.spanID)
	span.WithExtra("args", strings.Join(args, " "))

	fail := func(code int, cause error) (map[string][]byte, error) {
		elapsed := span.End(cause.Error())
		r.timings.Set(stage, elapsed)
		perr := &PipelineError{Stage: stage, ExitCode: code, Diagnostics: r.bag.Items(), Err: cause}
		r.emit(stage, StatusError, perr, elapsed)
		return nil, perr
	}

	arena := vfs.NewMemStore()
	if err := arena.MkdirAll(SourceDir); err != nil {
		return fail(-1, err)
	}
	for _, name := range slices.Sorted(maps.Keys(inputs)) {
		if err := vfs.WriteFileAll(arena, name, inputs[name]); err != nil {
			return fail(-1, fmt.Errorf("stage %s input %s: %w", stage, name, err))
		}
	}

	tool := r.p.Tools.forStage(stage)
	if tool == nil {
		return fail(-1, fmt.Errorf("no tool configured for stage %s", stage))
	}

	collect := diag.ReporterFunc(func(d diag.Diagnostic) {
		d.File = strings.TrimPrefix(d.File, SourceDir+"/")
		r.bag.Add(d)
		trace.Point(r.tracer, trace.ScopeStage, "diagnostic", span.ID(), d.Message)
		if r.p.Reporter != nil {
			r.p.Reporter.Report(d)
		}
	})
	report := diag.LineReporter(stage, collect)
	before := r.bag.Len()
	code, runErr := tool.Run(ctx, Invocation{Stage: stage, Args: args, Store: arena, Stderr: report})
	if runErr != nil {
		collect.Report(diag.Diagnostic{Stage: stage, Severity: diag.SevError, Message: runErr.Error()})
	}
	if code != 0 && r.bag.Len() == before {
		collect.Report(diag.Diagnostic{Stage: stage, Severity: diag.SevError, Message: "exit code " + strconv.Itoa(code)})
	}
	span.WithExtra("exit", strconv.Itoa(code))

	switch {
	case runErr != nil:
		return fail(code, runErr)
	case code != 0:
		return fail(code, ErrStageExit)
	case r.fatal():
		return fail(code, ErrStageDiagnostics)
	}

	out := make(map[string][]byte, len(outputs))
	for _, name := range outputs {
		data, err := arena.ReadFile(name)
		if err != nil {
			if errors.Is(err, vfs.ErrNotFound) {
				collect.Report(diag.Diagnostic{Stage: stage, Severity: diag.SevError, Message: "missing output " + name})
				return fail(code, ErrStageOutput)
			}
			return fail(code, err)
		}
		out[name] = data
	}

	elapsed := span.End("")
	r.timings.Set(stage, elapsed)
	r.emit(stage, StatusDone, nil, time.Since(start))
	return out, nil
}

func (r *run) fatal() bool {
	if r.cfg.AllowWarnings {
		return r.bag.HasErrors()
	}
	return r.bag.Len() > 0
}

func (r *run) emit(stage Stage, status Status, err error, elapsed time.Duration) {
	if r.p.Progress == nil {
		return
	}
	r.p.Progress.OnEvent(Event{File: r.file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
