package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"zealbuild/internal/buildpipeline"
	"zealbuild/internal/diag"
	"zealbuild/internal/diagfmt"
	"zealbuild/internal/image"
	"zealbuild/internal/include"
	"zealbuild/internal/version"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [files...]",
	Short: "Build a Zeal 8-bit program",
	Long: `Build the [build].main entry of zeal.toml, or each source file given.
Includes are resolved from the project's user directory first and then from
the configured remote location.`,
	RunE: buildExecution,
}

type buildOptions struct {
	format        string
	jobs          int
	hex           bool
	base          string
	verbose       bool
	allowWarnings bool
	offline       bool
	noCache       bool
	ui            uiMode
	maxDiags      int
	timings       bool
	quiet         bool
}

// targetOutcome is everything one build target produced.
type targetOutcome struct {
	path     string
	display  string
	source   []byte
	resolved *include.Result
	result   *buildpipeline.Result
	written  []string
	err      error
}

// builder carries what every target of one build command shares.
type builder struct {
	cfg      buildpipeline.Config
	tools    buildpipeline.Tools
	resolver *include.Resolver
	outDir   string
	hex      bool
}

func readBuildOptions(cmd *cobra.Command) (buildOptions, error) {
	var opts buildOptions
	var err error
	flags := cmd.Flags()
	if opts.format, err = flags.GetString("format"); err != nil {
		return opts, err
	}
	opts.format = strings.ToLower(strings.TrimSpace(opts.format))
	switch opts.format {
	case "pretty", "json", "sarif":
	default:
		return opts, fmt.Errorf("unsupported format %q (must be pretty, json or sarif)", opts.format)
	}
	if opts.jobs, err = flags.GetInt("jobs"); err != nil {
		return opts, err
	}
	if opts.hex, err = flags.GetBool("hex"); err != nil {
		return opts, err
	}
	if opts.base, err = flags.GetString("base"); err != nil {
		return opts, err
	}
	if opts.verbose, err = flags.GetBool("verbose"); err != nil {
		return opts, err
	}
	if opts.allowWarnings, err = flags.GetBool("allow-warnings"); err != nil {
		return opts, err
	}
	if opts.offline, err = flags.GetBool("offline"); err != nil {
		return opts, err
	}
	if opts.noCache, err = flags.GetBool("no-cache"); err != nil {
		return opts, err
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return opts, err
	}
	if opts.ui, err = readUIMode(uiValue); err != nil {
		return opts, err
	}
	root := cmd.Root().PersistentFlags()
	if opts.maxDiags, err = root.GetInt("max-diagnostics"); err != nil {
		return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if opts.timings, err = root.GetBool("timings"); err != nil {
		return opts, err
	}
	opts.quiet = quiet(cmd)
	return opts, nil
}

func buildExecution(cmd *cobra.Command, args []string) error {
	opts, err := readBuildOptions(cmd)
	if err != nil {
		return err
	}
	ws, err := openWorkspace(".")
	if err != nil {
		return err
	}
	paths, err := ws.targets(args)
	if err != nil {
		return err
	}
	cfg, err := ws.pipelineConfig(opts.base, opts.verbose, opts.allowWarnings)
	if err != nil {
		return err
	}
	resolver, err := ws.resolver(resolverOptions{offline: opts.offline, noCache: opts.noCache})
	if err != nil {
		return err
	}
	b := &builder{cfg: cfg, tools: ws.tools(), resolver: resolver, outDir: ws.outDir(), hex: opts.hex}

	displays := buildpipeline.DisplayNames(paths, ws.root)
	outcomes := make([]*targetOutcome, len(displays))
	for i, display := range displays {
		p := filepath.FromSlash(display)
		if !filepath.IsAbs(p) {
			p = filepath.Join(ws.root, p)
		}
		outcomes[i] = &targetOutcome{path: p, display: display}
	}

	work := func(ctx context.Context, sink buildpipeline.ProgressSink) error {
		buildpipeline.EmitQueued(sink, displays)
		return b.buildAll(ctx, outcomes, opts.jobs, sink)
	}
	if shouldUseTUI(opts.ui) && opts.format == "pretty" && !opts.quiet {
		err = runWithUI(cmd.Context(), "zealbuild build", displays, work)
	} else {
		err = work(cmd.Context(), nil)
	}
	if err != nil {
		return err
	}
	return reportOutcomes(cmd, ws.root, outcomes, opts)
}

// buildAll runs every target, at most jobs at a time. Target failures are
// recorded in the outcomes; only cancellation is returned.
func (b *builder) buildAll(ctx context.Context, outcomes []*targetOutcome, jobs int, sink buildpipeline.ProgressSink) error {
	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	var mu sync.Mutex
	locked := buildpipeline.SinkFunc(func(ev buildpipeline.Event) {
		if sink == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		sink.OnEvent(ev)
	})
	for _, o := range outcomes {
		g.Go(func() error {
			b.buildTarget(ctx, o, locked)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (b *builder) buildTarget(ctx context.Context, o *targetOutcome, sink buildpipeline.ProgressSink) {
	start := time.Now()
	buildpipeline.EmitStage(sink, o.display, buildpipeline.StageResolve, buildpipeline.StatusWorking, nil, 0)
	fail := func(err error) {
		o.err = err
		buildpipeline.EmitStage(sink, o.display, buildpipeline.StageResolve, buildpipeline.StatusError, err, time.Since(start))
	}

	src, err := readSource(o.path)
	if err != nil {
		fail(err)
		return
	}
	o.source = src
	name := filepath.Base(o.path)
	resolved, err := b.resolver.Resolve(ctx, name, src)
	if err != nil {
		fail(fmt.Errorf("resolve includes: %w", err))
		return
	}
	o.resolved = resolved
	resolveTime := time.Since(start)
	buildpipeline.EmitStage(sink, o.display, buildpipeline.StageResolve, buildpipeline.StatusDone, nil, resolveTime)

	cfg := b.cfg
	cfg.Dependencies = resolved.Bundle
	p := buildpipeline.Pipeline{
		Tools: b.tools,
		Progress: buildpipeline.SinkFunc(func(ev buildpipeline.Event) {
			ev.File = o.display
			sink.OnEvent(ev)
		}),
	}
	res, err := p.Run(ctx, name, src, cfg)
	if err != nil {
		o.err = err
		return
	}
	res.Timings.Set(buildpipeline.StageResolve, resolveTime)
	o.result = res
	o.written, o.err = writeArtifacts(b.outDir, outputStem(o.path), res, b.hex)
}

// writeArtifacts stores the outputs of a successful run under dir.
func writeArtifacts(dir, stem string, res *buildpipeline.Result, hex bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	files := []struct {
		ext  string
		data []byte
	}{
		{".bin", res.Binary},
		{".elf", res.ELF},
		{".lst", []byte(res.Listing)},
		{".map", []byte(res.Map)},
	}
	if hex {
		files = append(files, struct {
			ext  string
			data []byte
		}{".hex", []byte(image.HexDumpString(res.Image))})
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(dir, stem+f.ext)
		if err := os.WriteFile(p, f.data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", p, err)
		}
		written = append(written, p)
	}
	return written, nil
}

func outcomeDiagnostics(o *targetOutcome) []diag.Diagnostic {
	if o.result != nil {
		return o.result.Diagnostics
	}
	var perr *buildpipeline.PipelineError
	if errors.As(o.err, &perr) {
		return perr.Diagnostics
	}
	return nil
}

func (o *targetOutcome) lookupSource(name string) ([]byte, bool) {
	if name == filepath.Base(o.path) {
		return o.source, o.source != nil
	}
	if o.resolved == nil {
		return nil, false
	}
	u, ok := o.resolved.Bundle[name]
	if !ok || u.Binary {
		return nil, false
	}
	return u.Data, true
}

func reportOutcomes(cmd *cobra.Command, root string, outcomes []*targetOutcome, opts buildOptions) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	warn := color.New(color.FgYellow, color.Bold)
	bad := color.New(color.FgRed, color.Bold)

	var all []diag.Diagnostic
	failed := 0
	for _, o := range outcomes {
		if o.resolved != nil && !opts.quiet {
			for _, fe := range o.resolved.Skipped {
				fmt.Fprintf(stderr, "%s %s: %v\n", warn.Sprint("warning:"), o.display, fe)
			}
		}
		diags := outcomeDiagnostics(o)
		all = append(all, diags...)
		if opts.format == "pretty" && len(diags) > 0 {
			err := diagfmt.Pretty(stderr, diags, diagfmt.PrettyOpts{
				Color:   !color.NoColor,
				Context: true,
				Max:     opts.maxDiags,
				Width:   120,
				Sources: o.lookupSource,
			})
			if err != nil {
				return err
			}
		}

		if o.err != nil {
			failed++
			fmt.Fprintf(stderr, "%s %s: %v\n", bad.Sprint("error:"), o.display, o.err)
			continue
		}
		if opts.timings {
			if err := printStageTimings(stdout, o.display, o.result.Timings); err != nil {
				return err
			}
		}
		if !opts.quiet && len(o.written) > 0 {
			fmt.Fprintf(stdout, "built %s (%d bytes)\n", formatPathForOutput(root, o.written[0]), len(o.result.Binary))
		}
	}

	if err := writeStructuredDiagnostics(stdout, all, opts); err != nil {
		return err
	}
	if failed > 0 {
		dumpTraceRing(cmd, stderr)
		return fmt.Errorf("%d of %d targets failed", failed, len(outcomes))
	}
	return nil
}

func writeStructuredDiagnostics(w io.Writer, items []diag.Diagnostic, opts buildOptions) error {
	switch opts.format {
	case "json":
		return diagfmt.JSON(w, items, diagfmt.JSONOpts{Max: opts.maxDiags})
	case "sarif":
		return diagfmt.Sarif(w, items, diagfmt.SarifRunMeta{
			ToolName:       "zealbuild",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
		})
	}
	return nil
}

func init() {
	buildCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json|sarif)")
	buildCmd.Flags().IntP("jobs", "j", 4, "targets built in parallel (0 = unlimited)")
	buildCmd.Flags().Bool("hex", false, "also write a hex dump of the memory image")
	buildCmd.Flags().String("base", "", `link base address, "linked" or an address like 0x4000`)
	buildCmd.Flags().BoolP("verbose", "v", false, "pass verbose flags to the toolchain")
	buildCmd.Flags().Bool("allow-warnings", false, "fail only on error diagnostics")
	buildCmd.Flags().Bool("offline", false, "resolve includes from the user directory only")
	buildCmd.Flags().Bool("no-cache", false, "bypass the include cache")
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
}
