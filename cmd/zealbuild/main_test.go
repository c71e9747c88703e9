package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zealbuild/internal/buildpipeline"
	"zealbuild/internal/include"
	"zealbuild/internal/vfs"
)

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, " on ": uiModeOn, "off": uiModeOff} {
		got, err := readUIMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := readUIMode("maybe")
	assert.Error(t, err)
	assert.True(t, shouldUseTUI(uiModeOn))
	assert.False(t, shouldUseTUI(uiModeOff))
}

func TestOutputHelpers(t *testing.T) {
	assert.Equal(t, "main", outputStem("/p/src/main.asm"))
	assert.Equal(t, "boot", outputStem("boot"))
	assert.Equal(t, "build/main.bin", formatPathForOutput("/p", "/p/build/main.bin"))
	assert.Equal(t, "/elsewhere/x", formatPathForOutput("/p", "/elsewhere/x"))
	assert.Equal(t, "x", formatPathForOutput("", "x"))
}

func clearZealEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ZEAL_REMOTE_URL", "ZEAL_S3_ENDPOINT", "ZEAL_S3_BUCKET", "ZEAL_S3_REGION", "ZEAL_S3_ACCESS_KEY", "ZEAL_S3_SECRET_KEY", "ZEAL_S3_USE_SSL", "ZEAL_CACHE_DIR"} {
		t.Setenv(key, "")
	}
}

func TestOpenWorkspaceWithManifest(t *testing.T) {
	clearZealEnv(t)
	dir := t.TempDir()
	manifest := `[package]
name = "demo"

[build]
main = "src/main.asm"
uses = "zealos"
out_dir = "out"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zeal.toml"), []byte(manifest), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))

	ws, err := openWorkspace(filepath.Join(dir, "src"))
	require.NoError(t, err)
	assert.Equal(t, dir, ws.root)
	assert.Equal(t, filepath.Join(dir, "out"), ws.outDir())

	paths, err := ws.targets(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "src", "main.asm")}, paths)

	cfg, err := ws.pipelineConfig("", false, false)
	require.NoError(t, err)
	addr, fixed := cfg.BaseAddress.Addr()
	assert.True(t, fixed)
	assert.Equal(t, uint16(0x4000), addr)

	cfg, err = ws.pipelineConfig("linked", true, true)
	require.NoError(t, err)
	assert.True(t, cfg.BaseAddress.IsLinked())
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.AllowWarnings)

	_, err = ws.pipelineConfig("0x10000", false, false)
	assert.Error(t, err)
}

func TestOpenWorkspaceLooseFiles(t *testing.T) {
	clearZealEnv(t)
	dir := t.TempDir()
	ws, err := openWorkspace(dir)
	require.NoError(t, err)
	assert.Nil(t, ws.manifest)

	_, err = ws.targets(nil)
	assert.EqualError(t, err, noManifestMessage)

	cfg, err := ws.pipelineConfig("", false, false)
	require.NoError(t, err)
	assert.True(t, cfg.BaseAddress.IsLinked())
}

func TestWorkspaceResolverUsesDotEnvRemote(t *testing.T) {
	clearZealEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ZEAL_REMOTE_URL=http://127.0.0.1:1/\n"), 0o644))
	t.Setenv("ZEAL_CACHE_DIR", filepath.Join(dir, "cache"))
	// godotenv never overrides a variable that is set, even to "".
	require.NoError(t, os.Unsetenv("ZEAL_REMOTE_URL"))

	ws, err := openWorkspace(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:1/", ws.cfg.Include.RemoteURL)

	r, err := ws.resolver(resolverOptions{})
	require.NoError(t, err)
	assert.NotNil(t, r.Primary.Fetcher)
	assert.Equal(t, include.DefaultPrimaryPrefix, r.Primary.Prefix)
	assert.DirExists(t, filepath.Join(dir, "cache"))

	r, err = ws.resolver(resolverOptions{offline: true})
	require.NoError(t, err)
	assert.Nil(t, r.Primary.Fetcher)
	assert.Equal(t, include.DefaultLocalPrefix, r.LocalPrefix)
}

// stubTools produce the declared outputs of every stage.
func stubTools(calls *[]buildpipeline.Stage) buildpipeline.Tools {
	write := func(outputs ...string) buildpipeline.ToolFunc {
		return func(_ context.Context, inv buildpipeline.Invocation) (int, error) {
			*calls = append(*calls, inv.Stage)
			for _, name := range outputs {
				if err := inv.Store.WriteFile(name, []byte(name)); err != nil {
					return -1, err
				}
			}
			return 0, nil
		}
	}
	listing := func(_ context.Context, inv buildpipeline.Invocation) (int, error) {
		*calls = append(*calls, inv.Stage)
		if err := inv.Store.WriteFile("src/main.asm.o", []byte{0x7f}); err != nil {
			return -1, err
		}
		return 0, inv.Store.WriteFile("src/main.asm.lst", []byte("   1 4000 3E01     \t ld a, 1\n"))
	}
	return buildpipeline.Tools{
		Assemble: buildpipeline.ToolFunc(listing),
		Link:     write("src/main.asm.elf", "src/main.asm.map"),
		Extract:  write("src/main.asm.bin"),
	}
}

func TestBuildAllWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "user"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user", "defs.asm"), []byte("X = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.asm"), []byte(".include \"defs.asm\"\n.include \"gone.asm\"\n"), 0o644))

	var calls []buildpipeline.Stage
	b := &builder{
		cfg:      buildpipeline.Config{BaseAddress: buildpipeline.Fixed(0x4000)},
		tools:    stubTools(&calls),
		resolver: include.New(vfs.NewOSStore(dir), nil),
		outDir:   filepath.Join(dir, "build"),
		hex:      true,
	}
	o := &targetOutcome{path: filepath.Join(dir, "main.asm"), display: "main.asm"}

	var events []buildpipeline.Event
	sink := buildpipeline.SinkFunc(func(ev buildpipeline.Event) { events = append(events, ev) })
	require.NoError(t, b.buildAll(context.Background(), []*targetOutcome{o}, 1, sink))
	require.NoError(t, o.err)

	assert.Equal(t, []buildpipeline.Stage{buildpipeline.StageAssemble, buildpipeline.StageLink, buildpipeline.StageExtract}, calls)
	assert.Contains(t, o.resolved.Bundle, "defs.asm")
	require.Len(t, o.resolved.Skipped, 1)
	assert.True(t, o.result.Timings.Has(buildpipeline.StageResolve))

	bin, err := os.ReadFile(filepath.Join(dir, "build", "main.bin"))
	require.NoError(t, err)
	assert.Equal(t, "src/main.asm.bin", string(bin))
	hexDump, err := os.ReadFile(filepath.Join(dir, "build", "main.hex"))
	require.NoError(t, err)
	assert.Equal(t, "0000: 3e 01\n", string(hexDump))
	assert.Len(t, o.written, 5)

	require.NotEmpty(t, events)
	assert.Equal(t, buildpipeline.StageResolve, events[0].Stage)
	for _, ev := range events {
		assert.Equal(t, "main.asm", ev.File)
	}
	last := events[len(events)-1]
	assert.Equal(t, buildpipeline.StageExtract, last.Stage)
	assert.Equal(t, buildpipeline.StatusDone, last.Status)

	data, ok := o.lookupSource("defs.asm")
	assert.True(t, ok)
	assert.Equal(t, "X = 1\n", string(data))
	_, ok = o.lookupSource("main.asm")
	assert.True(t, ok)
	_, ok = o.lookupSource("missing.asm")
	assert.False(t, ok)
}

func TestBuildAllRecordsPipelineFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.asm"), []byte("nop\n"), 0o644))

	failing := buildpipeline.ToolFunc(func(_ context.Context, inv buildpipeline.Invocation) (int, error) {
		inv.Stderr("main.asm:1: Error: unknown opcode")
		return 1, nil
	})
	b := &builder{
		tools:    buildpipeline.Tools{Assemble: failing},
		resolver: include.New(vfs.NewOSStore(dir), nil),
		outDir:   filepath.Join(dir, "build"),
	}
	o := &targetOutcome{path: filepath.Join(dir, "main.asm"), display: "main.asm"}
	require.NoError(t, b.buildAll(context.Background(), []*targetOutcome{o}, 0, nil))

	require.Error(t, o.err)
	diags := outcomeDiagnostics(o)
	require.Len(t, diags, 1)
	assert.Equal(t, "main.asm", diags[0].File)
	assert.NoDirExists(t, filepath.Join(dir, "build"))
}

func TestBuildAllMissingSource(t *testing.T) {
	dir := t.TempDir()
	b := &builder{resolver: include.New(vfs.NewOSStore(dir), nil)}
	o := &targetOutcome{path: filepath.Join(dir, "absent.asm"), display: "absent.asm"}
	require.NoError(t, b.buildAll(context.Background(), []*targetOutcome{o}, 2, nil))
	assert.ErrorIs(t, o.err, os.ErrNotExist)
	assert.Nil(t, outcomeDiagnostics(o))
}
