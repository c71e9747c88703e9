package prof

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:          filepath.Join(dir, "cpu.pprof"),
		Mem:          filepath.Join(dir, "mem.pprof"),
		RuntimeTrace: filepath.Join(dir, "trace.out"),
	}
	require.True(t, opts.Enabled())

	s, err := Start(opts)
	require.NoError(t, err)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	for _, p := range []string{opts.CPU, opts.Mem, opts.RuntimeTrace} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, info.Size(), p)
	}
}

func TestStartFailsCleanly(t *testing.T) {
	dir := t.TempDir()
	_, err := Start(Options{CPU: filepath.Join(dir, "cpu.pprof"), RuntimeTrace: filepath.Join(dir, "missing", "trace.out")})
	require.Error(t, err)

	// The CPU profiler was released, so a new session can start.
	s, err := Start(Options{CPU: filepath.Join(dir, "cpu2.pprof")})
	require.NoError(t, err)
	assert.NoError(t, s.Stop())
}

func TestNilSessionStop(t *testing.T) {
	var s *Session
	assert.NoError(t, s.Stop())
	assert.False(t, Options{}.Enabled())
}
