package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zealbuild/internal/buildpipeline"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadFromDirWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), `
[package]
name = "hello"

[build]
main = "src/main.asm"
uses = "zealos"

[include]
remote_url = "https://zeal8bit.com/playground"
cache_max_age = "24h"

[include.s3]
endpoint = "localhost:9000"
bucket = "zeal-sdk"
`)
	nested := filepath.Join(root, "src", "lib")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	m, ok, err := LoadFromDir(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, root, m.Root)
	assert.Equal(t, filepath.Join(root, "src", "main.asm"), m.MainPath())
	assert.Equal(t, filepath.Join(root, "build"), m.OutDir())
	assert.Equal(t, "user", m.Config.Include.LocalPrefix)
	assert.Equal(t, "files/headers", m.Config.Include.PrimaryPrefix)
	assert.Equal(t, 24*time.Hour, m.Config.Include.CacheMaxAge.Duration)
	assert.True(t, m.Config.Include.S3.Enabled())

	base, err := m.Config.Base()
	require.NoError(t, err)
	assert.Equal(t, buildpipeline.Fixed(0x4000), base)
}

func TestLoadFromDirWithoutManifest(t *testing.T) {
	_, ok, err := LoadFromDir(t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadValidates(t *testing.T) {
	tests := map[string]string{
		"missing name": "[build]\nmain = \"main.asm\"\n",
		"missing main": "[package]\nname = \"x\"\n",
		"bad base":     "[package]\nname = \"x\"\n[build]\nmain = \"m.asm\"\nbase_address = \"0x1FFFF\"\n",
		"unknown key":  "[package]\nname = \"x\"\n[build]\nmain = \"m.asm\"\norigin = 1\n",
		"invalid toml": "[package\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ManifestName)
			writeFile(t, path, content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestBase(t *testing.T) {
	cfg := Config{}
	base, err := cfg.Base()
	require.NoError(t, err)
	assert.True(t, base.IsLinked())

	cfg.Build.Uses = "ZealOS"
	base, err = cfg.Base()
	require.NoError(t, err)
	assert.Equal(t, buildpipeline.Fixed(0x4000), base)

	cfg.Build.BaseAddress = "linked"
	base, err = cfg.Base()
	require.NoError(t, err)
	assert.True(t, base.IsLinked(), "explicit base_address wins over uses")
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestName)
	require.NoError(t, Write(path, Default("demo")))
	assert.Error(t, Write(path, Default("demo")), "existing manifest is not overwritten")

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", m.Config.Package.Name)
	assert.Equal(t, "main.asm", m.Config.Build.Main)
	assert.Equal(t, UsesZealOS, m.Config.Build.Uses)
}

func TestApplyEnv(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "ZEAL_S3_ACCESS_KEY=from-dotenv\nZEAL_S3_USE_SSL=true\n")
	t.Setenv(EnvS3AccessKey, "")
	t.Setenv(EnvS3UseSSL, "")
	t.Setenv(EnvRemoteURL, "http://localhost:8080")
	require.NoError(t, os.Unsetenv(EnvS3AccessKey))
	require.NoError(t, os.Unsetenv(EnvS3UseSSL))

	require.NoError(t, LoadDotEnv(root))
	require.NoError(t, LoadDotEnv(t.TempDir()), "missing .env is fine")

	cfg := Default("x")
	cfg.Include.RemoteURL = "https://example.invalid"
	ApplyEnv(&cfg)
	assert.Equal(t, "http://localhost:8080", cfg.Include.RemoteURL)
	assert.Equal(t, "from-dotenv", cfg.Include.S3.AccessKey)
	assert.True(t, cfg.Include.S3.UseSSL)
}
