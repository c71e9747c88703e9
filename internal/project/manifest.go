// Package project loads the zeal.toml manifest and its environment overlay.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"zealbuild/internal/buildpipeline"
	"zealbuild/internal/include"
)

// UsesZealOS selects the Zeal 8-bit OS program layout.
const UsesZealOS = "zealos"

// zealOSBase is where Zeal 8-bit OS loads user programs.
const zealOSBase = 0x4000

// Manifest is a loaded zeal.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors zeal.toml.
type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
	Tools   ToolsConfig   `toml:"tools"`
	Include IncludeConfig `toml:"include"`
}

type PackageConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version,omitempty"`
}

type BuildConfig struct {
	Main          string `toml:"main"`
	Uses          string `toml:"uses,omitempty"`
	BaseAddress   string `toml:"base_address,omitempty"` // "linked" or an address; derived from uses when empty
	Verbose       bool   `toml:"verbose,omitempty"`
	AllowWarnings bool   `toml:"allow_warnings,omitempty"`
	OutDir        string `toml:"out_dir,omitempty"`
}

type ToolsConfig struct {
	As      string `toml:"as,omitempty"`
	Ld      string `toml:"ld,omitempty"`
	Objcopy string `toml:"objcopy,omitempty"`
}

type IncludeConfig struct {
	LocalPrefix    string   `toml:"local_prefix,omitempty"`
	RemoteURL      string   `toml:"remote_url,omitempty"`
	PrimaryPrefix  string   `toml:"primary_prefix,omitempty"`
	FallbackPrefix string   `toml:"fallback_prefix,omitempty"`
	CacheDir       string   `toml:"cache_dir,omitempty"`
	CacheEntries   int      `toml:"cache_entries,omitempty"`
	CacheMaxAge    Duration `toml:"cache_max_age,omitempty"`
	S3             S3Config `toml:"s3,omitempty"`
}

// S3Config locates a bucket of shared includes. Credentials only come from
// the environment.
type S3Config struct {
	Endpoint  string `toml:"endpoint,omitempty"`
	Region    string `toml:"region,omitempty"`
	Bucket    string `toml:"bucket,omitempty"`
	Prefix    string `toml:"prefix,omitempty"`
	UseSSL    bool   `toml:"use_ssl,omitempty"`
	AccessKey string `toml:"-"`
	SecretKey string `toml:"-"`
}

// Enabled reports whether an S3 location is configured.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Bucket) != ""
}

// Duration is a time.Duration written as "24h" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration written by "zealbuild init".
func Default(name string) Config {
	cfg := Config{
		Package: PackageConfig{Name: name, Version: "0.1.0"},
		Build:   BuildConfig{Main: "main.asm", Uses: UsesZealOS},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Build.OutDir == "" {
		c.Build.OutDir = "build"
	}
	if c.Include.LocalPrefix == "" {
		c.Include.LocalPrefix = include.DefaultLocalPrefix
	}
	if c.Include.PrimaryPrefix == "" {
		c.Include.PrimaryPrefix = include.DefaultPrimaryPrefix
	}
	if c.Include.FallbackPrefix == "" {
		c.Include.FallbackPrefix = include.DefaultFallbackPrefix
	}
	if c.Include.CacheEntries <= 0 {
		c.Include.CacheEntries = 256
	}
}

// Base returns the link base address. An explicit base_address wins;
// otherwise Zeal 8-bit OS programs start at 0x4000 and anything else uses
// the default linker script.
func (c Config) Base() (buildpipeline.BaseAddress, error) {
	if strings.TrimSpace(c.Build.BaseAddress) != "" {
		return buildpipeline.ParseBaseAddress(c.Build.BaseAddress)
	}
	if strings.EqualFold(strings.TrimSpace(c.Build.Uses), UsesZealOS) {
		return buildpipeline.Fixed(zealOSBase), nil
	}
	return buildpipeline.Linked(), nil
}

// Load reads and validates the manifest at path. Environment overrides
// are not applied; see ApplyEnv.
func Load(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return nil, fmt.Errorf("%s: missing [package].name", path)
	}
	if !meta.IsDefined("build", "main") || strings.TrimSpace(cfg.Build.Main) == "" {
		return nil, fmt.Errorf("%s: missing [build].main", path)
	}
	if _, err := cfg.Base(); err != nil {
		return nil, fmt.Errorf("%s: [build].base_address: %w", path, err)
	}
	cfg.applyDefaults()
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// LoadFromDir finds and loads the manifest governing startDir. ok is false
// when there is none.
func LoadFromDir(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := Load(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// MainPath returns the host path of [build].main.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Build.Main))
}

// OutDir returns the host path of the output directory.
func (m *Manifest) OutDir() string {
	if filepath.IsAbs(m.Config.Build.OutDir) {
		return m.Config.Build.OutDir
	}
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Build.OutDir))
}

// Write encodes cfg as a new manifest at path. It fails if path exists.
func Write(path string, cfg Config) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
