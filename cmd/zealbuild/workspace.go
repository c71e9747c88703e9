package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"zealbuild/internal/buildpipeline"
	"zealbuild/internal/include"
	"zealbuild/internal/project"
	"zealbuild/internal/vfs"
)

const noManifestMessage = `no zeal.toml found in this directory or its parents.

Run "zealbuild init" to create a project, or pass the source files to build.`

const remoteTimeout = 30 * time.Second

// workspace is the project a command operates on: the directory holding
// zeal.toml, or the working directory when files are built loose.
type workspace struct {
	root     string
	manifest *project.Manifest // nil for loose files
	cfg      project.Config
}

func openWorkspace(startDir string) (*workspace, error) {
	m, ok, err := project.LoadFromDir(startDir)
	if err != nil {
		return nil, err
	}
	var ws *workspace
	if ok {
		ws = &workspace{root: m.Root, manifest: m, cfg: m.Config}
	} else {
		abs, absErr := filepath.Abs(startDir)
		if absErr != nil {
			abs = startDir
		}
		cfg := project.Default(filepath.Base(abs))
		cfg.Build.Main = ""
		cfg.Build.Uses = ""
		ws = &workspace{root: abs, cfg: cfg}
	}
	if err := project.LoadDotEnv(ws.root); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	project.ApplyEnv(&ws.cfg)
	return ws, nil
}

// targets returns the host paths to build: the explicit arguments, or the
// manifest entry point.
func (ws *workspace) targets(args []string) ([]string, error) {
	if len(args) > 0 {
		out := make([]string, 0, len(args))
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, abs)
		}
		return out, nil
	}
	if ws.manifest == nil {
		return nil, errors.New(noManifestMessage)
	}
	return []string{ws.manifest.MainPath()}, nil
}

func (ws *workspace) outDir() string {
	if ws.manifest != nil {
		return ws.manifest.OutDir()
	}
	return filepath.Join(ws.root, ws.cfg.Build.OutDir)
}

func (ws *workspace) tools() buildpipeline.Tools {
	t := ws.cfg.Tools
	return buildpipeline.ExecTools(t.As, t.Ld, t.Objcopy)
}

func (ws *workspace) cacheDir() (string, error) {
	if dir := strings.TrimSpace(ws.cfg.Include.CacheDir); dir != "" {
		if filepath.IsAbs(dir) {
			return dir, nil
		}
		return filepath.Join(ws.root, dir), nil
	}
	return include.CacheDir("zealbuild")
}

type resolverOptions struct {
	offline bool
	noCache bool
}

// resolver wires the local user directory and the configured remote
// location, cached on disk and in memory, into an include resolver.
func (ws *workspace) resolver(opts resolverOptions) (*include.Resolver, error) {
	inc := ws.cfg.Include
	var remote include.Fetcher
	if !opts.offline {
		switch {
		case inc.S3.Enabled():
			s3, err := include.NewS3Fetcher(include.S3Config{
				Endpoint:  inc.S3.Endpoint,
				Region:    inc.S3.Region,
				AccessKey: inc.S3.AccessKey,
				SecretKey: inc.S3.SecretKey,
				Bucket:    inc.S3.Bucket,
				Prefix:    inc.S3.Prefix,
				UseSSL:    inc.S3.UseSSL,
			})
			if err != nil {
				return nil, err
			}
			remote = s3
		case strings.TrimSpace(inc.RemoteURL) != "":
			remote = include.NewHTTPFetcher(inc.RemoteURL, remoteTimeout)
		}
	}
	if remote != nil && !opts.noCache {
		dir, err := ws.cacheDir()
		if err != nil {
			return nil, fmt.Errorf("include cache: %w", err)
		}
		disk, err := include.NewDiskCache(dir, remote, inc.CacheMaxAge.Duration)
		if err != nil {
			return nil, fmt.Errorf("include cache: %w", err)
		}
		mem, err := include.NewMemoryCache(disk, inc.CacheEntries)
		if err != nil {
			return nil, fmt.Errorf("include cache: %w", err)
		}
		remote = mem
	}

	r := include.New(vfs.NewOSStore(ws.root), remote)
	r.LocalPrefix = inc.LocalPrefix
	if remote != nil {
		r.Primary.Prefix = inc.PrimaryPrefix
		r.Fallback.Prefix = inc.FallbackPrefix
	}
	return r, nil
}

// pipelineConfig merges the manifest with command-line overrides.
func (ws *workspace) pipelineConfig(baseOverride string, verbose, allowWarnings bool) (buildpipeline.Config, error) {
	base, err := ws.cfg.Base()
	if err != nil {
		return buildpipeline.Config{}, err
	}
	if strings.TrimSpace(baseOverride) != "" {
		if base, err = buildpipeline.ParseBaseAddress(baseOverride); err != nil {
			return buildpipeline.Config{}, fmt.Errorf("--base: %w", err)
		}
	}
	return buildpipeline.Config{
		Verbose:       verbose || ws.cfg.Build.Verbose,
		BaseAddress:   base,
		AllowWarnings: allowWarnings || ws.cfg.Build.AllowWarnings,
	}, nil
}

func readSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return data, nil
}

// outputStem names the artifacts written for a source file.
func outputStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
