package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"zealbuild/internal/include"
	"zealbuild/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new Zeal 8-bit project",
	Long: `Initialize a new project by creating a manifest (zeal.toml), a hello-world
entry point (main.asm) and the user include directory. If [path|name] is
omitted, initializes the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	target := wd
	if len(args) > 0 && args[0] != "." {
		target = args[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(wd, target)
		}
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "zeal-project"
	}

	manifestPath := filepath.Join(target, project.ManifestName)
	cfg := project.Default(name)
	if err := project.Write(manifestPath, cfg); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("project already initialized: %s exists", manifestPath)
		}
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	created := []string{project.ManifestName}
	mainPath := filepath.Join(target, filepath.FromSlash(cfg.Build.Main))
	if _, err := os.Stat(mainPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(mainPath, []byte(defaultMainASM()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.Build.Main, err)
		}
		created = append(created, cfg.Build.Main)
	} else {
		created = append(created, cfg.Build.Main+" (existing)")
	}
	userDir := filepath.Join(target, include.DefaultLocalPrefix)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", include.DefaultLocalPrefix, err)
	}
	created = append(created, include.DefaultLocalPrefix+"/")

	rel := target
	if r, err := filepath.Rel(wd, target); err == nil {
		rel = r
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized zeal project in %s\n", rel)
	for _, f := range created {
		fmt.Fprintf(out, "  - %s\n", f)
	}
	return nil
}

// defaultMainASM is a Zeal 8-bit OS program that prints a greeting and exits.
func defaultMainASM() string {
	return `    ; Hello world for Zeal 8-bit OS.
    .include "zos_sys.asm"

    .text
_start:
    S_WRITE3(DEV_STDOUT, _message, _message_end - _message)
    EXIT()

_message:
    .ascii "Hello, World!\n"
_message_end:
`
}
