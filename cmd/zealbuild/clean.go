package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zealbuild/internal/include"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build outputs",
	Long:  "Remove the output directory of the project and, with --cache, the include cache.",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	dropCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return err
	}
	ws, err := openWorkspace(".")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	outDir := ws.outDir()
	info, err := os.Stat(outDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(out, "output directory not found")
	case err != nil:
		return fmt.Errorf("failed to stat %q: %w", outDir, err)
	case !info.IsDir():
		return fmt.Errorf("%q is not a directory", outDir)
	default:
		if err := os.RemoveAll(outDir); err != nil {
			return fmt.Errorf("failed to remove %q: %w", outDir, err)
		}
		fmt.Fprintf(out, "removed %s\n", formatPathForOutput(ws.root, outDir))
	}

	if !dropCache {
		return nil
	}
	dir, err := ws.cacheDir()
	if err != nil {
		return err
	}
	cache, err := include.NewDiskCache(dir, nil, 0)
	if err != nil {
		return err
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to clear include cache: %w", err)
	}
	fmt.Fprintf(out, "cleared include cache %s\n", cache.Dir())
	return nil
}

func init() {
	cleanCmd.Flags().Bool("cache", false, "also clear the include cache")
}
