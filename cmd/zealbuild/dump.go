package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zealbuild/internal/image"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <listing>",
	Short: "Rebuild the memory image from an assembler listing",
	Long: `Parse a GNU as listing (as produced with -alh), lay its bytes out at their
addresses and print a hex dump of the result.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read listing: %w", err)
	}
	chunks := image.ParseListing(string(text))
	img := image.Assemble(chunks)

	if outPath != "" {
		if err := os.WriteFile(outPath, img, 0o644); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
	}
	if err := image.HexDump(cmd.OutOrStdout(), img); err != nil {
		return err
	}
	if !quiet(cmd) && len(chunks) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d chunks, %d bytes from 0x%04x\n", len(chunks), len(img), chunks[0].Address)
	}
	return nil
}

func init() {
	dumpCmd.Flags().StringP("out", "o", "", "also write the raw image to this file")
}
