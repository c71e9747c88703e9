package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [file]",
	Short: "Show the includes a source file pulls in",
	Long: `Resolve every .include and .incbin reachable from a source file and list
the dependency bundle the assembler would see. Defaults to [build].main.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	offline, err := cmd.Flags().GetBool("offline")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
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
	resolver, err := ws.resolver(resolverOptions{offline: offline, noCache: noCache})
	if err != nil {
		return err
	}
	src, err := readSource(paths[0])
	if err != nil {
		return err
	}
	res, err := resolver.Resolve(cmd.Context(), filepath.Base(paths[0]), src)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range res.Bundle.Names() {
		u := res.Bundle[name]
		kind := "text"
		if u.Binary {
			kind = "binary"
		}
		fmt.Fprintf(out, "%8d  %-6s  %s\n", len(u.Data), kind, name)
	}
	if !quiet(cmd) {
		fmt.Fprintf(out, "%d units, %d bytes\n", len(res.Bundle), res.Bundle.Size())
	}
	warn := color.New(color.FgYellow, color.Bold)
	for _, fe := range res.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", warn.Sprint("skipped:"), fe)
	}
	return nil
}

func init() {
	resolveCmd.Flags().Bool("offline", false, "resolve from the user directory only")
	resolveCmd.Flags().Bool("no-cache", false, "bypass the include cache")
}
