// Command nesgo is the NES/Famicom emulator's command-line entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nesgo/internal/version"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nesgo",
		Short: "A cycle-accurate NES/Famicom emulator core",
		Long:  "nesgo emulates the NES/Famicom CPU, PPU, APU and cartridge mappers.",
	}
	root.AddCommand(runCmd())
	root.AddCommand(testROMCmd())
	root.AddCommand(versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build and version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			version.PrintBuildInfo()
			return nil
		},
	}
}
