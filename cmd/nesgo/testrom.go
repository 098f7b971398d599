package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nesgo/internal/machine"
	"nesgo/internal/region"
)

func testROMCmd() *cobra.Command {
	var maxFrames int
	var regionName string

	cmd := &cobra.Command{
		Use:   "testrom <rom>",
		Short: "Run a test ROM headlessly and report its $6000 status-byte result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			romBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			m := machine.New(machine.FormatPaletteIndex, parseRegion(regionName), 44100)
			if err := m.InsertCartridge(romBytes); err != nil {
				return err
			}

			for frame := 0; frame < maxFrames; frame++ {
				m.RunFrame(false)
				status, message := m.TestROMStatus()
				if status == 0x80 {
					continue
				}
				if message != "" {
					fmt.Println(message)
				}
				if status == 0x00 {
					fmt.Println("PASS")
					return nil
				}
				return fmt.Errorf("test ROM failed: status $%02X", status)
			}
			return fmt.Errorf("test ROM did not finish within %d frames", maxFrames)
		},
	}
	cmd.Flags().IntVar(&maxFrames, "max-frames", 3600, "give up after this many frames without a result")
	cmd.Flags().StringVar(&regionName, "region", "ntsc", "ntsc, pal, or dendy")
	return cmd
}

func parseRegion(name string) region.Region {
	switch name {
	case "pal":
		return region.PAL
	case "dendy":
		return region.Dendy
	default:
		return region.NTSC
	}
}
