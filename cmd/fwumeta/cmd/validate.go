/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/fwumeta/pkg/fwu"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate FWU metadata records",
		Long: `Validate FWU metadata records the way boot firmware does before trusting
them: version, sizes, bank indices, bank states, accepted images and CRC-32.

Examples:
  fwumeta validate fwu-metadata.bin
  fwumeta validate primary.bin backup.bin`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				r, err := fwu.ValidateBytes(data)
				if err != nil {
					failed++
					cmd.PrintErrf("%s: INVALID: %v\n", path, err)
					continue
				}
				cmd.Printf("%s: valid (%d banks, %d images, active bank %d)\n",
					path, r.NumBanks, len(r.Images), r.ActiveIndex)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d records failed validation", failed, len(args))
			}
			return nil
		},
	}
}
