/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/fwumeta/pkg/codec"
	"github.com/ssargent/fwumeta/pkg/fwu"
)

// dumpFlags are the dump command flags
type dumpFlags struct {
	numBanks      int
	imagesPerBank int
	verifyCRC     bool
	asJSON        bool
}

func newDumpCmd() *cobra.Command {
	f := &dumpFlags{}

	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Dump an FWU metadata record",
		Long: `Dump every field of an FWU metadata record.

The shape is read from the record's descriptor header unless --banks and
--img-per-bank are both given, in which case the record must have exactly that
shape.

Examples:
  fwumeta dump fwu-metadata.bin
  fwumeta dump fwu-metadata.bin -b 2 -p 1 --verify-crc
  fwumeta dump fwu-metadata.bin --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return codec.Errorf(codec.KindMissingInput, "dump: no input file")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			md, err := f.decode(cmd, data)
			if err != nil {
				return err
			}

			if f.asJSON {
				rec, err := fwu.FromMetadata(md)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			return md.Dump(cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&f.numBanks, "banks", "b", 0, "Expected number of banks")
	cmd.Flags().IntVarP(&f.imagesPerBank, "img-per-bank", "p", 0, "Expected number of images per bank")
	cmd.Flags().BoolVar(&f.verifyCRC, "verify-crc", false, "Fail when the stored CRC-32 does not match")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the decoded record as JSON")
	return cmd
}

func (f *dumpFlags) decode(cmd *cobra.Command, data []byte) (*codec.Metadata, error) {
	var opts []codec.DecodeOption
	if f.verifyCRC {
		opts = append(opts, codec.WithChecksumVerification())
	}

	banks, images := cmd.Flags().Changed("banks"), cmd.Flags().Changed("img-per-bank")
	switch {
	case banks && images:
		return codec.DecodeMetadata(data, f.imagesPerBank, f.numBanks, opts...)
	case banks || images:
		return nil, codec.Errorf(codec.KindInvalidArgument, "dump: --banks and --img-per-bank must be given together")
	}
	return codec.DecodeMetadataAuto(data, opts...)
}
