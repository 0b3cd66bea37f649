/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/fwumeta/pkg/codec"
	"github.com/ssargent/fwumeta/pkg/fwu"
)

func newGenerateCmd(s *settings) *cobra.Command {
	var (
		version       uint32
		numBanks      int
		imagesPerBank int
		typeIDs       []string
		locationIDs   []string
		activeIndex   int
		previousIndex int
		output        string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new FWU metadata record",
		Long: `Generate a new FWU metadata record with every image accepted in every bank.

Image type and location GUIDs are taken in order, one per image. When a list is
omitted random GUIDs are generated; a list shorter than the image count is an
error. The record is dumped and, with --output, written verbatim.

Examples:
  fwumeta generate
  fwumeta generate -b 2 -p 2 -o fwu-metadata.bin
  fwumeta generate -p 1 -i 00112233-4455-6677-8899-aabbccddeeff -l 8a7a84a0-8387-40f6-ab41-a8b9a5a60d23`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := fwu.Options{
				Version:       s.cfg.Defaults.Version,
				NumBanks:      s.cfg.Defaults.NumBanks,
				ImagesPerBank: s.cfg.Defaults.ImagesPerBank,
				ActiveIndex:   activeIndex,
			}
			flags := cmd.Flags()
			if flags.Changed("version") {
				opts.Version = version
			}
			if flags.Changed("banks") {
				opts.NumBanks = numBanks
			}
			if flags.Changed("img-per-bank") {
				opts.ImagesPerBank = imagesPerBank
			}
			if flags.Changed("previous-active-index") {
				opts.PreviousActiveIndex = &previousIndex
			}

			var err error
			if opts.ImageTypeIDs, err = parseGUIDList("img-type-guid", typeIDs); err != nil {
				return err
			}
			if opts.LocationIDs, err = parseGUIDList("location-guid", locationIDs); err != nil {
				return err
			}

			md, err := fwu.Build(opts)
			if err != nil {
				return err
			}

			cmd.Println("Generated Firmware Metadata:")
			if err := md.Dump(cmd.OutOrStdout()); err != nil {
				return err
			}

			if output == "" {
				return nil
			}
			data, err := md.Reseal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			cmd.Printf("Wrote %d bytes to %s\n", len(data), output)
			return nil
		},
	}

	cmd.Flags().Uint32VarP(&version, "version", "v", 2, "Metadata version")
	cmd.Flags().IntVarP(&numBanks, "banks", "b", fwu.DefaultNumBanks, "Number of banks")
	cmd.Flags().IntVarP(&imagesPerBank, "img-per-bank", "p", fwu.DefaultImagesPerBank, "Number of images per bank")
	cmd.Flags().StringSliceVarP(&typeIDs, "img-type-guid", "i", nil, "Image type GUIDs, comma separated")
	cmd.Flags().StringSliceVarP(&locationIDs, "location-guid", "l", nil, "Location GUIDs, comma separated")
	cmd.Flags().IntVar(&activeIndex, "active-index", 0, "Active bank index")
	cmd.Flags().IntVar(&previousIndex, "previous-active-index", 0, "Previous active bank index; when unset 1, or 0 for a single bank")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the encoded record to this file")
	return cmd
}

func parseGUIDList(flag string, values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, codec.Wrap(codec.KindInvalidArgument, err, "--%s: %q is not a GUID", flag, v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
