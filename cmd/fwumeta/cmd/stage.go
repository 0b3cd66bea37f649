/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/fwumeta/pkg/codec"
	"github.com/ssargent/fwumeta/pkg/fwu"
)

func newStageCmd(s *settings) *cobra.Command {
	var bank int

	cmd := &cobra.Command{
		Use:   "stage <image-type-guid> <image-guid>",
		Short: "Record a new image written to the update bank",
		Long: `Record that a new copy of an image type has been written to a bank. The copy
starts unaccepted. Without --bank the update bank (the one after the active
bank) is used.

Example:
  fwumeta stage 00112233-4455-6677-8899-aabbccddeeff 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typeID, err := parseGUIDArg("image type", args[0])
			if err != nil {
				return err
			}
			imageID, err := parseGUIDArg("image", args[1])
			if err != nil {
				return err
			}

			return withAgent(s, func(a *fwu.Agent) error {
				r, _, err := a.Load()
				if err != nil {
					return err
				}
				target := r.UpdateIndex()
				if cmd.Flags().Changed("bank") {
					target = bank
				}
				if err := a.Stage(typeID, target, imageID); err != nil {
					return err
				}
				cmd.Printf("Staged image %s in bank %d\n", imageID, target)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&bank, "bank", 0, "Bank the image was written to (default: the update bank)")
	return cmd
}

func parseGUIDArg(what, v string) (uuid.UUID, error) {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, codec.Wrap(codec.KindInvalidArgument, err, "%s GUID %q is malformed", what, v)
	}
	return id, nil
}
