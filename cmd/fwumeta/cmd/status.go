/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/fwumeta/pkg/codec"
	"github.com/ssargent/fwumeta/pkg/fwu"
)

func bankStateName(state uint8) string {
	switch state {
	case codec.BankStateAccepted:
		return "accepted"
	case codec.BankStateValid:
		return "valid"
	case codec.BankStateInvalid:
		return "invalid"
	}
	return fmt.Sprintf("0x%02x", state)
}

func newStatusCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the stored record",
		Long: `Load the stored record, repairing a corrupt primary or backup copy from the
other, and show which bank is active and which images are accepted.

Example:
  fwumeta status --store-dir ./fwu-store`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(s, func(a *fwu.Agent) error {
				r, res, err := a.Load()
				if err != nil {
					return err
				}
				if res.Restored != "" {
					cmd.Printf("Restored %s from the other copy\n", res.Restored)
				}

				trial, err := r.TrialRun()
				if err != nil {
					return err
				}
				cmd.Printf("Active bank:          %d\n", r.ActiveIndex)
				cmd.Printf("Previous active bank: %d\n", r.PreviousActiveIndex)
				cmd.Printf("Update bank:          %d\n", r.UpdateIndex())
				cmd.Printf("Trial run:            %t\n", trial)
				for b := 0; b < int(r.NumBanks); b++ {
					cmd.Printf("Bank %d: %s\n", b, bankStateName(r.BankState[b]))
					for _, img := range r.Images {
						cmd.Printf("  %s  image %s  accepted=%t\n",
							img.TypeID, img.Banks[b].ImageID, img.Banks[b].IsAccepted())
					}
				}
				return nil
			})
		},
	}
}
