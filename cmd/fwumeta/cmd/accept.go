/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/fwumeta/pkg/fwu"
)

func newAcceptCmd(s *settings) *cobra.Command {
	var bank int

	cmd := &cobra.Command{
		Use:   "accept <image-type-guid>...",
		Short: "Accept images in the active bank",
		Long: `Mark images as accepted and recompute the bank state. Once every image in a
bank is accepted the bank becomes accepted and the trial run is over.

Examples:
  fwumeta accept 00112233-4455-6677-8899-aabbccddeeff
  fwumeta accept --bank 1 00112233-4455-6677-8899-aabbccddeeff`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(s, func(a *fwu.Agent) error {
				r, _, err := a.Load()
				if err != nil {
					return err
				}
				target := int(r.ActiveIndex)
				if cmd.Flags().Changed("bank") {
					target = bank
				}

				for _, arg := range args {
					typeID, err := parseGUIDArg("image type", arg)
					if err != nil {
						return err
					}
					if err := a.Accept(typeID, target); err != nil {
						return err
					}
					cmd.Printf("Accepted %s in bank %d\n", typeID, target)
				}
				cmd.Printf("Bank %d is %s\n", target, bankStateName(a.Record().BankState[target]))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&bank, "bank", 0, "Bank to accept in (default: the active bank)")
	return cmd
}
