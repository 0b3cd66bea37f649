/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ssargent/fwumeta/pkg/codec"
	"github.com/ssargent/fwumeta/pkg/fwu"
)

func newActivateCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <bank>",
		Short: "Make a bank active",
		Long: `Make a bank active. The current active bank becomes the previous active bank,
which rollback returns to.

Example:
  fwumeta activate 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bank, err := strconv.Atoi(args[0])
			if err != nil {
				return codec.Errorf(codec.KindInvalidArgument, "bank %q is not a number", args[0])
			}
			return withAgent(s, func(a *fwu.Agent) error {
				if err := a.Activate(bank); err != nil {
					return err
				}
				r := a.Record()
				cmd.Printf("Active bank %d (previous %d), state %s\n",
					r.ActiveIndex, r.PreviousActiveIndex, bankStateName(r.BankState[r.ActiveIndex]))
				return nil
			})
		},
	}
}
