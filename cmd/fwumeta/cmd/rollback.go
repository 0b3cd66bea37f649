/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/fwumeta/pkg/fwu"
)

func newRollbackCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Restore the active bank from the previous active bank",
		Long: `Copy the image metadata and bank state of the previous active bank over the
active bank. The previous active bank must be accepted.

Example:
  fwumeta rollback`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(s, func(a *fwu.Agent) error {
				if err := a.Rollback(); err != nil {
					return err
				}
				r := a.Record()
				cmd.Printf("Rolled back bank %d from bank %d\n", r.ActiveIndex, r.PreviousActiveIndex)
				return nil
			})
		},
	}
}
