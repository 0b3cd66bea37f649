/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/fwumeta/pkg/codec"
	"github.com/ssargent/fwumeta/pkg/fwu"
	"github.com/ssargent/fwumeta/pkg/storage"
)

// slotNames maps the user-facing slot names to store slots
var slotNames = map[string]string{
	"primary": storage.PrimarySlot,
	"backup":  storage.BackupSlot,
}

// openStore opens the configured metadata store
func openStore(s *settings) (*storage.MetadataStore, error) {
	c, err := requireContainer()
	if err != nil {
		return nil, err
	}
	st, err := c.OpenStore(s.cfg.StoreDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", s.cfg.StoreDir, err)
	}
	return st, nil
}

// withAgent runs fn with an agent over the configured store
func withAgent(s *settings, fn func(*fwu.Agent) error) error {
	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(fwu.NewAgent(st))
}

func newStoreCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the local metadata store",
		Long: `Manage the local metadata store, which keeps a primary and a backup copy of
the record plus a history of every copy written.`,
	}
	cmd.AddCommand(
		newStoreImportCmd(s),
		newStoreExportCmd(s),
		newStoreHistoryCmd(s),
		newStorePruneCmd(s),
	)
	return cmd
}

func newStoreImportCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Install a record as both the primary and backup copy",
		Long: `Install a record as both the primary and backup copy. The record must pass
validation.

Example:
  fwumeta store import fwu-metadata.bin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			return withAgent(s, func(a *fwu.Agent) error {
				r, err := a.Install(data)
				if err != nil {
					return err
				}
				cmd.Printf("Imported %d byte record (%d banks, %d images) into %s\n",
					len(data), r.NumBanks, len(r.Images), s.cfg.StoreDir)
				return nil
			})
		},
	}
}

func newStoreExportCmd(s *settings) *cobra.Command {
	var (
		slot     string
		revision string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a stored copy to a file",
		Long: `Write a stored copy to a file, or to stdout when --output is not given.

Examples:
  fwumeta store export -o fwu-metadata.bin
  fwumeta store export --slot backup -o backup.bin
  fwumeta store export --revision 2aLbWfTcYzb0XZtdUSEqGLjKY7u -o old.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(s)
			if err != nil {
				return err
			}
			defer st.Close()

			var data []byte
			if revision != "" {
				id, err := ksuid.Parse(revision)
				if err != nil {
					return codec.Wrap(codec.KindInvalidArgument, err, "--revision: %q is not a revision id", revision)
				}
				rev, err := st.Revision(id)
				if err != nil {
					return err
				}
				data = rev.Data
			} else {
				name, ok := slotNames[slot]
				if !ok {
					return codec.Errorf(codec.KindInvalidArgument, "--slot: %q, want primary or backup", slot)
				}
				if data, err = st.Get(name); err != nil {
					return err
				}
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			cmd.Printf("Wrote %d bytes to %s\n", len(data), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&slot, "slot", "primary", "Copy to export: primary or backup")
	cmd.Flags().StringVar(&revision, "revision", "", "Export a revision from the history instead of a slot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	return cmd
}

func newStoreHistoryCmd(s *settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored revisions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(s)
			if err != nil {
				return err
			}
			defer st.Close()

			revs, err := st.History(limit)
			if err != nil {
				return err
			}
			if len(revs) == 0 {
				cmd.Println("No revisions stored")
				return nil
			}
			for _, rev := range revs {
				cmd.Printf("%s  %s  %-17s  %d bytes\n",
					rev.ID, rev.Time().UTC().Format(time.RFC3339), rev.Slot, len(rev.Data))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of revisions to list (0 for all)")
	return cmd
}

func newStorePruneCmd(s *settings) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop all but the newest revisions from the history",
		Long: `Drop all but the newest revisions from the history. The primary and backup
copies are not affected.

Example:
  fwumeta store prune --keep 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return codec.Errorf(codec.KindInvalidArgument, "--keep must not be negative")
			}
			st, err := openStore(s)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.Prune(keep)
			if err != nil {
				return err
			}
			cmd.Printf("Pruned %d revisions\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 10, "Number of revisions to keep")
	return cmd
}
