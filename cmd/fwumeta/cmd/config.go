/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/fwumeta/pkg/config"
)

func newConfigCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the fwumeta configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(s))
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		path     string
		storeDir string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a default configuration file with a freshly generated API key for the
inspection API.

Examples:
  fwumeta config init
  fwumeta config init --path ./fwumeta.yaml --store /var/lib/fwumeta`,
		Args: cobra.NoArgs,
		// init creates the file the root command would otherwise load.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = config.GetDefaultConfigPath()
			}
			if config.ConfigExists(path) && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			cfg, err := config.BootstrapConfig(path, storeDir)
			if err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", path)
			cmd.Printf("Store directory: %s\n", cfg.StoreDir)
			cmd.Printf("API key: %s\n", cfg.Server.APIKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Config file to write (default ~/.config/fwumeta/config.yaml)")
	cmd.Flags().StringVar(&storeDir, "store", "", "Store directory to record in the config")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(s.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
