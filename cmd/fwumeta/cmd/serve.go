/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/fwumeta/pkg/api"
)

func newServeCmd(s *settings) *cobra.Command {
	var (
		port   int
		bind   string
		apiKey string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the metadata inspection API",
		Long: `Start the metadata inspection API. It decodes, validates and generates records
and exposes the primary and backup copies of the local store. Prometheus
metrics are served at /metrics.

Port, bind address and API key default to the server section of the config.

Examples:
  fwumeta serve
  fwumeta serve --port 9090 --bind 0.0.0.0 --api-key mysecretkey`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireContainer()
			if err != nil {
				return err
			}

			serverConfig := api.ServerConfig{
				Port:   s.cfg.Server.Port,
				Bind:   s.cfg.Server.Bind,
				APIKey: s.cfg.Server.APIKey,
			}
			if cmd.Flags().Changed("port") {
				serverConfig.Port = port
			}
			if cmd.Flags().Changed("bind") {
				serverConfig.Bind = bind
			}
			if cmd.Flags().Changed("api-key") {
				serverConfig.APIKey = apiKey
			}
			if serverConfig.APIKey == "" {
				cmd.PrintErrln("Warning: no API key configured, the API is unauthenticated")
			}

			st, err := openStore(s)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			starter := c.GetServerFactory().CreateServerStarter()
			return starter.StartServer(ctx, st, serverConfig)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1", "Address to bind")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key required in the X-API-Key header")
	return cmd
}
