/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"flag"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/ssargent/fwumeta/pkg/config"
	"github.com/ssargent/fwumeta/pkg/di"
)

var container *di.Container

// SetContainer injects the dependency container used by the commands
func SetContainer(c *di.Container) {
	container = c
}

// settings is the configuration resolved by the root command for one run
type settings struct {
	configPath string
	storeDir   string
	logLevel   string

	cfg *config.Config
}

// NewRootCmd builds the fwumeta command tree
func NewRootCmd() *cobra.Command {
	s := &settings{}

	rootCmd := &cobra.Command{
		Use:   "fwumeta",
		Short: "fwumeta - FWU metadata toolkit",
		Long: `fwumeta generates, inspects and maintains firmware update (FWU) metadata,
format version 2.

The record tells boot firmware which bank of images is active and whether each
image copy has been accepted. fwumeta can build a record from scratch, dump or
validate an existing one, keep primary and backup copies in a local store and
serve the codec over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&s.configPath, "config", "", "Config file (default ~/.config/fwumeta/config.yaml when present)")
	rootCmd.PersistentFlags().StringVarP(&s.storeDir, "store-dir", "d", "", "Metadata store directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "Log level: error, warn, info, debug or trace (overrides config)")

	rootCmd.AddCommand(
		newGenerateCmd(s),
		newDumpCmd(),
		newValidateCmd(),
		newStoreCmd(s),
		newStatusCmd(s),
		newStageCmd(s),
		newAcceptCmd(s),
		newActivateCmd(s),
		newRollbackCmd(s),
		newServeCmd(s),
		newConfigCmd(s),
	)
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (s *settings) load(cmd *cobra.Command) error {
	cfg, err := resolveConfig(s.configPath)
	if err != nil {
		return err
	}
	if s.storeDir != "" {
		cfg.StoreDir = s.storeDir
	}
	if s.logLevel != "" {
		cfg.Logging.Level = s.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg

	return setLogging(cfg.Logging)
}

// resolveConfig loads path, or the default config file when path is empty
// and the file exists, or the built-in defaults.
func resolveConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	if def := config.GetDefaultConfigPath(); config.ConfigExists(def) {
		klog.V(2).Infof("using config %s", def)
		return config.LoadConfig(def)
	}
	return config.DefaultConfig(), nil
}

var klogFlags = func() *flag.FlagSet {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	return fs
}()

// setLogging applies the level to klog. Below INFO, stderr only receives
// messages at the threshold and everything else is discarded.
func setLogging(l config.Logging) error {
	threshold := l.Threshold()
	toStderr := threshold == "INFO"
	if !toStderr {
		klog.SetOutput(io.Discard)
	}
	for name, value := range map[string]string{
		"v":               strconv.Itoa(l.Verbosity()),
		"logtostderr":     strconv.FormatBool(toStderr),
		"stderrthreshold": threshold,
	} {
		if err := klogFlags.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// requireContainer returns the injected container
func requireContainer() (*di.Container, error) {
	if container == nil {
		return nil, errors.New("dependency container not initialized")
	}
	return container, nil
}
