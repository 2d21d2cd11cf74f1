package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/richshaffer/replay/config"
	"github.com/richshaffer/replay/internal/proxy"
)

const defaultConfigFile = "config.yml"

type options struct {
	configFile string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "replay-proxy",
		Short:         "Record and replay HTTP traffic",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"YAML configuration file (default ./"+defaultConfigFile+" if present)")

	serve := newServeCommand(opts)
	root.AddCommand(serve, newFixturesCommand(opts))
	root.RunE = serve.RunE
	return root
}

// load reads the configuration. Without --config, ./config.yml is used if it
// exists and defaults plus the environment otherwise.
func (o *options) load() (*proxy.Config, error) {
	path := o.configFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	cfg, err := config.LoadWithDefaults(path, (*proxy.Config).SetDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
