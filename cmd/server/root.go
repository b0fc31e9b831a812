package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/bitter-server/internal/config"
	"github.com/vovakirdan/bitter-server/internal/log"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "bitter-server",
		Short:         "Bitter direct-message server",
		Long:          "bitter-server serves the Bitter REST API and the realtime conversation endpoint.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (created with defaults if missing)")

	serveCmd := newServeCmd(opts)
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(
		serveCmd,
		newMigrateCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// loadConfig resolves configuration and builds the logger it asks for.
func loadConfig(opts *rootOptions, overrides config.Config) (config.Config, error) {
	bootLogger := log.New("info", "console")

	cfg, path, err := config.Load(bootLogger, opts.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.UpdateFrom(overrides)

	bootLogger.Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}
