package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the wordchain command tree.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "wordchain",
		Short:         "Train and sample second-order word chains",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./wordchain.json", "Path to the JSON config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.databasePath, "database", "", "Override the configured SQLite database path")

	cmd.AddCommand(
		newServeCmd(opts),
		newTrainCmd(opts),
		newGenerateCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newModelsCmd(opts),
	)
	return cmd
}

// withApp opens the application for the duration of fn.
func withApp(opts *rootOptions, fn func(*app) error) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}()
	return fn(a)
}
