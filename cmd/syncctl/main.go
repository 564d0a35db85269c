package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "syncctl",
		Short:   "syncctl drives an offline-first collection against a Kinto-protocol server",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Local data directory")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("storage-backend", "badger", "Local storage backend (badger, pebble, memory)")
	rootCmd.PersistentFlags().String("remote-url", "", "Kinto-protocol server base URL")
	rootCmd.PersistentFlags().String("bucket", "main", "Bucket name")
	rootCmd.PersistentFlags().String("strategy", "manual", "Default conflict strategy (manual, server_wins, client_wins, pull_only)")
	rootCmd.PersistentFlags().Int("request-timeout", 5000, "Request timeout in milliseconds")
	rootCmd.PersistentFlags().Int("max-retries", 3, "Maximum retry attempts")
	rootCmd.PersistentFlags().String("collection", "records", "Collection name")
	rootCmd.PersistentFlags().String("metrics-pushgateway", "", "Prometheus Pushgateway base URL to push sync metrics to")
	rootCmd.PersistentFlags().String("metrics-job", "syncctl", "Job name used when pushing metrics")

	rootCmd.AddCommand(
		newPutCommand(),
		newGetCommand(),
		newListCommand(),
		newDeleteCommand(),
		newSyncCommand(),
		newResetCommand(),
		newMigrateCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
