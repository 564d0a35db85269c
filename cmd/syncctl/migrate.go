package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maxiofs/collectionsync/internal/config"
	"github.com/maxiofs/collectionsync/internal/logging"
	"github.com/maxiofs/collectionsync/internal/storage"
)

// newMigrateCommand moves a collection's local storage from BadgerDB to
// Pebble in place. The collection must not be open elsewhere while this
// runs: both backends hold an exclusive lock on dataDir/storage.
func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate badger-to-pebble",
		Short: "Migrate local storage from BadgerDB to Pebble",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "badger-to-pebble" {
				return cmd.Help()
			}

			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			logger := logging.Setup(cfg.LogLevel)

			collectionName, err := cmd.Flags().GetString("collection")
			if err != nil {
				return err
			}

			// kinto.Client scopes each collection's Storage Adapter at
			// <data-dir>/<bucket>/<collection>/storage; migrate the same directory.
			collectionDataDir := filepath.Join(cfg.DataDir, cfg.Bucket, collectionName)
			if err := storage.MigrateBadgerToPebble(collectionDataDir, cfg.Bucket, collectionName, logger); err != nil {
				return err
			}

			cmd.Println("migration complete: pass --storage-backend pebble on future commands for this data directory")
			return nil
		},
	}
	return cmd
}
