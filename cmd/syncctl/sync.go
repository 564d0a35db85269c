package main

import (
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"

	"github.com/maxiofs/collectionsync/internal/collection"
	"github.com/maxiofs/collectionsync/internal/synclog"
	"github.com/maxiofs/collectionsync/internal/syncmetrics"
)

func newSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull remote changes, reconcile conflicts, and push local changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c, err := openCollectionWithConfig(cmd)
			if err != nil {
				return err
			}
			// --strategy is bound to default_strategy, so this is the flag
			// when set, else the environment or config file value.
			strategy := collection.Strategy(cfg.DefaultStrategy)

			collectionName, err := cmd.Flags().GetString("collection")
			if err != nil {
				return err
			}

			log, err := synclog.Open(filepath.Join(cfg.DataDir, "synclog.db"))
			if err != nil {
				return err
			}
			defer log.Close()

			metrics := syncmetrics.New()
			registry := prometheus.NewRegistry()
			if err := metrics.Register(registry); err != nil {
				return err
			}

			startedAt := time.Now()
			result, syncErr := c.Sync(cmd.Context(), collection.SyncOptions{Strategy: strategy})
			duration := time.Since(startedAt)

			entry := synclog.Entry{
				Bucket:     cfg.Bucket,
				Collection: collectionName,
				StartedAt:  startedAt,
				DurationMS: duration.Milliseconds(),
			}
			if result != nil {
				entry.OK = result.OK()
				entry.Created = len(result.Created)
				entry.Updated = len(result.Updated)
				entry.Deleted = len(result.Deleted)
				entry.Published = len(result.Published)
				entry.Conflicts = len(result.Conflicts)
				entry.Errors = len(result.Errors)
				metrics.ObserveSync(cfg.Bucket, collectionName, entry.OK,
					entry.Created, entry.Updated, entry.Deleted, entry.Published,
					entry.Conflicts, entry.Errors, duration)
			} else {
				entry.Errors = 1
				metrics.ObserveSync(cfg.Bucket, collectionName, false, 0, 0, 0, 0, 0, 1, duration)
			}
			if logErr := log.Append(cmd.Context(), entry); logErr != nil {
				return logErr
			}

			if cfg.MetricsPushgateway != "" {
				pushErr := push.New(cfg.MetricsPushgateway, cfg.MetricsJob).
					Grouping("bucket", cfg.Bucket).
					Grouping("collection", collectionName).
					Gatherer(registry).
					Push()
				if pushErr != nil {
					cmd.PrintErrf("warning: failed to push metrics: %v\n", pushErr)
				}
			}

			if syncErr != nil {
				return syncErr
			}
			return printSyncResult(result)
		},
	}
	return cmd
}
