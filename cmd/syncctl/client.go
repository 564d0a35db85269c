package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxiofs/collectionsync/internal/collection"
	"github.com/maxiofs/collectionsync/internal/config"
	"github.com/maxiofs/collectionsync/internal/kinto"
	"github.com/maxiofs/collectionsync/internal/logging"
)

// openCollection loads configuration from cmd's flags, constructs a kinto
// Client, and returns the Collection named by --bucket/--collection.
func openCollection(cmd *cobra.Command) (*collection.Collection, error) {
	_, c, err := openCollectionWithConfig(cmd)
	return c, err
}

// openCollectionWithConfig is openCollection plus the loaded Config, for
// callers (sync) that also need it for observability wiring.
func openCollectionWithConfig(cmd *cobra.Command) (*config.Config, *collection.Collection, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	collectionName, err := cmd.Flags().GetString("collection")
	if err != nil {
		return nil, nil, err
	}

	opts := kinto.ClientOptions{
		DataDir:    cfg.DataDir,
		Backend:    kinto.StorageBackend(cfg.StorageBackend),
		RemoteURL:  cfg.RemoteURL,
		Timeout:    time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
		MaxRetries: uint64(cfg.MaxRetries),
		Logger:     logger,
	}
	if cfg.JWTSecret != "" {
		opts.JWTKey = []byte(cfg.JWTSecret)
		opts.JWTSubject = cfg.JWTSubject
	}

	client := kinto.New(opts)

	c, err := client.Collection(cfg.Bucket, collectionName)
	if err != nil {
		return nil, nil, err
	}
	return cfg, c, nil
}

func strategyFromFlag(cmd *cobra.Command) (collection.Strategy, error) {
	s, err := cmd.Flags().GetString("strategy")
	if err != nil {
		return "", err
	}
	switch collection.Strategy(s) {
	case collection.StrategyManual, collection.StrategyServerWins, collection.StrategyClientWins, collection.StrategyPullOnly:
		return collection.Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}
