package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	pebblev1 "github.com/cockroachdb/pebble"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

const migrationBatchSize = 10_000

// MigrateBadgerToPebble copies every record, last_modified marker and
// metadata blob for one (bucket, collection) pair from an existing
// BadgerDB storage directory into a fresh Pebble (v1) directory, then
// swaps the two atomically so the caller can immediately reopen at
// dataDir/storage on the new backend.
//
// On failure the original BadgerDB directory is left untouched; the
// incomplete Pebble directory is removed so the migration can be retried.
// This mirrors internal/metadata/migration.go's detect/copy/swap/rollback
// flow, narrowed from a whole-metadata-store migration to one collection's
// key range.
func MigrateBadgerToPebble(dataDir, bucket, collection string, logger *logrus.Logger) error {
	if logger == nil {
		logger = logrus.New()
	}

	storageDir := filepath.Join(dataDir, "storage")
	pebbleTmpDir := filepath.Join(dataDir, "storage_pebble_migration")

	if err := os.RemoveAll(pebbleTmpDir); err != nil {
		return fmt.Errorf("failed to clean up previous migration attempt: %w", err)
	}

	migrated, err := runBadgerToPebbleMigration(storageDir, pebbleTmpDir, bucket, collection, logger)
	if err != nil {
		_ = os.RemoveAll(pebbleTmpDir)
		return fmt.Errorf("migration failed after %d keys: %w", migrated, err)
	}

	backupDir := filepath.Join(dataDir, fmt.Sprintf("storage_badger_backup_%s", time.Now().Format("20060102_150405")))
	if err := os.Rename(storageDir, backupDir); err != nil {
		_ = os.RemoveAll(pebbleTmpDir)
		return fmt.Errorf("failed to rename badger directory: %w", err)
	}
	if err := os.Rename(pebbleTmpDir, storageDir); err != nil {
		_ = os.Rename(backupDir, storageDir)
		return fmt.Errorf("failed to rename pebble directory: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"migrated_keys": migrated,
		"backup_dir":    backupDir,
	}).Info("storage adapter migrated from badger to pebble")
	return nil
}

func runBadgerToPebbleMigration(badgerDir, pebbleDir, bucket, collection string, logger *logrus.Logger) (int64, error) {
	bdb, err := badger.Open(badger.DefaultOptions(badgerDir).WithLogger(nil))
	if err != nil {
		return 0, fmt.Errorf("failed to open badger db for migration: %w", err)
	}
	defer bdb.Close()

	if err := os.MkdirAll(pebbleDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create pebble migration directory: %w", err)
	}
	pdb, err := pebblev1.Open(pebbleDir, &pebblev1.Options{})
	if err != nil {
		return 0, fmt.Errorf("failed to open pebble for migration: %w", err)
	}
	defer pdb.Close()

	var total int64
	batch := pdb.NewBatch()
	prefix := recordListPrefix(bucket, collection)

	err = bdb.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			var writeErr error
			if valErr := item.Value(func(val []byte) error {
				valCopy := make([]byte, len(val))
				copy(valCopy, val)
				writeErr = batch.Set(key, valCopy, nil)
				return nil
			}); valErr != nil {
				return fmt.Errorf("failed to read value for key %q: %w", key, valErr)
			}
			if writeErr != nil {
				return fmt.Errorf("failed to stage key %q: %w", key, writeErr)
			}
			total++
			if total%migrationBatchSize == 0 {
				if err := batch.Commit(pebblev1.NoSync); err != nil {
					return fmt.Errorf("failed to commit batch at key %d: %w", total, err)
				}
				batch = pdb.NewBatch()
				logger.WithField("keys_migrated", total).Info("migration progress")
			}
		}
		return nil
	})
	if err != nil {
		return total, err
	}

	// Carry over the last_modified and metadata markers too.
	markerErr := bdb.View(func(txn *badger.Txn) error {
		for _, key := range [][]byte{lastModifiedKey(bucket, collection), metadataKey(bucket, collection)} {
			item, getErr := txn.Get(key)
			if getErr == badger.ErrKeyNotFound {
				continue
			}
			if getErr != nil {
				return fmt.Errorf("failed to read marker %q: %w", key, getErr)
			}
			if valErr := item.Value(func(val []byte) error {
				valCopy := make([]byte, len(val))
				copy(valCopy, val)
				return batch.Set(key, valCopy, nil)
			}); valErr != nil {
				return fmt.Errorf("failed to stage marker %q: %w", key, valErr)
			}
		}
		return nil
	})
	if markerErr != nil {
		return total, markerErr
	}

	if err := batch.Commit(pebblev1.Sync); err != nil {
		return total, fmt.Errorf("failed to commit final batch: %w", err)
	}
	return total, nil
}
