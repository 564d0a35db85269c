package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/maxiofs/collectionsync/internal/record"
)

// Key naming scheme for one (bucket, collection) pair, following the
// teacher's "prefix:scope:rest" convention (internal/metadata/badger.go).
func recordKey(bucket, collection, id string) []byte {
	return []byte(fmt.Sprintf("rec:%s:%s:%s", bucket, collection, id))
}

func recordListPrefix(bucket, collection string) []byte {
	return []byte(fmt.Sprintf("rec:%s:%s:", bucket, collection))
}

func lastModifiedKey(bucket, collection string) []byte {
	return []byte(fmt.Sprintf("lm:%s:%s", bucket, collection))
}

func metadataKey(bucket, collection string) []byte {
	return []byte(fmt.Sprintf("meta:%s:%s", bucket, collection))
}

// BadgerAdapter is the primary durable Adapter, backed by BadgerDB.
type BadgerAdapter struct {
	db         *badger.DB
	bucket     string
	collection string
	logger     *logrus.Logger
}

// BadgerOptions configures a BadgerAdapter.
type BadgerOptions struct {
	DataDir    string
	Bucket     string
	Collection string
	SyncWrites bool
	Logger     *logrus.Logger
}

// OpenBadgerAdapter opens (creating if necessary) a BadgerDB at
// DataDir/storage shared across collections, scoped by bucket/collection
// key prefixes.
func OpenBadgerAdapter(opts BadgerOptions) (*BadgerAdapter, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	dbPath := filepath.Join(opts.DataDir, "storage")
	badgerOpts := badger.DefaultOptions(dbPath).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	opts.Logger.WithFields(logrus.Fields{
		"bucket":     opts.Bucket,
		"collection": opts.Collection,
		"path":       dbPath,
	}).Debug("badger adapter opened")

	return &BadgerAdapter{
		db:         db,
		bucket:     opts.Bucket,
		collection: opts.Collection,
		logger:     opts.Logger,
	}, nil
}

type badgerTxn struct {
	txn        *badger.Txn
	bucket     string
	collection string
	allowed    map[string]bool
}

func (t *badgerTxn) checkAllowed(id string) error {
	if !t.allowed[id] {
		return NewError(CodeNotPreloaded, "id not in Execute preload list: "+id)
	}
	return nil
}

func (t *badgerTxn) get(id string) (record.Record, error) {
	item, err := t.txn.Get(recordKey(t.bucket, t.collection, id))
	if err == badger.ErrKeyNotFound {
		return nil, NewError(CodeNotFound, "record not found: "+id)
	}
	if err != nil {
		return nil, NewErrorWithCause(CodeBackend, "get failed", err)
	}
	var r record.Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	})
	if err != nil {
		return nil, NewErrorWithCause(CodeBackend, "unmarshal failed", err)
	}
	return r, nil
}

func (t *badgerTxn) Create(ctx context.Context, r record.Record) error {
	id := r.ID()
	if err := t.checkAllowed(id); err != nil {
		return err
	}
	if _, err := t.txn.Get(recordKey(t.bucket, t.collection, id)); err == nil {
		return NewError(CodeAlreadyExists, "record already exists: "+id)
	} else if err != badger.ErrKeyNotFound {
		return NewErrorWithCause(CodeBackend, "existence check failed", err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return NewErrorWithCause(CodeBackend, "marshal failed", err)
	}
	if err := t.txn.Set(recordKey(t.bucket, t.collection, id), data); err != nil {
		return NewErrorWithCause(CodeBackend, "set failed", err)
	}
	return nil
}

func (t *badgerTxn) Update(ctx context.Context, r record.Record) error {
	id := r.ID()
	if err := t.checkAllowed(id); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return NewErrorWithCause(CodeBackend, "marshal failed", err)
	}
	if err := t.txn.Set(recordKey(t.bucket, t.collection, id), data); err != nil {
		return NewErrorWithCause(CodeBackend, "set failed", err)
	}
	return nil
}

func (t *badgerTxn) Delete(ctx context.Context, id string) (record.Record, error) {
	if err := t.checkAllowed(id); err != nil {
		return nil, err
	}
	existing, err := t.get(id)
	if err != nil {
		return nil, err
	}
	if err := t.txn.Delete(recordKey(t.bucket, t.collection, id)); err != nil {
		return nil, NewErrorWithCause(CodeBackend, "delete failed", err)
	}
	return existing, nil
}

func (t *badgerTxn) Get(ctx context.Context, id string) (record.Record, error) {
	if err := t.checkAllowed(id); err != nil {
		return nil, err
	}
	return t.get(id)
}

func (a *BadgerAdapter) Execute(ctx context.Context, preload []string, body func(TxnProxy) error) error {
	allowed := make(map[string]bool, len(preload))
	for _, id := range preload {
		allowed[id] = true
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return body(&badgerTxn{txn: txn, bucket: a.bucket, collection: a.collection, allowed: allowed})
	})
}

func (a *BadgerAdapter) Get(ctx context.Context, id string) (record.Record, error) {
	var r record.Record
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(a.bucket, a.collection, id))
		if err == badger.ErrKeyNotFound {
			return NewError(CodeNotFound, "record not found: "+id)
		}
		if err != nil {
			return NewErrorWithCause(CodeBackend, "get failed", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	return r, err
}

func (a *BadgerAdapter) List(ctx context.Context, filters []Filter, order *Order) ([]record.Record, error) {
	var out []record.Record
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordListPrefix(a.bucket, a.collection)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var r record.Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return NewErrorWithCause(CodeBackend, "unmarshal during list", err)
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out = applyFilters(out, filters)
	out = applyOrder(out, order)
	return out, nil
}

func (a *BadgerAdapter) ImportBulk(ctx context.Context, records []record.Record) error {
	wb := a.db.NewWriteBatch()
	defer wb.Cancel()
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return NewErrorWithCause(CodeBackend, "marshal failed", err)
		}
		if err := wb.Set(recordKey(a.bucket, a.collection, r.ID()), data); err != nil {
			return NewErrorWithCause(CodeBackend, "batch set failed", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return NewErrorWithCause(CodeBackend, "batch flush failed", err)
	}
	return nil
}

func (a *BadgerAdapter) SaveLastModified(ctx context.Context, ts int64) error {
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(lastModifiedKey(a.bucket, a.collection), []byte(fmt.Sprintf("%d", ts)))
	})
}

func (a *BadgerAdapter) GetLastModified(ctx context.Context) (int64, error) {
	var ts int64
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastModifiedKey(a.bucket, a.collection))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return NewErrorWithCause(CodeBackend, "get last_modified failed", err)
		}
		return item.Value(func(val []byte) error {
			_, scanErr := fmt.Sscanf(string(val), "%d", &ts)
			return scanErr
		})
	})
	return ts, err
}

func (a *BadgerAdapter) SaveMetadata(ctx context.Context, meta map[string]any) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return NewErrorWithCause(CodeBackend, "marshal metadata failed", err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metadataKey(a.bucket, a.collection), data)
	})
}

func (a *BadgerAdapter) GetMetadata(ctx context.Context) (map[string]any, error) {
	var meta map[string]any
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metadataKey(a.bucket, a.collection))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return NewErrorWithCause(CodeBackend, "get metadata failed", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	return meta, err
}

func (a *BadgerAdapter) Clear(ctx context.Context) error {
	return a.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordListPrefix(a.bucket, a.collection)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			keys = append(keys, k)
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		if err := txn.Delete(lastModifiedKey(a.bucket, a.collection)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Delete(metadataKey(a.bucket, a.collection)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
}

func (a *BadgerAdapter) Close() error {
	return a.db.Close()
}
