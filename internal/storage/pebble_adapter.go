package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble/v2"
	"github.com/sirupsen/logrus"

	"github.com/maxiofs/collectionsync/internal/record"
)

// PebbleAdapter is an alternate durable Adapter backed by Pebble
// (CockroachDB's LSM engine), offering higher sustained write throughput
// than BadgerAdapter at the cost of BadgerDB's value-log compaction model.
type PebbleAdapter struct {
	db         *pebble.DB
	bucket     string
	collection string
	logger     *logrus.Logger
}

// PebbleAdapterOptions configures a PebbleAdapter.
type PebbleAdapterOptions struct {
	DataDir    string
	Bucket     string
	Collection string
	Logger     *logrus.Logger
}

// OpenPebbleAdapter opens (creating if necessary) a Pebble store at
// DataDir/storage shared across collections, scoped by key prefixes.
func OpenPebbleAdapter(opts PebbleAdapterOptions) (*PebbleAdapter, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	dbPath := filepath.Join(opts.DataDir, "storage")
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	cache := pebble.NewCache(64 << 20)
	defer cache.Unref()

	db, err := pebble.Open(dbPath, &pebble.Options{Cache: cache})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}

	opts.Logger.WithFields(logrus.Fields{
		"bucket":     opts.Bucket,
		"collection": opts.Collection,
		"path":       dbPath,
	}).Debug("pebble adapter opened")

	return &PebbleAdapter{db: db, bucket: opts.Bucket, collection: opts.Collection, logger: opts.Logger}, nil
}

// prefixEnd returns the exclusive upper bound for a prefix scan.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

type pebbleTxn struct {
	db         *pebble.DB
	batch      *pebble.Batch
	bucket     string
	collection string
	allowed    map[string]bool
}

func (t *pebbleTxn) checkAllowed(id string) error {
	if !t.allowed[id] {
		return NewError(CodeNotPreloaded, "id not in Execute preload list: "+id)
	}
	return nil
}

// get reads through the batch, not the underlying db, so a Get sees any
// Create/Update/Delete already staged earlier in the same Execute call —
// matching BadgerAdapter's Txn.Get, which reads its own pending writes.
func (t *pebbleTxn) get(id string) (record.Record, error) {
	val, closer, err := t.batch.Get(recordKey(t.bucket, t.collection, id))
	if err == pebble.ErrNotFound {
		return nil, NewError(CodeNotFound, "record not found: "+id)
	}
	if err != nil {
		return nil, NewErrorWithCause(CodeBackend, "get failed", err)
	}
	defer closer.Close()
	var r record.Record
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, NewErrorWithCause(CodeBackend, "unmarshal failed", err)
	}
	return r, nil
}

func (t *pebbleTxn) Create(ctx context.Context, r record.Record) error {
	id := r.ID()
	if err := t.checkAllowed(id); err != nil {
		return err
	}
	if _, closer, err := t.batch.Get(recordKey(t.bucket, t.collection, id)); err == nil {
		closer.Close()
		return NewError(CodeAlreadyExists, "record already exists: "+id)
	} else if err != pebble.ErrNotFound {
		return NewErrorWithCause(CodeBackend, "existence check failed", err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return NewErrorWithCause(CodeBackend, "marshal failed", err)
	}
	if err := t.batch.Set(recordKey(t.bucket, t.collection, id), data, nil); err != nil {
		return NewErrorWithCause(CodeBackend, "batch set failed", err)
	}
	return nil
}

func (t *pebbleTxn) Update(ctx context.Context, r record.Record) error {
	id := r.ID()
	if err := t.checkAllowed(id); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return NewErrorWithCause(CodeBackend, "marshal failed", err)
	}
	if err := t.batch.Set(recordKey(t.bucket, t.collection, id), data, nil); err != nil {
		return NewErrorWithCause(CodeBackend, "batch set failed", err)
	}
	return nil
}

func (t *pebbleTxn) Delete(ctx context.Context, id string) (record.Record, error) {
	if err := t.checkAllowed(id); err != nil {
		return nil, err
	}
	existing, err := t.get(id)
	if err != nil {
		return nil, err
	}
	if err := t.batch.Delete(recordKey(t.bucket, t.collection, id), nil); err != nil {
		return nil, NewErrorWithCause(CodeBackend, "batch delete failed", err)
	}
	return existing, nil
}

func (t *pebbleTxn) Get(ctx context.Context, id string) (record.Record, error) {
	if err := t.checkAllowed(id); err != nil {
		return nil, err
	}
	return t.get(id)
}

func (a *PebbleAdapter) Execute(ctx context.Context, preload []string, body func(TxnProxy) error) error {
	allowed := make(map[string]bool, len(preload))
	for _, id := range preload {
		allowed[id] = true
	}
	batch := a.db.NewIndexedBatch()
	txn := &pebbleTxn{db: a.db, batch: batch, bucket: a.bucket, collection: a.collection, allowed: allowed}
	if err := body(txn); err != nil {
		batch.Close()
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return NewErrorWithCause(CodeBackend, "batch commit failed", err)
	}
	return nil
}

func (a *PebbleAdapter) Get(ctx context.Context, id string) (record.Record, error) {
	val, closer, err := a.db.Get(recordKey(a.bucket, a.collection, id))
	if err == pebble.ErrNotFound {
		return nil, NewError(CodeNotFound, "record not found: "+id)
	}
	if err != nil {
		return nil, NewErrorWithCause(CodeBackend, "get failed", err)
	}
	defer closer.Close()
	var r record.Record
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, NewErrorWithCause(CodeBackend, "unmarshal failed", err)
	}
	return r, nil
}

func (a *PebbleAdapter) List(ctx context.Context, filters []Filter, order *Order) ([]record.Record, error) {
	prefix := recordListPrefix(a.bucket, a.collection)
	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, NewErrorWithCause(CodeBackend, "iterator failed", err)
	}
	defer iter.Close()

	var out []record.Record
	for iter.First(); iter.Valid(); iter.Next() {
		var r record.Record
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			return nil, NewErrorWithCause(CodeBackend, "unmarshal during list", err)
		}
		out = append(out, r)
	}
	if err := iter.Error(); err != nil {
		return nil, NewErrorWithCause(CodeBackend, "iteration failed", err)
	}
	out = applyFilters(out, filters)
	out = applyOrder(out, order)
	return out, nil
}

func (a *PebbleAdapter) ImportBulk(ctx context.Context, records []record.Record) error {
	batch := a.db.NewBatch()
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return NewErrorWithCause(CodeBackend, "marshal failed", err)
		}
		if err := batch.Set(recordKey(a.bucket, a.collection, r.ID()), data, nil); err != nil {
			return NewErrorWithCause(CodeBackend, "batch set failed", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return NewErrorWithCause(CodeBackend, "batch commit failed", err)
	}
	return nil
}

func (a *PebbleAdapter) SaveLastModified(ctx context.Context, ts int64) error {
	return a.db.Set(lastModifiedKey(a.bucket, a.collection), []byte(fmt.Sprintf("%d", ts)), pebble.Sync)
}

func (a *PebbleAdapter) GetLastModified(ctx context.Context) (int64, error) {
	val, closer, err := a.db.Get(lastModifiedKey(a.bucket, a.collection))
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, NewErrorWithCause(CodeBackend, "get last_modified failed", err)
	}
	defer closer.Close()
	var ts int64
	_, scanErr := fmt.Sscanf(string(val), "%d", &ts)
	return ts, scanErr
}

func (a *PebbleAdapter) SaveMetadata(ctx context.Context, meta map[string]any) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return NewErrorWithCause(CodeBackend, "marshal metadata failed", err)
	}
	return a.db.Set(metadataKey(a.bucket, a.collection), data, pebble.Sync)
}

func (a *PebbleAdapter) GetMetadata(ctx context.Context) (map[string]any, error) {
	val, closer, err := a.db.Get(metadataKey(a.bucket, a.collection))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, NewErrorWithCause(CodeBackend, "get metadata failed", err)
	}
	defer closer.Close()
	var meta map[string]any
	if err := json.Unmarshal(val, &meta); err != nil {
		return nil, NewErrorWithCause(CodeBackend, "unmarshal metadata failed", err)
	}
	return meta, nil
}

func (a *PebbleAdapter) Clear(ctx context.Context) error {
	prefix := recordListPrefix(a.bucket, a.collection)
	batch := a.db.NewBatch()
	if err := batch.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
		return NewErrorWithCause(CodeBackend, "delete range failed", err)
	}
	if err := batch.Delete(lastModifiedKey(a.bucket, a.collection), nil); err != nil {
		return NewErrorWithCause(CodeBackend, "delete last_modified failed", err)
	}
	if err := batch.Delete(metadataKey(a.bucket, a.collection), nil); err != nil {
		return NewErrorWithCause(CodeBackend, "delete metadata failed", err)
	}
	return batch.Commit(pebble.Sync)
}

func (a *PebbleAdapter) Close() error {
	return a.db.Close()
}
