// Package storage defines the Storage Adapter contract used by the
// Collection Core to persist records for one (bucket, collection) pair,
// plus concrete Badger, Pebble and in-memory implementations.
package storage

import (
	"context"

	"github.com/maxiofs/collectionsync/internal/record"
)

// Operator is a comparison used by a List Filter.
type Operator string

const (
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "gte"
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "lte"
	OpIn           Operator = "in"
)

// Filter restricts List to records whose dotted-path Field compares to
// Value under Operator. Field may address nested values, e.g. "meta.tag".
type Filter struct {
	Field    string
	Operator Operator
	Value    any
}

// Order sorts List results by a dotted-path Field, ascending unless
// Descending is set.
type Order struct {
	Field      string
	Descending bool
}

// TxnProxy is the restricted view of a transaction available inside an
// Execute body. Create/Update/Delete/Get only succeed for ids that were
// named in the Execute call's preload list, so every body operates on a
// known, already-fetched working set.
type TxnProxy interface {
	Create(ctx context.Context, r record.Record) error
	Update(ctx context.Context, r record.Record) error
	Delete(ctx context.Context, id string) (record.Record, error)
	Get(ctx context.Context, id string) (record.Record, error)
}

// Adapter is the durable storage contract for one (bucket, collection)
// pair. Execute bodies run inside a single backend transaction: every
// staged write commits together, or none do.
type Adapter interface {
	// Execute runs body against a TxnProxy preloaded with the given ids.
	// Any error returned by body aborts the whole transaction.
	Execute(ctx context.Context, preload []string, body func(TxnProxy) error) error

	// Get returns a single record by id, bypassing Execute's preload
	// requirement; used for read-only lookups outside a transaction.
	Get(ctx context.Context, id string) (record.Record, error)

	// List returns records matching every filter, in the given order.
	List(ctx context.Context, filters []Filter, order *Order) ([]record.Record, error)

	// ImportBulk writes records directly, bypassing status bookkeeping and
	// the Execute preload list, in one backend-native bulk write. The
	// Change Importer does not use it; it writes through Execute.
	ImportBulk(ctx context.Context, records []record.Record) error

	// SaveLastModified/GetLastModified persist the collection's sync
	// high-water mark across process restarts.
	SaveLastModified(ctx context.Context, ts int64) error
	GetLastModified(ctx context.Context) (int64, error)

	// SaveMetadata/GetMetadata persist collection-level metadata (e.g.
	// the remote's reported schema or display name).
	SaveMetadata(ctx context.Context, meta map[string]any) error
	GetMetadata(ctx context.Context) (map[string]any, error)

	// Clear wipes every record, the last_modified marker and metadata
	// for this collection only. It never touches the remote.
	Clear(ctx context.Context) error

	// Close releases any backend resources held by this adapter.
	Close() error
}
