package storage

import (
	"context"
	"sync"

	"github.com/maxiofs/collectionsync/internal/record"
)

// MemoryAdapter is an in-process Adapter backed by a plain map. It has no
// durability and exists for tests and for embedders with no persistence
// requirement.
type MemoryAdapter struct {
	mu           sync.Mutex
	records      map[string]record.Record
	lastModified int64
	metadata     map[string]any
}

// NewMemoryAdapter returns an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{records: make(map[string]record.Record)}
}

type memoryTxn struct {
	a       *MemoryAdapter
	allowed map[string]bool
	staged  map[string]record.Record
	deleted map[string]bool
}

func newMemoryTxn(a *MemoryAdapter, preload []string) *memoryTxn {
	allowed := make(map[string]bool, len(preload))
	for _, id := range preload {
		allowed[id] = true
	}
	return &memoryTxn{
		a:       a,
		allowed: allowed,
		staged:  make(map[string]record.Record),
		deleted: make(map[string]bool),
	}
}

func (t *memoryTxn) checkAllowed(id string) error {
	if !t.allowed[id] {
		return NewError(CodeNotPreloaded, "id not in Execute preload list: "+id)
	}
	return nil
}

func (t *memoryTxn) Create(ctx context.Context, r record.Record) error {
	id := r.ID()
	if err := t.checkAllowed(id); err != nil {
		return err
	}
	if _, exists := t.a.records[id]; exists && !t.deleted[id] {
		return NewError(CodeAlreadyExists, "record already exists: "+id)
	}
	t.staged[id] = r.Clone()
	delete(t.deleted, id)
	return nil
}

func (t *memoryTxn) Update(ctx context.Context, r record.Record) error {
	id := r.ID()
	if err := t.checkAllowed(id); err != nil {
		return err
	}
	t.staged[id] = r.Clone()
	delete(t.deleted, id)
	return nil
}

func (t *memoryTxn) Delete(ctx context.Context, id string) (record.Record, error) {
	if err := t.checkAllowed(id); err != nil {
		return nil, err
	}
	existing, err := t.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.deleted[id] = true
	delete(t.staged, id)
	return existing, nil
}

func (t *memoryTxn) Get(ctx context.Context, id string) (record.Record, error) {
	if err := t.checkAllowed(id); err != nil {
		return nil, err
	}
	if t.deleted[id] {
		return nil, NewError(CodeNotFound, "record not found: "+id)
	}
	if r, ok := t.staged[id]; ok {
		return r.Clone(), nil
	}
	if r, ok := t.a.records[id]; ok {
		return r.Clone(), nil
	}
	return nil, NewError(CodeNotFound, "record not found: "+id)
}

func (a *MemoryAdapter) Execute(ctx context.Context, preload []string, body func(TxnProxy) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	txn := newMemoryTxn(a, preload)
	if err := body(txn); err != nil {
		return err
	}
	for id, r := range txn.staged {
		a.records[id] = r
	}
	for id := range txn.deleted {
		delete(a.records, id)
	}
	return nil
}

func (a *MemoryAdapter) Get(ctx context.Context, id string) (record.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.records[id]
	if !ok {
		return nil, NewError(CodeNotFound, "record not found: "+id)
	}
	return r.Clone(), nil
}

func (a *MemoryAdapter) List(ctx context.Context, filters []Filter, order *Order) ([]record.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]record.Record, 0, len(a.records))
	for _, r := range a.records {
		out = append(out, r.Clone())
	}
	out = applyFilters(out, filters)
	out = applyOrder(out, order)
	return out, nil
}

func (a *MemoryAdapter) ImportBulk(ctx context.Context, records []record.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range records {
		a.records[r.ID()] = r.Clone()
	}
	return nil
}

func (a *MemoryAdapter) SaveLastModified(ctx context.Context, ts int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastModified = ts
	return nil
}

func (a *MemoryAdapter) GetLastModified(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastModified, nil
}

func (a *MemoryAdapter) SaveMetadata(ctx context.Context, meta map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metadata = meta
	return nil
}

func (a *MemoryAdapter) GetMetadata(ctx context.Context) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metadata, nil
}

func (a *MemoryAdapter) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = make(map[string]record.Record)
	a.lastModified = 0
	a.metadata = nil
	return nil
}

func (a *MemoryAdapter) Close() error { return nil }
