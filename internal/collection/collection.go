// Package collection implements the Collection Core: local CRUD over a
// Storage Adapter with identifier and status-lifecycle bookkeeping, and
// the bi-directional Sync Driver that reconciles local state against a
// Remote Facade.
package collection

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/maxiofs/collectionsync/internal/hook"
	"github.com/maxiofs/collectionsync/internal/idschema"
	"github.com/maxiofs/collectionsync/internal/record"
	"github.com/maxiofs/collectionsync/internal/remote"
	"github.com/maxiofs/collectionsync/internal/storage"
	"github.com/maxiofs/collectionsync/internal/transform"
)

// Collection is one (bucket, name) pair bound to a Storage Adapter, an
// Identifier Schema, a Transformer Pipeline, a Hook Dispatcher and
// (optionally) a Remote Facade for Sync.
type Collection struct {
	Bucket string
	Name   string

	adapter  storage.Adapter
	ids      idschema.Schema
	pipeline *transform.Pipeline
	hooks    *hook.Dispatcher
	facade   remote.Facade
	logger   *logrus.Logger
	events   *EventEmitter

	syncMu sync.Mutex
}

// Option configures a Collection at construction time.
type Option func(*Collection)

// WithIdentifierSchema overrides the default idschema.UUIDSchema.
func WithIdentifierSchema(s idschema.Schema) Option {
	return func(c *Collection) { c.ids = s }
}

// WithPipeline attaches a Transformer Pipeline applied at the remote
// boundary.
func WithPipeline(p *transform.Pipeline) Option {
	return func(c *Collection) { c.pipeline = p }
}

// WithHooks attaches a Hook Dispatcher run over every incoming-changes
// batch during pull.
func WithHooks(d *hook.Dispatcher) Option {
	return func(c *Collection) { c.hooks = d }
}

// WithFacade attaches the Remote Facade used by Sync. A Collection with
// no facade can still be used for local-only CRUD; Sync returns an error.
func WithFacade(f remote.Facade) Option {
	return func(c *Collection) { c.facade = f }
}

// WithLogger overrides the default logrus.StandardLogger().
func WithLogger(l *logrus.Logger) Option {
	return func(c *Collection) { c.logger = l }
}

// New returns a Collection bound to adapter, defaulting to a UUID
// identifier schema, an empty (no-op) pipeline and hook dispatcher, and
// no remote facade.
func New(bucket, name string, adapter storage.Adapter, opts ...Option) *Collection {
	c := &Collection{
		Bucket:   bucket,
		Name:     name,
		adapter:  adapter,
		ids:      idschema.UUIDSchema{},
		pipeline: transform.NewPipeline(),
		hooks:    hook.NewDispatcher(),
		logger:   logrus.StandardLogger(),
		events:   newEventEmitter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the Collection's event emitter, on which "create",
// "update", "delete" and "change" fire.
func (c *Collection) Events() *EventEmitter {
	return c.events
}

// Create inserts a new record, generating an id via the Collection's
// Identifier Schema if the caller did not supply one.
func (c *Collection) Create(ctx context.Context, data record.Record) (record.Record, error) {
	r := data.Clone()
	if r.ID() == "" {
		r.SetID(c.ids.Generate(r))
	} else if !c.ids.Validate(r.ID()) {
		return nil, &InvalidIDError{ID: r.ID()}
	}
	r.SetStatus(record.StatusCreated)

	id := r.ID()
	err := c.adapter.Execute(ctx, []string{id}, func(txn storage.TxnProxy) error {
		if _, err := txn.Get(ctx, id); err == nil {
			return &ConflictingCreateError{ID: id}
		} else if !storage.IsNotFound(err) {
			return err
		}
		return txn.Create(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	c.events.emit(Event{Type: "create", Record: r})
	return r, nil
}

// GetOptions configures Get.
type GetOptions struct {
	// IncludeDeleted, when true, returns a pending tombstone instead of
	// RecordNotFoundError.
	IncludeDeleted bool
}

// Get returns a single record by id. By default a pending tombstone is
// reported as not found; pass GetOptions{IncludeDeleted: true} to
// retrieve it instead.
func (c *Collection) Get(ctx context.Context, id string, opts ...GetOptions) (record.Record, error) {
	var o GetOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	r, err := c.adapter.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, &RecordNotFoundError{ID: id}
		}
		return nil, err
	}
	if r.Deleted() && !o.IncludeDeleted {
		return nil, &RecordNotFoundError{ID: id}
	}
	return r, nil
}

// Update overwrites an existing record's fields, preserving its id and
// marking it StatusUpdated unless it is still StatusCreated (never
// synced), in which case it remains StatusCreated.
func (c *Collection) Update(ctx context.Context, data record.Record) (record.Record, error) {
	id := data.ID()
	if id == "" {
		return nil, &InvalidIDError{ID: ""}
	}

	var updated record.Record
	err := c.adapter.Execute(ctx, []string{id}, func(txn storage.TxnProxy) error {
		existing, err := txn.Get(ctx, id)
		if err != nil {
			if storage.IsNotFound(err) {
				return &RecordNotFoundError{ID: id}
			}
			return err
		}
		updated = data.Clone()
		if lm, ok := existing.LastModified(); ok {
			updated.SetLastModified(lm)
		}
		if existing.Status() == record.StatusCreated {
			updated.SetStatus(record.StatusCreated)
		} else {
			updated.SetStatus(record.StatusUpdated)
		}
		return txn.Update(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	c.events.emit(Event{Type: "update", Record: updated})
	return updated, nil
}

// Delete marks a record as a pending tombstone (StatusDeleted) if it has
// ever been synced, or removes it outright if it was only ever local
// (StatusCreated, never acknowledged by the remote) since there is
// nothing for a future publish to tell the remote about. Deleting an
// id that is already a pending tombstone is a no-op: it returns the
// existing tombstone and emits no event, so repeated delete calls are
// idempotent with respect to both stored state and events.
func (c *Collection) Delete(ctx context.Context, id string) (record.Record, error) {
	var deleted record.Record
	alreadyGone := false
	err := c.adapter.Execute(ctx, []string{id}, func(txn storage.TxnProxy) error {
		existing, err := txn.Get(ctx, id)
		if err != nil {
			if storage.IsNotFound(err) {
				return &RecordNotFoundError{ID: id}
			}
			return err
		}
		if existing.Status() == record.StatusDeleted {
			deleted = existing
			alreadyGone = true
			return nil
		}
		if existing.Status() == record.StatusCreated {
			_, err := txn.Delete(ctx, id)
			deleted = existing
			return err
		}
		tombstone := record.Record{"id": id}
		if lm, ok := existing.LastModified(); ok {
			tombstone.SetLastModified(lm)
		}
		tombstone.SetStatus(record.StatusDeleted)
		deleted = tombstone
		return txn.Update(ctx, tombstone)
	})
	if err != nil {
		return nil, err
	}
	if alreadyGone {
		return deleted, nil
	}
	c.events.emit(Event{Type: "delete", Record: deleted})
	return deleted, nil
}

// ListOptions configures List.
type ListOptions struct {
	// IncludeDeleted, when true, includes pending tombstones in the
	// result instead of filtering them out.
	IncludeDeleted bool
}

// List returns every record matching filters, in order. By default
// pending tombstones are filtered out; pass ListOptions{IncludeDeleted:
// true} to include them.
func (c *Collection) List(ctx context.Context, filters []storage.Filter, order *storage.Order, opts ...ListOptions) ([]record.Record, error) {
	var o ListOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	all, err := c.adapter.List(ctx, filters, order)
	if err != nil {
		return nil, err
	}
	if o.IncludeDeleted {
		return all, nil
	}
	out := make([]record.Record, 0, len(all))
	for _, r := range all {
		if !r.Deleted() {
			out = append(out, r)
		}
	}
	return out, nil
}

// Clear wipes all local records, the last_modified marker and metadata
// for this collection. It never touches the remote.
func (c *Collection) Clear(ctx context.Context) error {
	return c.adapter.Clear(ctx)
}

// Resolve applies a manual resolution to a conflict Sync previously
// reported under StrategyManual: it writes resolution locally with
// last_modified forced to conflict.Remote's, so the next publish
// presents a precondition the remote will accept. It does not run a
// sync itself; call Sync again afterward to push the resolved record.
func (c *Collection) Resolve(ctx context.Context, conflict Conflict, resolution record.Record) (record.Record, error) {
	resolved := resolution.Clone()
	if lm, ok := conflict.Remote.LastModified(); ok {
		resolved.SetLastModified(lm)
	}
	if resolved.Status() == record.StatusSynced {
		resolved.SetStatus(record.StatusUpdated)
	}

	id := resolved.ID()
	err := c.adapter.Execute(ctx, []string{id}, func(txn storage.TxnProxy) error {
		if _, err := txn.Get(ctx, id); err != nil {
			if storage.IsNotFound(err) {
				return txn.Create(ctx, resolved)
			}
			return err
		}
		return txn.Update(ctx, resolved)
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// ResetSyncStatus clears the collection's last_modified watermark and
// marks every locally held record as StatusCreated, so the next Sync
// re-publishes all of them as fresh creations. This is the prescribed
// recovery from ServerFlushedError.
func (c *Collection) ResetSyncStatus(ctx context.Context) error {
	all, err := c.adapter.List(ctx, nil, nil)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID())
	}
	if len(ids) > 0 {
		err = c.adapter.Execute(ctx, ids, func(txn storage.TxnProxy) error {
			for _, r := range all {
				reset := r.StripLastModified()
				reset.SetStatus(record.StatusCreated)
				if err := txn.Update(ctx, reset); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return c.adapter.SaveLastModified(ctx, 0)
}

func (c *Collection) pendingChanges(ctx context.Context) ([]record.Record, error) {
	all, err := c.adapter.List(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	var pending []record.Record
	for _, r := range all {
		if r.Status() != record.StatusSynced {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

func (c *Collection) logf(level logrus.Level, fields logrus.Fields, msg string) {
	c.logger.WithFields(fields).Log(level, msg)
}
