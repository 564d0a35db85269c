package collection

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/maxiofs/collectionsync/internal/hook"
	"github.com/maxiofs/collectionsync/internal/record"
	"github.com/maxiofs/collectionsync/internal/remote"
)

// SyncOptions configures one Sync call.
type SyncOptions struct {
	Strategy Strategy
	// ExpectedTimestamp, when non-zero, is sent as a pull precondition
	// regardless of Strategy — including StrategyPullOnly, which only
	// suppresses the push phase, not pull preconditions.
	ExpectedTimestamp int64
	// IgnoreBackoff bypasses a remote-reported backoff window for this
	// call only.
	IgnoreBackoff bool
	// Retry is not read by Sync. HTTP retries are bounded by the Remote
	// Facade's own MaxRetries setting, and ClientWins re-pushes by the
	// fixed maxClientWinsRetries depth in publishBatch.
	Retry int
}

// Sync runs one full pull -> import -> conflict-gate -> push -> final
// pull pass against the Collection's Remote Facade. Only one Sync may be
// in flight per Collection at a time; a second call while one is running
// returns ErrSyncInProgress rather than racing the first.
func (c *Collection) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	if c.facade == nil {
		return nil, fmt.Errorf("collection: Sync called with no Remote Facade configured")
	}
	if !c.syncMu.TryLock() {
		return nil, &ErrSyncInProgress{Bucket: c.Bucket, Collection: c.Name}
	}
	defer c.syncMu.Unlock()

	if opts.Strategy == "" {
		opts.Strategy = StrategyManual
	}
	if opts.IgnoreBackoff {
		ctx = remote.WithIgnoreBackoff(ctx)
	}

	result := &SyncResult{}

	pullResult, err := c.pull(ctx, opts)
	if err != nil {
		c.events.emit(Event{Type: "sync:error", Record: err})
		return nil, err
	}
	result.merge(pullResult)

	if len(result.Conflicts) > 0 && opts.Strategy == StrategyManual {
		// Conflicts left unresolved under manual strategy stop the sync
		// here: pushing local state further would race the remote. The
		// importer already withheld the watermark advance for this batch,
		// so the stored last_modified is untouched and a later Sync (after
		// Resolve) re-pulls the same window — where the now-reconciled
		// record lands in the content-equality branch instead of
		// re-raising the same conflict.
		c.events.emit(Event{Type: "sync:error", Record: "unresolved conflicts"})
		return result, nil
	}

	if opts.Strategy != StrategyPullOnly {
		pending, err := c.pendingChanges(ctx)
		if err != nil {
			return nil, err
		}
		if len(pending) > 0 {
			publishResult, err := publishChanges(ctx, c.facade, c.adapter, c.pipeline, c.Bucket, c.Name, opts.Strategy, pending)
			if err != nil {
				c.events.emit(Event{Type: "sync:error", Record: err})
				return nil, err
			}
			result.merge(publishResult)

			if len(publishResult.Published) > 0 {
				finalPull, err := c.pull(ctx, opts)
				if err != nil {
					return nil, err
				}
				result.merge(finalPull)
			}
		}
	}

	if err := c.adapter.SaveLastModified(ctx, result.LastModified); err != nil {
		return nil, err
	}

	c.events.emit(Event{Type: "change", Record: result})
	if result.OK() {
		c.events.emit(Event{Type: "sync:success", Record: result})
	} else {
		c.events.emit(Event{Type: "sync:error", Record: result})
	}
	return result, nil
}

// pull fetches everything new since the collection's last known
// last_modified, runs it through the Hook Dispatcher and the Change
// Importer, and returns the resulting SyncResult.
func (c *Collection) pull(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	since, err := c.adapter.GetLastModified(ctx)
	if err != nil {
		return nil, err
	}

	listOpts := remote.ListRecordsOptions{
		Since:             since,
		ExpectedTimestamp: opts.ExpectedTimestamp,
		IncludeDeleted:    true,
	}
	pulled, err := c.facade.ListRecords(ctx, c.Bucket, c.Name, listOpts)
	if err != nil {
		return nil, translateTransportError(err)
	}

	changes := make([]record.Record, 0, len(pulled.Records))
	for _, raw := range pulled.Records {
		decoded, err := c.pipeline.Decode(ctx, record.Record(raw))
		if err != nil {
			return nil, fmt.Errorf("collection: decode incoming record: %w", err)
		}
		changes = append(changes, decoded)
	}

	batch, err := c.hooks.DispatchIncomingChanges(ctx, hook.IncomingChangesBatch{Changes: changes})
	if err != nil {
		return nil, err
	}

	newLastModified := pulled.LastModified
	if newLastModified < since {
		newLastModified = since
	}
	result, err := importChanges(ctx, c.adapter, opts.Strategy, batch.Changes, newLastModified)
	if err != nil {
		return nil, err
	}

	c.logf(logrus.DebugLevel, logrus.Fields{
		"bucket":     c.Bucket,
		"collection": c.Name,
		"pulled":     len(changes),
		"conflicts":  len(result.Conflicts),
	}, "pull complete")

	return result, nil
}

func translateTransportError(err error) error {
	switch e := err.(type) {
	case *remote.BackoffSignal:
		return &BackoffError{RemainingSeconds: e.RemainingSeconds}
	case *remote.RetryAfterSignal:
		return &RetryAfterError{RemainingSeconds: e.RemainingSeconds}
	case *remote.FlushedSignal:
		return &ServerFlushedError{}
	case *remote.TransportStatusError:
		return &TransportError{Response: &http.Response{StatusCode: e.StatusCode}}
	default:
		return err
	}
}
