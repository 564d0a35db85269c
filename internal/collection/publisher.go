package collection

import (
	"context"
	"fmt"
	"strconv"

	"github.com/maxiofs/collectionsync/internal/record"
	"github.com/maxiofs/collectionsync/internal/remote"
	"github.com/maxiofs/collectionsync/internal/storage"
	"github.com/maxiofs/collectionsync/internal/transform"
)

const maxClientWinsRetries = 3

// publishChanges sends every locally pending record to the remote in one
// batch, partitioning tombstones (DELETE) from creates/updates (PUT),
// and reconciles the responses back into local storage.
//
// Records whose last_modified is still unset (never acknowledged by the
// remote) and that are local-only tombstones are dropped before the
// batch is built: there is nothing for the remote to delete.
func publishChanges(
	ctx context.Context,
	facade remote.Facade,
	adapter storage.Adapter,
	pipeline *transform.Pipeline,
	bucket, collectionName string,
	strategy Strategy,
	pending []record.Record,
) (*SyncResult, error) {
	result := &SyncResult{}

	var publishable []record.Record
	for _, r := range pending {
		if r.Deleted() {
			if _, ok := r.LastModified(); !ok {
				result.Skipped = append(result.Skipped, r)
				continue
			}
		}
		publishable = append(publishable, r)
	}
	if len(publishable) == 0 {
		return result, nil
	}

	outcomes, err := publishBatch(ctx, facade, pipeline, bucket, collectionName, strategy, publishable, 0)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		ids = append(ids, o.record.ID())
	}

	err = adapter.Execute(ctx, ids, func(txn storage.TxnProxy) error {
		for _, o := range outcomes {
			switch o.kind {
			case outcomePublished:
				if o.record.Deleted() {
					if _, err := txn.Delete(ctx, o.record.ID()); err != nil && !storage.IsNotFound(err) {
						return err
					}
				} else {
					synced := o.remoteRecord.Clone()
					synced.SetStatus(record.StatusSynced)
					if err := txn.Update(ctx, synced); err != nil {
						return err
					}
				}
				result.Published = append(result.Published, o.record)

			case outcomeConflict:
				conflict := Conflict{Type: ConflictOutgoing, Local: o.record, Remote: o.remoteRecord}
				if handled, err := handleConflict(ctx, txn, strategy, conflict, result); err != nil {
					return err
				} else if !handled {
					result.Conflicts = append(result.Conflicts, conflict)
				}

			case outcomeError:
				result.Errors = append(result.Errors, o.err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type outcomeKind int

const (
	outcomePublished outcomeKind = iota
	outcomeConflict
	outcomeError
)

type publishOutcome struct {
	record       record.Record
	remoteRecord record.Record
	kind         outcomeKind
	err          error
}

// publishBatch builds and sends one /batch request for records, then
// classifies each response. ClientWins conflicts are re-pushed forcing
// the remote's version to be overwritten, up to maxClientWinsRetries
// deep, to guard against unbounded recursion if the remote keeps moving.
func publishBatch(
	ctx context.Context,
	facade remote.Facade,
	pipeline *transform.Pipeline,
	bucket, collectionName string,
	strategy Strategy,
	records []record.Record,
	depth int,
) ([]publishOutcome, error) {
	ops := make([]remote.BatchOperation, 0, len(records))
	for _, r := range records {
		op, err := buildOperation(ctx, pipeline, bucket, collectionName, r)
		if err != nil {
			return nil, fmt.Errorf("publisher: encode %s: %w", r.ID(), err)
		}
		ops = append(ops, op)
	}

	results, err := facade.Batch(ctx, ops)
	if err != nil {
		return nil, err
	}
	if len(results) != len(records) {
		return nil, fmt.Errorf("publisher: batch returned %d results for %d operations", len(results), len(records))
	}

	var outcomes []publishOutcome
	var retryRecords []record.Record

	for i, res := range results {
		r := records[i]
		switch {
		case res.Status >= 200 && res.Status < 300:
			var decoded record.Record
			if !r.Deleted() {
				decoded, err = pipeline.Decode(ctx, record.Record(res.Body))
				if err != nil {
					return nil, fmt.Errorf("publisher: decode response for %s: %w", r.ID(), err)
				}
			}
			outcomes = append(outcomes, publishOutcome{record: r, remoteRecord: decoded, kind: outcomePublished})

		case res.Status == 404 && r.Deleted():
			// Already gone on the remote: treat as a successful delete.
			outcomes = append(outcomes, publishOutcome{record: r, kind: outcomePublished})

		case res.Status == 412:
			remoteRecord, _ := pipeline.Decode(ctx, record.Record(res.Body))
			if strategy == StrategyClientWins && depth < maxClientWinsRetries {
				forced := r.Clone()
				if lm, ok := remoteRecord.LastModified(); ok {
					forced.SetLastModified(lm)
				}
				retryRecords = append(retryRecords, forced)
				continue
			}
			outcomes = append(outcomes, publishOutcome{record: r, remoteRecord: remoteRecord, kind: outcomeConflict})

		default:
			outcomes = append(outcomes, publishOutcome{
				record: r,
				kind:   outcomeError,
				err:    fmt.Errorf("publisher: unexpected status %d for %s", res.Status, r.ID()),
			})
		}
	}

	if len(retryRecords) > 0 {
		retried, err := publishBatch(ctx, facade, pipeline, bucket, collectionName, strategy, retryRecords, depth+1)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, retried...)
	}
	return outcomes, nil
}

func buildOperation(ctx context.Context, pipeline *transform.Pipeline, bucket, collectionName string, r record.Record) (remote.BatchOperation, error) {
	path := fmt.Sprintf("/buckets/%s/collections/%s/records/%s", bucket, collectionName, r.ID())

	if r.Deleted() {
		headers := map[string]string{}
		if lm, ok := r.LastModified(); ok {
			headers["If-Match"] = quoteTimestamp(lm)
		}
		return remote.BatchOperation{Method: "DELETE", Path: path, Headers: headers}, nil
	}

	encoded, err := pipeline.Encode(ctx, r.StripStatus())
	if err != nil {
		return remote.BatchOperation{}, err
	}
	body := map[string]any(encoded.StripLastModified())

	headers := map[string]string{}
	if lm, ok := r.LastModified(); ok {
		headers["If-Match"] = quoteTimestamp(lm)
	} else {
		headers["If-None-Match"] = "*"
	}

	method := "PUT"
	return remote.BatchOperation{Method: method, Path: path, Body: body, Headers: headers}, nil
}

func quoteTimestamp(ts int64) string {
	return strconv.Quote(strconv.FormatInt(ts, 10))
}
