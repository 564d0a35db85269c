package collection

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/maxiofs/collectionsync/internal/record"
	"github.com/maxiofs/collectionsync/internal/storage"
)

// sameContent reports whether a and b are identical once _status and
// last_modified are disregarded, per the importer's "modulo {_status,
// last_modified}" equality used to detect a no-op pull and to reconcile
// a local pending change that happens to already match the remote.
func sameContent(a, b record.Record) bool {
	ac, err := json.Marshal(a.StripStatus().StripLastModified())
	if err != nil {
		return false
	}
	bc, err := json.Marshal(b.StripStatus().StripLastModified())
	if err != nil {
		return false
	}
	return bytes.Equal(ac, bc)
}

// importChanges reconciles one batch of remote changes against local
// state inside a single adapter transaction: every record is classified
// as absent/synced/pending-local-change and handled accordingly, per the
// three-branch decision tree described in the module's data model.
//
// lastModified only advances to newLastModified if this batch left no
// unresolved conflicts: a manual-strategy conflict blocks the advance so
// the next Sync re-pulls the same window instead of silently losing
// track of it, until Resolve (or an auto-resolving strategy) clears it.
func importChanges(ctx context.Context, adapter storage.Adapter, strategy Strategy, changes []record.Record, newLastModified int64) (*SyncResult, error) {
	result := &SyncResult{}
	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		ids = append(ids, c.ID())
	}

	err := adapter.Execute(ctx, ids, func(txn storage.TxnProxy) error {
		for _, remoteRecord := range changes {
			id := remoteRecord.ID()
			local, getErr := txn.Get(ctx, id)
			localExists := getErr == nil

			remoteDeleted, _ := remoteRecord["deleted"].(bool)

			switch {
			case !localExists:
				if remoteDeleted {
					result.Skipped = append(result.Skipped, remoteRecord)
					continue
				}
				toCreate := remoteRecord.Clone()
				toCreate.SetStatus(record.StatusSynced)
				if err := txn.Create(ctx, toCreate); err != nil {
					return err
				}
				result.Created = append(result.Created, toCreate)

			case local.Status() == record.StatusSynced:
				if remoteDeleted {
					if _, err := txn.Delete(ctx, id); err != nil {
						return err
					}
					result.Deleted = append(result.Deleted, remoteRecord)
					continue
				}
				if sameContent(local, remoteRecord) {
					// Record pulled again unchanged: void, not an update.
					continue
				}
				toUpdate := remoteRecord.Clone()
				toUpdate.SetStatus(record.StatusSynced)
				if err := txn.Update(ctx, toUpdate); err != nil {
					return err
				}
				result.Updated = append(result.Updated, UpdatedPair{Old: local, New: toUpdate})

			case remoteDeleted && local.Status() == record.StatusDeleted:
				// Both sides independently deleted the same record: no
				// disagreement to surface, just finalize the tombstone.
				if _, err := txn.Delete(ctx, id); err != nil {
					return err
				}
				result.Skipped = append(result.Skipped, remoteRecord)

			case remoteDeleted:
				conflict := Conflict{Type: ConflictDeleteIncoming, Local: local, Remote: remoteRecord}
				if handled, err := handleConflict(ctx, txn, strategy, conflict, result); err != nil {
					return err
				} else if !handled {
					result.Conflicts = append(result.Conflicts, conflict)
				}

			case sameContent(local, remoteRecord):
				// Local's pending change already matches the remote's
				// content: reconcile silently instead of raising a
				// conflict neither side would want to resolve.
				reconciled := remoteRecord.Clone()
				reconciled.SetStatus(record.StatusSynced)
				if err := txn.Update(ctx, reconciled); err != nil {
					return err
				}
				result.Updated = append(result.Updated, UpdatedPair{Old: local, New: reconciled})

			default:
				conflict := Conflict{Type: ConflictIncoming, Local: local, Remote: remoteRecord}
				if handled, err := handleConflict(ctx, txn, strategy, conflict, result); err != nil {
					return err
				} else if !handled {
					result.Conflicts = append(result.Conflicts, conflict)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Conflicts) == 0 {
		result.LastModified = newLastModified
	}
	return result, nil
}

// handleConflict applies the collection's strategy to a detected
// conflict and stages the outcome in the same transaction. It returns
// true if the conflict was resolved (and so should not also be appended
// to result.Conflicts by the caller).
func handleConflict(ctx context.Context, txn storage.TxnProxy, strategy Strategy, c Conflict, result *SyncResult) (bool, error) {
	resolved, rePublish := resolve(strategy, c)
	if resolved == nil {
		return false, nil
	}
	if rePublish {
		resolved.SetStatus(record.StatusUpdated)
	}

	if resolved.Deleted() {
		if _, err := txn.Delete(ctx, resolved.ID()); err != nil {
			return false, err
		}
	} else if err := txn.Update(ctx, resolved); err != nil {
		return false, err
	}

	rejected := c.Local
	if strategy == StrategyClientWins {
		rejected = c.Remote
	}
	result.Resolved = append(result.Resolved, ResolvedPair{Accepted: resolved, Rejected: rejected})
	return true, nil
}
