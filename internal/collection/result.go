package collection

import "github.com/maxiofs/collectionsync/internal/record"

// Conflict describes a record that differs between the local pending
// change and the remote state and could not be reconciled automatically.
type Conflict struct {
	Type   ConflictType
	Local  record.Record
	Remote record.Record
}

// ConflictType classifies the kind of disagreement between local and
// remote state.
type ConflictType string

const (
	// ConflictIncoming: remote changed (did not delete) a record the
	// client also changed or deleted locally, with diverging content.
	ConflictIncoming ConflictType = "incoming"
	// ConflictOutgoing: the client's local change was rejected by the
	// remote on publish because the remote had moved on (412).
	ConflictOutgoing ConflictType = "outgoing"
	// ConflictDeleteIncoming: the remote deleted a record the client
	// also changed locally.
	ConflictDeleteIncoming ConflictType = "delete-incoming"
)

// UpdatedPair records an existing record being overwritten: Old is the
// value it held before the write, New is the value written.
type UpdatedPair struct {
	Old record.Record
	New record.Record
}

// ResolvedPair records an automatic conflict resolution: Accepted is the
// version written locally, Rejected is the version discarded.
type ResolvedPair struct {
	Accepted record.Record
	Rejected record.Record
}

// SyncResult aggregates the outcome of one Sync call.
type SyncResult struct {
	LastModified int64

	Created   []record.Record
	Updated   []UpdatedPair
	Deleted   []record.Record
	Published []record.Record
	Skipped   []record.Record
	Resolved  []ResolvedPair
	Conflicts []Conflict
	Errors    []error
}

// OK reports whether the sync completed with no unresolved conflicts and
// no errors.
func (r *SyncResult) OK() bool {
	return len(r.Errors) == 0 && len(r.Conflicts) == 0
}

func (r *SyncResult) addError(err error) {
	r.Errors = append(r.Errors, err)
}

// merge folds another SyncResult's entries into r, used to combine the
// importer's incoming-side result with the publisher's outgoing-side
// result into one final SyncResult for the caller.
func (r *SyncResult) merge(other *SyncResult) {
	if other == nil {
		return
	}
	r.Created = append(r.Created, other.Created...)
	r.Updated = append(r.Updated, other.Updated...)
	r.Deleted = append(r.Deleted, other.Deleted...)
	r.Published = append(r.Published, other.Published...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.Resolved = append(r.Resolved, other.Resolved...)
	r.Conflicts = append(r.Conflicts, other.Conflicts...)
	r.Errors = append(r.Errors, other.Errors...)
	if other.LastModified > r.LastModified {
		r.LastModified = other.LastModified
	}
}
