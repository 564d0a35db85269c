// Package record defines the wire/storage data model shared by every
// sync component: a schemaless document plus the local-only status that
// tracks its relationship to the last known remote state.
package record

import "fmt"

// Status is the local lifecycle state of a record. It is never sent to
// the remote: it is stripped from the body before any transport call.
type Status string

const (
	StatusCreated Status = "created"
	StatusUpdated Status = "updated"
	StatusDeleted Status = "deleted"
	StatusSynced  Status = "synced"
)

const (
	fieldID           = "id"
	fieldLastModified = "last_modified"
	fieldStatus       = "_status"
)

// Record is a schemaless document. Unknown fields round-trip untouched;
// only id, last_modified and _status carry reserved meaning.
type Record map[string]any

// ID returns the record's id, or "" if unset.
func (r Record) ID() string {
	v, _ := r[fieldID].(string)
	return v
}

// SetID sets the record's id.
func (r Record) SetID(id string) {
	r[fieldID] = id
}

// LastModified returns the record's last_modified timestamp and whether it
// is set. An unset last_modified means the record has never been
// acknowledged by the remote.
func (r Record) LastModified() (int64, bool) {
	switch v := r[fieldLastModified].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// SetLastModified sets the record's last_modified timestamp.
func (r Record) SetLastModified(ts int64) {
	r[fieldLastModified] = ts
}

// Status returns the record's local status, defaulting to StatusSynced
// when unset (the natural state of a record just pulled from the remote).
func (r Record) Status() Status {
	if v, ok := r[fieldStatus].(string); ok {
		return Status(v)
	}
	return StatusSynced
}

// SetStatus sets the record's local status.
func (r Record) SetStatus(s Status) {
	r[fieldStatus] = s
}

// Deleted reports whether the record's status marks it as a local-only
// tombstone pending publish, or an already-published tombstone.
func (r Record) Deleted() bool {
	return r.Status() == StatusDeleted
}

// Clone returns a shallow copy safe to mutate independently of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// StripStatus returns a copy of r with _status removed, suitable for
// transmission to the remote.
func (r Record) StripStatus() Record {
	out := r.Clone()
	delete(out, fieldStatus)
	return out
}

// StripLastModified returns a copy of r with last_modified removed; used
// when the value must travel in a request header instead of the body.
func (r Record) StripLastModified() Record {
	out := r.Clone()
	delete(out, fieldLastModified)
	return out
}

// NewTombstone builds the minimal remote representation of a deleted
// record: just id and last_modified.
func NewTombstone(id string, lastModified int64) Record {
	return Record{
		fieldID:           id,
		fieldLastModified: lastModified,
	}
}

// Validate checks the minimal structural requirements every record must
// satisfy before it can be handed to a Storage Adapter: a non-empty id.
func Validate(r Record) error {
	if r.ID() == "" {
		return fmt.Errorf("record: missing id")
	}
	return nil
}
