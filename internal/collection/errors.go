package collection

import (
	"fmt"
	"net/http"
)

// InvalidIDError is returned when a record's id fails the collection's
// idschema.Schema.Validate check.
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("collection: invalid id %q", e.ID)
}

// RecordNotFoundError is returned by Get/Update/Delete for an id with no
// matching record.
type RecordNotFoundError struct {
	ID string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("collection: record not found: %s", e.ID)
}

// ConflictingCreateError is returned by Create when the id already
// exists locally, or is held by a pending tombstone for the same id.
type ConflictingCreateError struct {
	ID string
}

func (e *ConflictingCreateError) Error() string {
	return fmt.Sprintf("collection: record already exists: %s", e.ID)
}

// ErrSyncInProgress is returned by Sync when a previous sync on the same
// Collection has not yet settled.
type ErrSyncInProgress struct {
	Bucket, Collection string
}

func (e *ErrSyncInProgress) Error() string {
	return fmt.Sprintf("collection: sync already in progress for %s/%s", e.Bucket, e.Collection)
}

// ServerFlushedError is returned when the remote reports it has lost all
// history for the collection (HTTP 410), meaning the local last_modified
// watermark is no longer meaningful.
type ServerFlushedError struct{}

func (e *ServerFlushedError) Error() string {
	return "collection: remote server flushed its history (410 Gone)"
}

// BackoffError is returned when the remote asked the client to slow down
// via a Backoff header before the retry window has elapsed.
type BackoffError struct {
	RemainingSeconds int
}

func (e *BackoffError) Error() string {
	return fmt.Sprintf("collection: backoff in effect, %d seconds remaining", e.RemainingSeconds)
}

// RetryAfterError is returned when the remote returned a 503 with a
// Retry-After header before that window has elapsed.
type RetryAfterError struct {
	RemainingSeconds int
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("collection: retry-after in effect, %d seconds remaining", e.RemainingSeconds)
}

// DeprecationWarning is a non-fatal notice surfaced via events, not
// returned as an error from Sync; kept here as it shares the taxonomy.
type DeprecationWarning struct {
	Message string
}

func (e *DeprecationWarning) Error() string {
	return fmt.Sprintf("collection: deprecation warning: %s", e.Message)
}

// TransportError wraps an unexpected HTTP response from the remote. When
// Sync returns it, Response carries only the StatusCode the Remote Facade
// reported; headers and body are not kept.
type TransportError struct {
	Response *http.Response
}

func (e *TransportError) Error() string {
	if e.Response == nil {
		return "collection: transport error"
	}
	return fmt.Sprintf("collection: transport error: unexpected status %d", e.Response.StatusCode)
}
