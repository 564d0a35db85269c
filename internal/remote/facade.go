// Package remote defines the Remote HTTP Facade: the contract a
// Collection uses to talk to a Kinto-protocol server, plus a concrete
// net/http implementation and (in remotetest) an in-process fake server
// for integration tests.
package remote

import (
	"context"
)

// BatchOperation is one request inside a /batch call: Method is "POST",
// "PUT" or "DELETE"; Path is the per-record resource path; Body is the
// (already-transformed) record body; Headers carries preconditions like
// If-Match / If-None-Match.
type BatchOperation struct {
	Method  string
	Path    string
	Body    map[string]any
	Headers map[string]string
}

// BatchOperationResult is one response inside a /batch reply.
type BatchOperationResult struct {
	Status int
	Body   map[string]any
}

// ServerInfo is the subset of GET / that the sync protocol depends on.
type ServerInfo struct {
	BatchMaxRequests int
	URL              string
}

// ListRecordsOptions configures a pull request.
type ListRecordsOptions struct {
	Since             int64 // _since filter; 0 means "from the beginning"
	ExpectedTimestamp int64 // If-Match / If-None-Match precondition, 0 = none
	IncludeDeleted    bool
}

// ListRecordsResult is the response to a pull request: the changed
// records as the server returned them (HTTPFacade does not send
// IncludeDeleted, so tombstones appear as the server reports them) and
// the collection's current last_modified as reported by the server.
type ListRecordsResult struct {
	Records      []map[string]any
	LastModified int64
}

// Facade is everything a Collection needs from a Kinto-protocol remote.
type Facade interface {
	// GetServerInfo fetches server capabilities (batch size limit, etc).
	GetServerInfo(ctx context.Context) (*ServerInfo, error)

	// GetCollectionMetadata fetches the remote collection's metadata
	// object (schema, displayName, ...).
	GetCollectionMetadata(ctx context.Context, bucket, collection string) (map[string]any, error)

	// ListRecords pulls every change since opts.Since.
	ListRecords(ctx context.Context, bucket, collection string, opts ListRecordsOptions) (*ListRecordsResult, error)

	// Batch submits a list of operations as a single request and
	// returns their results in the same order.
	Batch(ctx context.Context, operations []BatchOperation) ([]BatchOperationResult, error)

	// Events returns the facade's event emitter, on which "backoff",
	// "retry-after" and "deprecated" fire.
	Events() *EventEmitter
}
