// Package transform implements the Transformer Pipeline applied to
// records crossing the remote boundary: Encode runs on the way out
// (local -> remote), Decode runs on the way in (remote -> local), in
// reverse registration order, so the chain composes like layers of an
// onion around the wire payload.
package transform

import (
	"context"

	"github.com/maxiofs/collectionsync/internal/record"
)

// Transformer is one stage of the pipeline. Encode and Decode must be
// exact inverses of one another over every field except id and
// last_modified, which every Transformer must pass through untouched.
type Transformer interface {
	Encode(ctx context.Context, r record.Record) (record.Record, error)
	Decode(ctx context.Context, r record.Record) (record.Record, error)
}

// Pipeline runs an ordered list of Transformers.
type Pipeline struct {
	stages []Transformer
}

// NewPipeline returns a Pipeline running stages in the given order for
// Encode and the reverse order for Decode.
func NewPipeline(stages ...Transformer) *Pipeline {
	return &Pipeline{stages: stages}
}

// Encode runs every stage's Encode in registration order.
func (p *Pipeline) Encode(ctx context.Context, r record.Record) (record.Record, error) {
	id, hasID := r["id"]
	lastModified, hasLastModified := r["last_modified"]

	cur := r
	for _, stage := range p.stages {
		next, err := stage.Encode(ctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return restoreReserved(cur, id, hasID, lastModified, hasLastModified), nil
}

// Decode runs every stage's Decode in reverse registration order.
func (p *Pipeline) Decode(ctx context.Context, r record.Record) (record.Record, error) {
	id, hasID := r["id"]
	lastModified, hasLastModified := r["last_modified"]

	cur := r
	for i := len(p.stages) - 1; i >= 0; i-- {
		next, err := p.stages[i].Decode(ctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return restoreReserved(cur, id, hasID, lastModified, hasLastModified), nil
}

func restoreReserved(r record.Record, id any, hasID bool, lastModified any, hasLastModified bool) record.Record {
	if hasID {
		r["id"] = id
	}
	if hasLastModified {
		r["last_modified"] = lastModified
	}
	return r
}
