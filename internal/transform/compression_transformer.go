package transform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/maxiofs/collectionsync/internal/record"
	"github.com/maxiofs/collectionsync/pkg/compression"
)

// CompressionTransformer gzip-compresses every user field of a record
// before it reaches the remote, trading CPU for payload size rather than
// confidentiality. Safe to compose before or after EncryptionTransformer;
// composing after encryption buys nothing since ciphertext doesn't
// compress, so callers should register it first in the pipeline.
type CompressionTransformer struct {
	compressor compression.Compressor
}

// NewCompressionTransformer wraps a Compressor as a pipeline stage.
func NewCompressionTransformer(compressor compression.Compressor) *CompressionTransformer {
	return &CompressionTransformer{compressor: compressor}
}

const compressedFieldKey = "__compressed"

func (t *CompressionTransformer) Encode(ctx context.Context, r record.Record) (record.Record, error) {
	payload := r.Clone()
	delete(payload, "id")
	delete(payload, "last_modified")

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("compression transformer: marshal payload: %w", err)
	}

	compressed, err := t.compressor.Compress(plaintext)
	if err != nil {
		return nil, fmt.Errorf("compression transformer: compress: %w", err)
	}
	blob, err := json.Marshal(compressed)
	if err != nil {
		return nil, fmt.Errorf("compression transformer: marshal envelope: %w", err)
	}

	out := record.Record{compressedFieldKey: base64.StdEncoding.EncodeToString(blob)}
	if id, ok := r["id"]; ok {
		out["id"] = id
	}
	if lm, ok := r["last_modified"]; ok {
		out["last_modified"] = lm
	}
	return out, nil
}

func (t *CompressionTransformer) Decode(ctx context.Context, r record.Record) (record.Record, error) {
	raw, ok := r[compressedFieldKey].(string)
	if !ok {
		return r, nil
	}

	blob, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("compression transformer: decode envelope: %w", err)
	}
	var compressed compression.CompressedData
	if err := json.Unmarshal(blob, &compressed); err != nil {
		return nil, fmt.Errorf("compression transformer: unmarshal envelope: %w", err)
	}

	plaintext, err := t.compressor.Decompress(&compressed)
	if err != nil {
		return nil, fmt.Errorf("compression transformer: decompress: %w", err)
	}

	var payload record.Record
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("compression transformer: unmarshal payload: %w", err)
	}
	if id, ok := r["id"]; ok {
		payload["id"] = id
	}
	if lm, ok := r["last_modified"]; ok {
		payload["last_modified"] = lm
	}
	return payload, nil
}
