package transform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/maxiofs/collectionsync/internal/record"
	"github.com/maxiofs/collectionsync/pkg/encryption"
)

// EncryptionTransformer encrypts every user field of a record with
// AES-256-GCM before it reaches the remote, and decrypts it coming back.
// id and last_modified travel outside the encrypted envelope.
type EncryptionTransformer struct {
	service *encryption.EncryptionService
}

// NewEncryptionTransformer wraps an EncryptionService as a pipeline stage.
func NewEncryptionTransformer(service *encryption.EncryptionService) *EncryptionTransformer {
	return &EncryptionTransformer{service: service}
}

const encryptedFieldKey = "__encrypted"

// Encode replaces every field but id/last_modified with a single
// base64-encoded ciphertext blob.
func (t *EncryptionTransformer) Encode(ctx context.Context, r record.Record) (record.Record, error) {
	payload := r.Clone()
	delete(payload, "id")
	delete(payload, "last_modified")

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encryption transformer: marshal payload: %w", err)
	}

	encrypted, err := t.service.EncryptData(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encryption transformer: encrypt: %w", err)
	}
	blob, err := json.Marshal(encrypted)
	if err != nil {
		return nil, fmt.Errorf("encryption transformer: marshal envelope: %w", err)
	}

	out := record.Record{encryptedFieldKey: base64.StdEncoding.EncodeToString(blob)}
	if id, ok := r["id"]; ok {
		out["id"] = id
	}
	if lm, ok := r["last_modified"]; ok {
		out["last_modified"] = lm
	}
	return out, nil
}

// Decode reverses Encode, restoring the original user fields.
func (t *EncryptionTransformer) Decode(ctx context.Context, r record.Record) (record.Record, error) {
	raw, ok := r[encryptedFieldKey].(string)
	if !ok {
		// Nothing to decrypt (e.g. a tombstone); pass through untouched.
		return r, nil
	}

	blob, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("encryption transformer: decode envelope: %w", err)
	}
	var encrypted encryption.EncryptedData
	if err := json.Unmarshal(blob, &encrypted); err != nil {
		return nil, fmt.Errorf("encryption transformer: unmarshal envelope: %w", err)
	}

	plaintext, err := t.service.DecryptData(&encrypted)
	if err != nil {
		return nil, fmt.Errorf("encryption transformer: decrypt: %w", err)
	}

	var payload record.Record
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("encryption transformer: unmarshal payload: %w", err)
	}
	if id, ok := r["id"]; ok {
		payload["id"] = id
	}
	if lm, ok := r["last_modified"]; ok {
		payload["last_modified"] = lm
	}
	return payload, nil
}
