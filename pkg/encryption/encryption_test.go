package encryption

import (
	"bytes"
	"testing"
)

func TestAESGCMEncryption(t *testing.T) {
	encryptor := NewAESGCMEncryptor(DefaultEncryptionConfig())

	// Test data
	originalData := []byte("Hello, World! This is a test message for encryption.")
	key, err := encryptor.GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	// Test encryption
	encrypted, err := encryptor.Encrypt(originalData, key)
	if err != nil {
		t.Fatalf("Failed to encrypt data: %v", err)
	}

	if len(encrypted.Data) == 0 {
		t.Fatal("Encrypted data is empty")
	}

	if encrypted.Algorithm != "AES-256-GCM" {
		t.Errorf("Expected algorithm AES-256-GCM, got %s", encrypted.Algorithm)
	}

	// Test decryption
	decrypted, err := encryptor.Decrypt(encrypted, key)
	if err != nil {
		t.Fatalf("Failed to decrypt data: %v", err)
	}

	if !bytes.Equal(originalData, decrypted) {
		t.Errorf("Decrypted data doesn't match original. Expected: %s, Got: %s", originalData, decrypted)
	}
}

func TestEncryptionService(t *testing.T) {
	service := NewEncryptionService(DefaultEncryptionConfig())

	// Test data
	originalData := []byte("Test data for encryption service")

	// Test encryption
	encrypted, err := service.EncryptData(originalData)
	if err != nil {
		t.Fatalf("Failed to encrypt data: %v", err)
	}

	if encrypted.KeyID == "" {
		t.Error("KeyID should not be empty")
	}

	// Test decryption
	decrypted, err := service.DecryptData(encrypted)
	if err != nil {
		t.Fatalf("Failed to decrypt data: %v", err)
	}

	if !bytes.Equal(originalData, decrypted) {
		t.Errorf("Decrypted data doesn't match original")
	}
}

func TestDeriveKeyIsDeterministicAndEncryptsWithShortKeys(t *testing.T) {
	encryptor := NewAESGCMEncryptor(DefaultEncryptionConfig())

	password := []byte("not-32-bytes")
	salt := []byte("collectionsync-salt")

	derivedA := encryptor.DeriveKey(password, salt)
	derivedB := encryptor.DeriveKey(password, salt)
	if !bytes.Equal(derivedA, derivedB) {
		t.Fatal("DeriveKey should be deterministic for the same password and salt")
	}
	if len(derivedA) != 32 {
		t.Fatalf("expected a 32-byte derived key, got %d bytes", len(derivedA))
	}

	originalData := []byte("short-key encryption round trip")
	encrypted, err := encryptor.Encrypt(originalData, password)
	if err != nil {
		t.Fatalf("Failed to encrypt with a short key: %v", err)
	}

	decrypted, err := encryptor.Decrypt(encrypted, password)
	if err != nil {
		t.Fatalf("Failed to decrypt with a short key: %v", err)
	}
	if !bytes.Equal(originalData, decrypted) {
		t.Error("decrypted data doesn't match original")
	}
}

func TestKeyManager(t *testing.T) {
	km := NewInMemoryKeyManager()

	// Test key storage
	testKey := []byte("test-key-32-bytes-long-for-aes256")
	err := km.StoreKey("test-key", testKey)
	if err != nil {
		t.Fatalf("Failed to store key: %v", err)
	}

	// Test key retrieval
	retrievedKey, err := km.GetKey("test-key")
	if err != nil {
		t.Fatalf("Failed to get key: %v", err)
	}

	if !bytes.Equal(testKey, retrievedKey) {
		t.Error("Retrieved key doesn't match stored key")
	}

	// Test default key
	defaultKey, keyID, err := km.GetDefaultKey()
	if err != nil {
		t.Fatalf("Failed to get default key: %v", err)
	}

	if keyID != "test-key" {
		t.Errorf("Expected default key ID 'test-key', got '%s'", keyID)
	}

	if !bytes.Equal(testKey, defaultKey) {
		t.Error("Default key doesn't match stored key")
	}

	// Test key listing
	keys, err := km.ListKeys()
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}

	if len(keys) != 1 || keys[0] != "test-key" {
		t.Errorf("Expected keys ['test-key'], got %v", keys)
	}

	// Test key deletion
	err = km.DeleteKey("test-key")
	if err != nil {
		t.Fatalf("Failed to delete key: %v", err)
	}

	_, err = km.GetKey("test-key")
	if err == nil {
		t.Error("Expected error when getting deleted key")
	}
}
