// Package encryption implements the Encryptor used by
// internal/transform's EncryptionTransformer: AES-256-GCM over whole
// record payloads, with an in-memory key manager for the single default
// key a sync client typically holds.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// EncryptionConfig holds encryption configuration.
type EncryptionConfig struct {
	// Algorithm specifies the encryption algorithm. Only AES-256-GCM is
	// implemented; any other value falls back to it.
	Algorithm string
	// KeyDerivationRounds for PBKDF2 (default: 10000).
	KeyDerivationRounds int
}

// Encryptor defines the interface for encrypting and decrypting whole
// payloads with a caller-supplied key.
type Encryptor interface {
	Encrypt(data []byte, key []byte) (*EncryptedData, error)
	Decrypt(encryptedData *EncryptedData, key []byte) ([]byte, error)
	GenerateKey() ([]byte, error)
	DeriveKey(password, salt []byte) []byte
}

// EncryptedData represents encrypted data with metadata.
type EncryptedData struct {
	Data      []byte            `json:"data"`
	IV        []byte            `json:"iv"`
	Algorithm string            `json:"algorithm"`
	KeyID     string            `json:"key_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// KeyManager stores and retrieves encryption keys by ID.
type KeyManager interface {
	GetKey(keyID string) ([]byte, error)
	StoreKey(keyID string, key []byte) error
	DeleteKey(keyID string) error
	ListKeys() ([]string, error)
	RotateKey(keyID string) ([]byte, error)
	GetDefaultKey() ([]byte, string, error)
}

// aesGCMEncryptor implements AES-GCM encryption.
type aesGCMEncryptor struct {
	config *EncryptionConfig
}

// NewAESGCMEncryptor creates an AES-GCM Encryptor.
func NewAESGCMEncryptor(config *EncryptionConfig) Encryptor {
	if config == nil {
		config = DefaultEncryptionConfig()
	}
	return &aesGCMEncryptor{config: config}
}

// DefaultEncryptionConfig returns the default encryption configuration.
func DefaultEncryptionConfig() *EncryptionConfig {
	return &EncryptionConfig{
		Algorithm:           "AES-256-GCM",
		KeyDerivationRounds: 10000,
	}
}

// Encrypt encrypts data using AES-GCM. Keys that are not exactly 32 bytes
// are stretched via DeriveKey first.
func (e *aesGCMEncryptor) Encrypt(data []byte, key []byte) (*EncryptedData, error) {
	if len(key) != 32 {
		key = e.DeriveKey(key, []byte("collectionsync-salt"))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	ciphertext := gcm.Seal(nil, iv, data, nil)

	return &EncryptedData{
		Data:      ciphertext,
		IV:        iv,
		Algorithm: e.config.Algorithm,
		Metadata:  make(map[string]string),
	}, nil
}

// Decrypt decrypts data using AES-GCM.
func (e *aesGCMEncryptor) Decrypt(encryptedData *EncryptedData, key []byte) ([]byte, error) {
	if len(key) != 32 {
		key = e.DeriveKey(key, []byte("collectionsync-salt"))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, encryptedData.IV, encryptedData.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt data: %w", err)
	}

	return plaintext, nil
}

// GenerateKey generates a new 256-bit encryption key.
func (e *aesGCMEncryptor) GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return key, nil
}

// DeriveKey derives a 256-bit key from password and salt using PBKDF2-HMAC-SHA256.
func (e *aesGCMEncryptor) DeriveKey(password, salt []byte) []byte {
	rounds := e.config.KeyDerivationRounds
	if rounds <= 0 {
		rounds = 10000
	}
	return pbkdf2.Key(password, salt, rounds, 32, sha256.New)
}

// inMemoryKeyManager implements KeyManager using in-memory storage.
type inMemoryKeyManager struct {
	keys       map[string][]byte
	defaultKey string
}

// NewInMemoryKeyManager creates an in-memory KeyManager.
func NewInMemoryKeyManager() KeyManager {
	return &inMemoryKeyManager{
		keys: make(map[string][]byte),
	}
}

func (km *inMemoryKeyManager) GetKey(keyID string) ([]byte, error) {
	key, exists := km.keys[keyID]
	if !exists {
		return nil, errors.New("key not found")
	}
	return key, nil
}

func (km *inMemoryKeyManager) StoreKey(keyID string, key []byte) error {
	if len(key) == 0 {
		return errors.New("key cannot be empty")
	}
	km.keys[keyID] = make([]byte, len(key))
	copy(km.keys[keyID], key)

	if km.defaultKey == "" {
		km.defaultKey = keyID
	}

	return nil
}

func (km *inMemoryKeyManager) DeleteKey(keyID string) error {
	if _, exists := km.keys[keyID]; !exists {
		return errors.New("key not found")
	}
	delete(km.keys, keyID)

	if km.defaultKey == keyID {
		km.defaultKey = ""
	}

	return nil
}

func (km *inMemoryKeyManager) ListKeys() ([]string, error) {
	keys := make([]string, 0, len(km.keys))
	for keyID := range km.keys {
		keys = append(keys, keyID)
	}
	return keys, nil
}

func (km *inMemoryKeyManager) RotateKey(keyID string) ([]byte, error) {
	newKey := make([]byte, 32)
	if _, err := rand.Read(newKey); err != nil {
		return nil, fmt.Errorf("failed to generate new key: %w", err)
	}

	newKeyID := fmt.Sprintf("%s-v%d", keyID, len(km.keys)+1)
	if err := km.StoreKey(newKeyID, newKey); err != nil {
		return nil, err
	}

	return newKey, nil
}

func (km *inMemoryKeyManager) GetDefaultKey() ([]byte, string, error) {
	if km.defaultKey == "" {
		return nil, "", errors.New("no default key set")
	}

	key, err := km.GetKey(km.defaultKey)
	if err != nil {
		return nil, "", err
	}

	return key, km.defaultKey, nil
}

// EncryptionService combines an Encryptor and a KeyManager behind the
// single default key a Collection's EncryptionTransformer uses.
type EncryptionService struct {
	encryptor  Encryptor
	keyManager KeyManager
	config     *EncryptionConfig
}

// NewEncryptionService creates an EncryptionService backed by an
// in-memory KeyManager.
func NewEncryptionService(config *EncryptionConfig) *EncryptionService {
	if config == nil {
		config = DefaultEncryptionConfig()
	}

	return &EncryptionService{
		encryptor:  NewAESGCMEncryptor(config),
		keyManager: NewInMemoryKeyManager(),
		config:     config,
	}
}

// EncryptData encrypts data using the service's default key, generating
// one on first use.
func (es *EncryptionService) EncryptData(data []byte) (*EncryptedData, error) {
	key, keyID, err := es.keyManager.GetDefaultKey()
	if err != nil {
		key, err = es.encryptor.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
		keyID = "default"
		if err := es.keyManager.StoreKey(keyID, key); err != nil {
			return nil, fmt.Errorf("failed to store key: %w", err)
		}
	}

	encryptedData, err := es.encryptor.Encrypt(data, key)
	if err != nil {
		return nil, err
	}

	encryptedData.KeyID = keyID
	return encryptedData, nil
}

// DecryptData decrypts data using the key named in encryptedData.KeyID.
func (es *EncryptionService) DecryptData(encryptedData *EncryptedData) ([]byte, error) {
	keyID := encryptedData.KeyID
	if keyID == "" {
		keyID = "default"
	}

	key, err := es.keyManager.GetKey(keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", keyID, err)
	}

	return es.encryptor.Decrypt(encryptedData, key)
}

// GetKeyManager returns the service's key manager.
func (es *EncryptionService) GetKeyManager() KeyManager {
	return es.keyManager
}

// GetEncryptor returns the service's encryptor.
func (es *EncryptionService) GetEncryptor() Encryptor {
	return es.encryptor
}
