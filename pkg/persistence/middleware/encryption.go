package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
)

// KeySize is the key length of AES-256.
const KeySize = 32

const envelopeKey = "__encrypted__"

// ErrInvalidKey is returned for keys that are not KeySize bytes long.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new records.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.RunStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts records using
// AES-GCM. The stored envelope keeps only the run ID, status and timestamps
// in clear so that archives can still be listed and monitored.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != KeySize {
		return nil, ErrInvalidKey
	}
	for _, k := range config.FallbackKeys {
		if len(k) != KeySize {
			return nil, fmt.Errorf("fallback key: %w", ErrInvalidKey)
		}
	}
	return func(next ports.RunStore) ports.RunStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, record *domain.RunRecord) error {
	plainText, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt record: %w", err)
	}

	envelope := &domain.RunRecord{
		ID:         record.ID,
		Status:     record.Status,
		StartedAt:  record.StartedAt,
		FinishedAt: record.FinishedAt,
		Metadata: map[string]any{
			envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
		},
	}
	return m.next.Save(ctx, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	envelope, err := m.next.Load(ctx, runID)
	if err != nil {
		return nil, err
	}

	// Fail secure: a store configured for encryption never serves plain records.
	encoded, ok := envelope.Metadata[envelopeKey].(string)
	if !ok {
		return nil, errors.New("record is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt record: %w", err)
	}

	var record domain.RunRecord
	if err := json.Unmarshal(plainText, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted record: %w", err)
	}
	return &record, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
