// Package seal provides field-level encryption for archive rows: individual
// text attributes are encrypted with AES-GCM before they reach durable
// storage, while numeric columns and the searchable-text projection stay in
// the clear for listing, sorting and indexing.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Marker prefixes every encrypted field value.
const Marker = "ENC:"

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// ErrDecrypt is returned when a marked field cannot be decrypted. Callers
// treat it as a recoverable per-field condition, not a fatal read error.
var ErrDecrypt = errors.New("field decrypt failed")

// Cipher encrypts and decrypts individual text fields.
type Cipher struct {
	aead cipher.AEAD
}

// New creates a Cipher from a raw 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// NewFromPassphrase derives a key with argon2id and creates a Cipher.
func NewFromPassphrase(passphrase string, salt []byte) (*Cipher, error) {
	if len(salt) == 0 {
		return nil, errors.New("empty salt")
	}
	key := argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, KeySize)
	return New(key)
}

// EncryptField encrypts a plaintext field value. The result carries the
// marker prefix followed by base64(nonce || ciphertext).
func (c *Cipher) EncryptField(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Marker + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptField reverses EncryptField. Values without the marker are returned
// unchanged so legacy plaintext rows keep loading.
func (c *Cipher) DecryptField(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Marker))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value carries the encryption marker.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Marker)
}
