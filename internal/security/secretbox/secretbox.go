// Package secretbox seals short secrets with AES-256-GCM so config files
// never carry them in the clear. Encrypted values are marked with the
// "enc:" prefix and opened at load time with a master key supplied out of
// band, normally via SECRETBOX_MASTER_KEY.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// Prefix marks a configuration value as encrypted.
	Prefix = "enc:"

	// EnvMasterKey is the environment variable holding the master key,
	// base64 encoded. Generate one with: openssl rand -base64 32.
	EnvMasterKey = "SECRETBOX_MASTER_KEY"

	keySize   = 32 // AES-256
	nonceSize = 12 // standard GCM nonce (96 bits)
	sep       = "|"
)

var (
	// ErrNoKey is returned by FromEnv when the master key variable is unset.
	ErrNoKey = errors.New("secretbox: master key is not set")

	// ErrBadKey is returned when the master key does not decode to 32 bytes.
	ErrBadKey = errors.New("secretbox: master key must decode to 32 bytes")

	// ErrMalformed is returned when a value is not base64(nonce)|base64(ciphertext).
	ErrMalformed = errors.New("secretbox: malformed value")
)

// IsEncrypted reports whether v carries the encrypted-value prefix.
func IsEncrypted(v string) bool {
	return strings.HasPrefix(v, Prefix)
}

// Box seals and opens secrets under a fixed AES-256-GCM key.
type Box struct {
	aead cipher.AEAD
}

// New builds a Box from a master key given as standard base64, raw base64,
// hex, or 32 raw bytes.
func New(masterKey string) (*Box, error) {
	key, err := decodeKey(masterKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: gcm: %w", err)
	}
	return &Box{aead: aead}, nil
}

// FromEnv builds a Box from the SECRETBOX_MASTER_KEY environment variable.
func FromEnv() (*Box, error) {
	raw := strings.TrimSpace(os.Getenv(EnvMasterKey))
	if raw == "" {
		return nil, fmt.Errorf("%w (%s)", ErrNoKey, EnvMasterKey)
	}
	return New(raw)
}

// Encrypt seals plain under a fresh random nonce and returns the value in
// config form: "enc:" + base64(nonce) + "|" + base64(ciphertext).
func (b *Box) Encrypt(plain string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plain), nil)
	return Prefix + base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens a value produced by Encrypt. The "enc:" prefix is optional
// so both marked config values and bare ciphertexts can be passed in.
func (b *Box) Decrypt(value string) (string, error) {
	value = strings.TrimPrefix(value, Prefix)
	parts := strings.Split(value, sep)
	if len(parts) != 2 {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrMalformed, err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrMalformed, err)
	}
	if len(nonce) != nonceSize {
		return "", fmt.Errorf("%w: nonce is %d bytes, want %d", ErrMalformed, len(nonce), nonceSize)
	}
	plain, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secretbox: open: %w", err)
	}
	return string(plain), nil
}

// decodeKey accepts the master key in any of the encodings operators tend
// to paste: standard base64, raw base64, hex, or the raw 32 bytes.
func decodeKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == keySize {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(key); err == nil && len(b) == keySize {
		return b, nil
	}
	if len(key) == hex.EncodedLen(keySize) {
		if b, err := hex.DecodeString(key); err == nil {
			return b, nil
		}
	}
	if len(key) == keySize {
		return []byte(key), nil
	}
	return nil, ErrBadKey
}
