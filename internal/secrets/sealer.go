package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/crypto/hkdf"
)

// Per-user AES-GCM obfuscation for values kept on local disk.
// Not a replacement for OS keychains but avoids plain-text tokens.

const keyInfo = "receiptdesk/local-store/v1"

var ErrCiphertextTooShort = errors.New("secrets: ciphertext too short")

// Sealer encrypts small values with a key bound to the current user and host.
type Sealer struct {
	key []byte
}

// NewSealer derives the key from user, host and OS. Use NewSealerWithSecret
// when the derivation input must be fixed (tests, shared config dirs).
func NewSealer() (*Sealer, error) {
	host, _ := os.Hostname()
	return NewSealerWithSecret(fmt.Sprintf("%s-%s-%s", runtime.GOOS, os.Getenv("USER"), host))
}

func NewSealerWithSecret(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("secrets: empty key material")
	}
	salt := sha256.Sum256([]byte("receiptdesk"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), salt[:], []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("secrets: derive key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal returns base64(nonce || ciphertext).
func (s *Sealer) Seal(plain string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := gcm.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("secrets: decode: %w", err)
	}
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", ErrCiphertextTooShort
	}
	nonce, body := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	pt, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("secrets: open: %w", err)
	}
	return string(pt), nil
}

func (s *Sealer) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
