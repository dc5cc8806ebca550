package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrEncryption     = errors.New("encryption failed")
	ErrDecryption     = errors.New("decryption failed")
)

// Encryptor seals values at rest. The associated data binds a ciphertext to
// where it is stored, so a value copied under another key fails to open.
type Encryptor interface {
	Encrypt(plaintext, associated []byte) ([]byte, error)
	Decrypt(ciphertext, associated []byte) ([]byte, error)
}

// ParseKey decodes a base64 AES key of 16, 24 or 32 bytes.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	}
	return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKeySize, len(key))
}

// NewAESEncryptor returns an AES-GCM encryptor. Ciphertexts carry their nonce
// as a prefix.
func NewAESEncryptor(key []byte) (Encryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrEncryption
	}
	return &aesGCM{aead: gcm}, nil
}

type aesGCM struct {
	aead cipher.AEAD
}

func (a *aesGCM) Encrypt(plaintext, associated []byte) ([]byte, error) {
	nonce := make([]byte, a.aead.NonceSize(), a.aead.NonceSize()+len(plaintext)+a.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, ErrEncryption
	}
	return a.aead.Seal(nonce, nonce, plaintext, associated), nil
}

func (a *aesGCM) Decrypt(ciphertext, associated []byte) ([]byte, error) {
	n := a.aead.NonceSize()
	if len(ciphertext) < n+a.aead.Overhead() {
		return nil, ErrDecryption
	}
	plaintext, err := a.aead.Open(nil, ciphertext[:n], ciphertext[n:], associated)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}
