// Package crypto seals backup snapshots with a passphrase so exports
// can leave the device without exposing their contents. Keys are
// derived with Argon2id and payloads encrypted with AES-256-GCM.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Sealed envelope layout: magic || salt || nonce || ciphertext.
var magic = []byte("HSBK1")

const (
	// keyLen is the AES-256 key length in bytes.
	keyLen = 32
	// nonceLen is the GCM nonce length in bytes.
	nonceLen = 12
	// saltLen is the Argon2id salt length in bytes.
	saltLen = 32

	// Argon2id parameters.
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var (
	// ErrNotSealed is returned when Open is given data without the
	// sealed-envelope magic.
	ErrNotSealed = errors.New("crypto: data is not a sealed snapshot")
	// ErrWrongPassphrase is returned when a sealed snapshot fails to
	// authenticate, which in practice means a bad passphrase.
	ErrWrongPassphrase = errors.New("crypto: wrong passphrase")
)

// IsSealed reports whether data carries the sealed-envelope magic.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// Seal encrypts plaintext under a key derived from passphrase and
// returns a self-contained envelope that Open can decrypt.
func Seal(passphrase string, plaintext []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("crypto: passphrase must not be empty")
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("random salt: %w", err)
	}
	key := deriveKey(passphrase, salt)

	ct, err := encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(magic)+saltLen+len(ct))
	sealed = append(sealed, magic...)
	sealed = append(sealed, salt...)
	sealed = append(sealed, ct...)
	return sealed, nil
}

// Open decrypts an envelope produced by Seal.
func Open(passphrase string, sealed []byte) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, ErrNotSealed
	}
	body := sealed[len(magic):]
	if len(body) < saltLen+nonceLen {
		return nil, errors.New("crypto: sealed snapshot truncated")
	}

	salt := body[:saltLen]
	key := deriveKey(passphrase, salt)

	plaintext, err := decrypt(key, body[saltLen:])
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}

// deriveKey derives an AES-256 key from a passphrase using Argon2id.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyLen)
}

// encrypt encrypts plaintext using AES-256-GCM with a 256-bit key.
// Returns nonce || ciphertext (nonce is prepended).
func encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("random nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt decrypts ciphertext produced by encrypt.
func decrypt(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceLen {
		return nil, errors.New("ciphertext too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	nonce := ciphertext[:nonceLen]
	ct := ciphertext[nonceLen:]

	plaintext, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
