// Package secretbox provides authenticated symmetric encryption and secure
// random token generation for the authentication core.
//
// # Cipher
//
// AES-256-GCM with a fresh random nonce per call; the nonce is prepended to
// the ciphertext so the output is self-contained. Decryption of tampered or
// mis-keyed input fails with [ErrDecrypt] — never a silent empty result.
//
// # What this package must NOT do
//
//   - Manage or persist keys (callers own key material).
//   - Import any other authcore package.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

// ErrDecrypt is returned when ciphertext fails authentication, the key is
// wrong, or the input is too short to contain a nonce.
var ErrDecrypt = errors.New("decryption failed")

// ErrTokenLength is returned when a token byte length is not positive.
var ErrTokenLength = errors.New("token byte length must be positive")

// DefaultTokenBytes is the token entropy used when callers pass no explicit length.
const DefaultTokenBytes = 32

// Token returns a hex-encoded token of byteLength random bytes drawn from
// the cryptographically secure source.
func Token(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", ErrTokenLength
	}

	raw := make([]byte, byteLength)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}

	return hex.EncodeToString(raw), nil
}

// Seal encrypts plaintext under key and returns nonce||ciphertext. The key
// may be any length; it is stretched to 256 bits with SHA-256.
func Seal(plaintext, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts output produced by [Seal]. Any authentication failure,
// wrong key, or truncated input yields [ErrDecrypt].
func Open(ciphertext, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrDecrypt
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}

	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	derived := sha256.Sum256(key)

	block, err := aes.NewCipher(derived[:])
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
