package cipher

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeySize is the length in bytes of a secretbox key.
	KeySize = 32
	// NonceSize is the length in bytes of a secretbox nonce.
	NonceSize = 24
	// Overhead is the number of bytes secretbox adds to a message (the
	// Poly1305 tag, placed before the ciphertext).
	Overhead = secretbox.Overhead
)

// ErrAuthFailure is returned when secretbox MAC verification fails. Open
// never returns partial plaintext on failure.
var ErrAuthFailure = errors.New("cipher: message authentication failed")

// NewNonce returns a fresh random 24-byte nonce.
func NewNonce() ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, err
	}
	return nonce, nil
}

// Seal applies the secretbox construction (XSalsa20 stream cipher followed
// by a Poly1305 MAC) to plaintext using key and nonce. The returned slice is
// len(plaintext)+Overhead bytes.
func Seal(key [KeySize]byte, nonce [NonceSize]byte, plaintext []byte) []byte {
	return secretbox.Seal(nil, plaintext, &nonce, &key)
}

// Open verifies and decrypts data previously produced by Seal. On MAC
// failure it returns ErrAuthFailure and no plaintext.
func Open(key [KeySize]byte, nonce [NonceSize]byte, ciphertext []byte) ([]byte, error) {
	plain, ok := secretbox.Open(nil, ciphertext, &nonce, &key)
	if !ok {
		return nil, ErrAuthFailure
	}
	return plain, nil
}
