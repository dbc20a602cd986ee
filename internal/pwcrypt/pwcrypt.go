// Package pwcrypt encrypts individual password fields with the same master
// key that protects the envelope, so a password value stored in the plain
// text table is never itself plaintext on disk.
//
// It depends only on internal/cipher and a narrow KeySource interface,
// deliberately not on internal/keybox, so that keybox can depend on
// pwcrypt without an import cycle.
package pwcrypt

import (
	"github.com/rbrich/keybox/internal/cipher"
)

// KeySource supplies the 32-byte master key used to encrypt and decrypt
// password fields. internal/keybox's open vault satisfies this.
type KeySource interface {
	Key() [cipher.KeySize]byte
}

// Encrypt seals plaintext under a fresh random nonce and returns
// base64(nonce || ciphertext), the exact string stored in the password
// column.
func Encrypt(src KeySource, plaintext []byte) (string, error) {
	nonce, err := cipher.NewNonce()
	if err != nil {
		return "", err
	}
	key := src.Key()
	sealed := cipher.Seal(key, nonce, plaintext)
	cipher.Zero(key[:])

	packed := make([]byte, 0, cipher.NonceSize+len(sealed))
	packed = append(packed, nonce[:]...)
	packed = append(packed, sealed...)
	return cipher.EncodeBase64(packed), nil
}

// Decrypt reverses Encrypt. It returns cipher.ErrAuthFailure if encoded was
// tampered with or encrypted under a different key.
func Decrypt(src KeySource, encoded string) ([]byte, error) {
	packed, err := cipher.DecodeBase64(encoded)
	if err != nil {
		return nil, err
	}
	if len(packed) < cipher.NonceSize {
		return nil, cipher.ErrAuthFailure
	}
	var nonce [cipher.NonceSize]byte
	copy(nonce[:], packed[:cipher.NonceSize])
	ciphertext := packed[cipher.NonceSize:]

	key := src.Key()
	plain, err := cipher.Open(key, nonce, ciphertext)
	cipher.Zero(key[:])
	if err != nil {
		return nil, err
	}
	return plain, nil
}
