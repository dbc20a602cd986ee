package pwcrypt

import (
	"bytes"
	"testing"

	"github.com/rbrich/keybox/internal/cipher"
)

type fixedKey [cipher.KeySize]byte

func (k fixedKey) Key() [cipher.KeySize]byte { return k }

func testKey(b byte) fixedKey {
	var k fixedKey
	for i := range k {
		k[i] = b
	}
	return k
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	src := testKey(0x42)
	plaintext := []byte("hunter2")
	encoded, err := Encrypt(src, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := Decrypt(src, encoded)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %q want %q", got, plaintext)
	}
}

func TestEncryptNeverEqualsPlaintext(t *testing.T) {
	src := testKey(0x01)
	plaintext := []byte("a very guessable password")
	encoded, err := Encrypt(src, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if encoded == string(plaintext) {
		t.Fatal("encoded password must not equal plaintext")
	}
}

func TestEncryptIsNondeterministic(t *testing.T) {
	src := testKey(0x07)
	plaintext := []byte("same password")
	a, err := Encrypt(src, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt(src, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct ciphertexts across encryptions (fresh nonce)")
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	encoded, err := Encrypt(testKey(0x10), []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(testKey(0x11), encoded); err == nil {
		t.Fatal("expected decrypt failure with wrong key")
	}
}

func TestDecryptTamperedFails(t *testing.T) {
	src := testKey(0x20)
	encoded, err := Encrypt(src, []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	raw, err := cipher.DecodeBase64(encoded)
	if err != nil {
		t.Fatalf("DecodeBase64: %v", err)
	}
	raw[len(raw)-1] ^= 0xFF
	tampered := cipher.EncodeBase64(raw)
	if _, err := Decrypt(src, tampered); err == nil {
		t.Fatal("expected decrypt failure after tampering")
	}
}

func TestDecryptTruncatedFails(t *testing.T) {
	if _, err := Decrypt(testKey(0x30), cipher.EncodeBase64([]byte("short"))); err == nil {
		t.Fatal("expected decrypt failure for truncated payload")
	}
}
