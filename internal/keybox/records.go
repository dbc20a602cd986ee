package keybox

import (
	"fmt"

	"github.com/rbrich/keybox/internal/pwcrypt"
	"github.com/rbrich/keybox/internal/store"
)

// AddRecord appends a new record. fields supplies every column except
// password, which is sealed under the keybox's key before being stored.
// An empty password is stored as an empty string, never encrypted.
func (k *Keybox) AddRecord(fields map[string]string, password []byte) (*store.Record, error) {
	encoded, err := k.sealPassword(password)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(fields)+1)
	for col, val := range fields {
		merged[col] = val
	}
	merged["password"] = encoded
	return k.Store.Add(merged), nil
}

// ImportRecord appends a record the way an import does: password is sealed
// like AddRecord, but mtime is kept if fields supplies one and stamped with
// now only when absent, per the import contract in spec.md §4.7.
func (k *Keybox) ImportRecord(fields map[string]string, password []byte) (*store.Record, error) {
	encoded, err := k.sealPassword(password)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(fields)+1)
	for col, val := range fields {
		merged[col] = val
	}
	merged["password"] = encoded
	return k.Store.AddImported(merged), nil
}

// SetPassword re-encrypts and replaces r's password, refreshing mtime.
func (k *Keybox) SetPassword(r *store.Record, password []byte) error {
	encoded, err := k.sealPassword(password)
	if err != nil {
		return err
	}
	k.Store.Modify(r, map[string]string{"password": encoded})
	return nil
}

// Password decrypts r's stored password on demand. The plaintext is never
// cached on the record.
func (k *Keybox) Password(r *store.Record) ([]byte, error) {
	encoded := r.Get("password")
	if encoded == "" {
		return nil, nil
	}
	plain, err := pwcrypt.Decrypt(k, encoded)
	if err != nil {
		return nil, fmt.Errorf("keybox: decrypting password: %w", err)
	}
	return plain, nil
}

func (k *Keybox) sealPassword(password []byte) (string, error) {
	if len(password) == 0 {
		return "", nil
	}
	encoded, err := pwcrypt.Encrypt(k, password)
	if err != nil {
		return "", fmt.Errorf("keybox: encrypting password: %w", err)
	}
	return encoded, nil
}
