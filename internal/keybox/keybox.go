// Package keybox orchestrates the envelope, table and store layers into
// the create/open/save/change-passphrase lifecycle of one secret file.
package keybox

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rbrich/keybox/internal/cipher"
	"github.com/rbrich/keybox/internal/envelope"
	"github.com/rbrich/keybox/internal/platform"
	"github.com/rbrich/keybox/internal/pwcrypt"
	"github.com/rbrich/keybox/internal/store"
	"github.com/rbrich/keybox/internal/table"
)

// PassphraseProvider supplies passphrases interactively. Prompt asks for a
// passphrase to open an existing file. Confirm asks for it a second time
// so a caller creating a new file can verify the two entries match before
// calling Create.
type PassphraseProvider interface {
	Prompt() ([]byte, error)
	Confirm() ([]byte, error)
}

// Keybox is one open secret file: its record store plus the envelope
// parameters needed to save it back.
type Keybox struct {
	path        string
	passphrase  []byte
	closed      bool
	salt        []byte
	kdfParams   cipher.KDFParams
	compression envelope.CompressionKind
	key         [cipher.KeySize]byte
	logger      *log.Logger

	Store *store.Store
}

// Key satisfies pwcrypt.KeySource: password fields are encrypted with the
// same key that protects the envelope.
func (k *Keybox) Key() [cipher.KeySize]byte { return k.key }

// SetLogger directs non-fatal diagnostics logged after the call to logger
// instead of the default, which discards them. Open logs the envelope
// warnings it sees (such as unknown chunk tags) to the default logger before
// it returns, so those warnings are discarded.
func (k *Keybox) SetLogger(logger *log.Logger) { k.logger = logger }

func init() {
	_ = platform.DisableCoreDumps()
}

// Create initializes a new, empty keybox at path and writes its initial
// envelope immediately. kdfParams may be nil to use cipher.DefaultKDFParams.
func Create(path string, passphrase []byte, kdfParams *cipher.KDFParams) (*Keybox, error) {
	params := cipher.DefaultKDFParams()
	if kdfParams != nil {
		params = *kdfParams
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("keybox: %w", err)
	}
	salt, err := cipher.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("keybox: generating salt: %w", err)
	}

	k := &Keybox{
		path:        path,
		passphrase:  clonePassphrase(passphrase),
		salt:        salt,
		kdfParams:   params,
		compression: envelope.CompressionDeflate,
		logger:      log.New(io.Discard, "[keybox] ", log.LstdFlags),
		Store:       store.New(store.RealClock{}),
	}
	_ = platform.LockMemory(k.passphrase)

	if err := k.Save(); err != nil {
		k.Close()
		return nil, err
	}
	return k, nil
}

// Open decrypts an existing keybox file at path. provider.Prompt is called
// once; on MAC failure (wrong passphrase) it returns *AuthError and no
// Keybox.
func Open(path string, provider PassphraseProvider) (*Keybox, error) {
	passphrase, err := provider.Prompt()
	if err != nil {
		return nil, fmt.Errorf("keybox: reading passphrase: %w", err)
	}
	return openWithPassphrase(path, passphrase)
}

func openWithPassphrase(path string, passphrase []byte) (*Keybox, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keybox: reading %s: %w", path, err)
	}

	var warnings []string
	plaintext, key, err := envelope.Read(bytes.NewReader(raw), passphrase, func(kind, detail string) {
		warnings = append(warnings, kind+": "+detail)
	})
	if err != nil {
		if ee, ok := err.(*envelope.EnvelopeError); ok && ee.Kind == envelope.KindAuthFailure {
			return nil, &AuthError{Path: path}
		}
		return nil, fmt.Errorf("keybox: opening %s: %w", path, err)
	}

	header, rows, err := table.Parse(plaintext)
	if err != nil {
		return nil, fmt.Errorf("keybox: parsing table: %w", err)
	}

	st := store.New(store.RealClock{})
	if err := st.SetHeader(header, true); err != nil {
		return nil, fmt.Errorf("keybox: setting header: %w", err)
	}
	fields := make([]map[string]string, len(rows))
	for i, r := range rows {
		fields[i] = map[string]string(r)
	}
	st.LoadRecords(fields)

	params, err := envelope.Inspect(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("keybox: re-reading header: %w", err)
	}

	k := &Keybox{
		path:        path,
		passphrase:  clonePassphrase(passphrase),
		salt:        params.Salt,
		kdfParams:   params.KDFParams,
		compression: params.Compression,
		key:         key,
		logger:      log.New(io.Discard, "[keybox] ", log.LstdFlags),
		Store:       st,
	}
	_ = platform.LockMemory(k.passphrase)
	for _, w := range warnings {
		k.logger.Print(w)
	}
	return k, nil
}

// Save re-encodes the store and atomically replaces the file at path. The
// same salt (hence the same derived key) is reused so previously encrypted
// password fields remain decryptable; only the nonce is fresh, as it must
// be on every write.
func (k *Keybox) Save() error {
	header := k.Store.Header()
	rows := make([]table.Row, 0, len(k.Store.Records()))
	for _, r := range k.Store.Records() {
		row := make(table.Row, len(header))
		for _, col := range header {
			row[col] = r.Get(col)
		}
		rows = append(rows, row)
	}
	plaintext, err := table.Format(header, rows)
	if err != nil {
		return fmt.Errorf("keybox: encoding table: %w", err)
	}

	var buf bytes.Buffer
	key, err := envelope.Write(&buf, plaintext, k.passphrase, envelope.WriteParams{
		KDF:         envelope.KDFArgon2id,
		KDFParams:   k.kdfParams,
		Compression: k.compression,
		Salt:        k.salt,
	})
	if err != nil {
		return fmt.Errorf("keybox: sealing envelope: %w", err)
	}
	k.key = key

	return atomicWrite(k.path, buf.Bytes())
}

// ChangePassphrase re-derives the key under a new passphrase and salt,
// re-encrypts every stored password under the new key, and saves. If
// deriving the key or re-encrypting a password fails, the in-memory store
// and passphrase are left unchanged. If the final save fails, the store,
// passphrase, salt and key have already switched to the new passphrase while
// the file on disk still holds the old one.
func (k *Keybox) ChangePassphrase(newPassphrase []byte) error {
	newSalt, err := cipher.NewSalt()
	if err != nil {
		return fmt.Errorf("keybox: generating salt: %w", err)
	}
	newKey, err := cipher.DeriveKey(newPassphrase, newSalt, k.kdfParams)
	if err != nil {
		return fmt.Errorf("keybox: deriving new key: %w", err)
	}

	type reencrypted struct {
		record *store.Record
		value  string
	}
	pending := make([]reencrypted, 0, len(k.Store.Records()))
	for _, r := range k.Store.Records() {
		if r.Get("password") == "" {
			pending = append(pending, reencrypted{record: r, value: ""})
			continue
		}
		plain, err := pwcrypt.Decrypt(k, r.Get("password"))
		if err != nil {
			cipher.Zero(newKey[:])
			return fmt.Errorf("keybox: decrypting password during rotation: %w", err)
		}
		encoded, err := pwcrypt.Encrypt(fixedKeySource(newKey), plain)
		cipher.Zero(plain)
		if err != nil {
			cipher.Zero(newKey[:])
			return fmt.Errorf("keybox: re-encrypting password: %w", err)
		}
		pending = append(pending, reencrypted{record: r, value: encoded})
	}

	for _, p := range pending {
		k.Store.ReplaceField(p.record, "password", p.value)
	}

	cipher.Zero(k.passphrase)
	platform.UnlockMemory(k.passphrase)
	k.passphrase = clonePassphrase(newPassphrase)
	_ = platform.LockMemory(k.passphrase)
	k.salt = newSalt
	k.key = newKey

	return k.Save()
}

// Close wipes the in-memory passphrase and key. The Keybox must not be used
// afterward.
func (k *Keybox) Close() {
	if k.closed {
		return
	}
	cipher.Zero(k.passphrase)
	platform.UnlockMemory(k.passphrase)
	cipher.Zero(k.key[:])
	k.closed = true
}

func clonePassphrase(p []byte) []byte {
	c := make([]byte, len(p))
	copy(c, p)
	return c
}

type fixedKeySource [cipher.KeySize]byte

func (k fixedKeySource) Key() [cipher.KeySize]byte { return k }
