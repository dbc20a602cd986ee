package ioformat_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rbrich/keybox/internal/cipher"
	"github.com/rbrich/keybox/internal/ioformat"
	"github.com/rbrich/keybox/internal/keybox"
)

type fixedProvider struct{ passphrase []byte }

func (p fixedProvider) Prompt() ([]byte, error)  { return p.passphrase, nil }
func (p fixedProvider) Confirm() ([]byte, error) { return p.passphrase, nil }

func fastKDFParams() *cipher.KDFParams {
	return &cipher.KDFParams{Version: cipher.Argon2Version, MemCostLog2: 10, TimeCost: 1, Parallelism: 1}
}

func newTestKeybox(t *testing.T) *keybox.Keybox {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.kbx")
	k, err := keybox.Create(path, []byte("secret"), fastKDFParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(k.Close)
	return k
}

// TestImportPlainEscapedPassword is scenario S6 from spec.md §8: the
// password field "pa\nss" (backslash-n, literal s, s) decodes to the two
// characters p, a, a newline, then s, s.
func TestImportPlainEscapedPassword(t *testing.T) {
	k := newTestKeybox(t)
	src := "site\tuser\tpassword\nExample\tjohny\tpa\\nss\n"
	if err := ioformat.ImportPlain(k, bytes.NewReader([]byte(src))); err != nil {
		t.Fatalf("ImportPlain: %v", err)
	}
	recs := k.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	pw, err := k.Password(recs[0])
	if err != nil {
		t.Fatalf("Password: %v", err)
	}
	if string(pw) != "pa\nss" {
		t.Fatalf("got password %q, want %q", pw, "pa\nss")
	}
}

func TestExportImportPlainRoundTrip(t *testing.T) {
	k := newTestKeybox(t)
	if _, err := k.AddRecord(map[string]string{"site": "example.com", "user": "johny", "note": "work"}, []byte(`tab\and\nbackslash\`)); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	var buf bytes.Buffer
	if err := ioformat.ExportPlain(&buf, k); err != nil {
		t.Fatalf("ExportPlain: %v", err)
	}

	k2 := newTestKeybox(t)
	if err := ioformat.ImportPlain(k2, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("ImportPlain: %v", err)
	}
	recs := k2.Records()
	if len(recs) != 1 || recs[0].Get("site") != "example.com" || recs[0].Get("note") != "work" {
		t.Fatalf("unexpected records after round trip: %v", recs)
	}
	pw, err := k2.Password(recs[0])
	if err != nil {
		t.Fatalf("Password: %v", err)
	}
	if string(pw) != `tab\and\nbackslash\` {
		t.Fatalf("got password %q", pw)
	}
	// mtime from the original export is preserved by import, not refreshed.
	if recs[0].Get("mtime") != k.Records()[0].Get("mtime") {
		t.Fatalf("expected mtime to be kept from the exported line")
	}
}

func TestPlainImportRejectsUnrecognizedEscape(t *testing.T) {
	k := newTestKeybox(t)
	src := "site\tuser\tpassword\nExample\tjohny\t\\q\n"
	err := ioformat.ImportPlain(k, bytes.NewReader([]byte(src)))
	if err == nil {
		t.Fatal("expected error for unrecognized escape sequence")
	}
}

func TestExportImportJSONRoundTrip(t *testing.T) {
	k := newTestKeybox(t)
	if _, err := k.AddRecord(map[string]string{"site": "example.com", "user": "johny"}, []byte("pa$$w0rD")); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	var buf bytes.Buffer
	if err := ioformat.ExportJSON(&buf, k); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(buf.Bytes()), []byte("[")) {
		t.Fatalf("expected a top-level JSON array, got %s", buf.Bytes())
	}

	k2 := newTestKeybox(t)
	if err := ioformat.ImportJSON(k2, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	recs := k2.Records()
	if len(recs) != 1 || recs[0].Get("site") != "example.com" {
		t.Fatalf("unexpected records after JSON round trip: %v", recs)
	}
	pw, err := k2.Password(recs[0])
	if err != nil {
		t.Fatalf("Password: %v", err)
	}
	if string(pw) != "pa$$w0rD" {
		t.Fatalf("got password %q", pw)
	}
}

func TestImportJSONRejectsNonArray(t *testing.T) {
	k := newTestKeybox(t)
	err := ioformat.ImportJSON(k, bytes.NewReader([]byte(`{"site":"a"}`)))
	if err == nil {
		t.Fatal("expected error importing a non-array top-level JSON value")
	}
}
