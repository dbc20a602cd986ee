// Package ioformat converts between an open keybox's records and the two
// human-readable interchange formats: the C-escaped plain-text table and a
// JSON array of objects.
package ioformat

import (
	"github.com/rbrich/keybox/internal/store"
)

// Exporter is the read side a keybox exposes to ioformat: its column order,
// its records, and on-demand password decryption.
type Exporter interface {
	Header() []string
	Records() []*store.Record
	Password(r *store.Record) ([]byte, error)
}

// Importer is the write side a keybox exposes to ioformat. ImportRecord
// keeps a caller-supplied mtime rather than always stamping now, matching
// the import contract in spec.md §4.7 ("mtime is kept if present, else set
// to now") as distinct from the interactive Add operation in §4.5.
type Importer interface {
	ImportRecord(fields map[string]string, password []byte) (*store.Record, error)
}
