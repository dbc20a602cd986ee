// Package store holds the in-memory record set of an open keybox: an
// ordered column header plus records in stable insertion order. It enforces
// the invariants that every record carries every active column and that
// mutation always refreshes mtime.
package store

import (
	"strings"

	"github.com/rbrich/keybox/internal/search"
)

// Store is the in-memory record set of one open keybox file.
type Store struct {
	header  []string
	records []*Record
	clock   Clock
}

// New creates an empty store with DefaultHeader and the given clock. Pass
// RealClock{} outside of tests.
func New(clock Clock) *Store {
	return &Store{
		header: append([]string(nil), DefaultHeader...),
		clock:  clock,
	}
}

// Header returns the active column order. The returned slice must not be
// mutated by the caller.
func (s *Store) Header() []string {
	return s.header
}

// Records returns all records in stable insertion order. The returned slice
// must not be mutated by the caller; records themselves must be mutated
// only through Modify/Delete.
func (s *Store) Records() []*Record {
	return s.records
}

// Add appends a new record with the given field values, sets its mtime to
// now, and returns it. Fields for columns outside the active header are
// still accepted and preserved (forward compatibility), though set_header
// may later need force to drop them.
func (s *Store) Add(fields map[string]string) *Record {
	r := newRecord()
	for _, col := range s.header {
		r.set(col, "")
	}
	for col, val := range fields {
		r.set(col, val)
	}
	r.set("mtime", formatTime(s.clock.Now()))
	s.records = append(s.records, r)
	return r
}

// Modify updates the named fields on r and refreshes its mtime. Record
// identity and position are unchanged. A record not owned by this store is
// updated the same way (fields and mtime) and is not added to the store,
// since Record carries no back-reference to its store.
func (s *Store) Modify(r *Record, fields map[string]string) {
	for col, val := range fields {
		r.set(col, val)
	}
	r.set("mtime", formatTime(s.clock.Now()))
}

// AddImported appends a record the way an import does: mtime is kept if
// fields supplies one, otherwise it is stamped with now. Unlike Add, a
// caller-supplied mtime is never overwritten.
func (s *Store) AddImported(fields map[string]string) *Record {
	r := newRecord()
	for _, col := range s.header {
		r.set(col, "")
	}
	for col, val := range fields {
		r.set(col, val)
	}
	if r.Get("mtime") == "" {
		r.set("mtime", formatTime(s.clock.Now()))
	}
	s.records = append(s.records, r)
	return r
}

// LoadRecords appends records from already-decoded table rows verbatim,
// without touching mtime. Used to reconstruct a store from a file that was
// just decrypted, where each row already carries its own persisted mtime.
func (s *Store) LoadRecords(rows []map[string]string) {
	for _, fields := range rows {
		r := newRecord()
		for col, val := range fields {
			r.set(col, val)
		}
		s.records = append(s.records, r)
	}
}

// ReplaceField overwrites a single column on r without touching mtime. It
// exists for operations like a passphrase change that re-encode a field's
// stored representation without constituting a logical mutation.
func (s *Store) ReplaceField(r *Record, column, value string) {
	r.set(column, value)
}

// Delete removes r from the store. It is a no-op if r is not present.
func (s *Store) Delete(r *Record) {
	for i, candidate := range s.records {
		if candidate == r {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

// Find returns records matching query in stable insertion order. An empty
// query matches everything. A query of the form "column:value" restricts
// the match to that single column; otherwise site, user, url, tags and
// note are all searched.
func (s *Store) Find(query string) []*Record {
	column, value := search.ParseQuery(query)
	var out []*Record
	for _, r := range s.records {
		if column != "" {
			if search.Contains(r.Get(column), value) {
				out = append(out, r)
			}
			continue
		}
		for col := range searchColumns {
			if search.Contains(r.Get(col), value) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// SetHeader redefines the active column order. Existing records keep their
// values; columns newly added to the header are initialized to empty on
// every record. Dropping a column that has a non-empty value on any record
// fails with *UnknownColumnError unless force is set.
func (s *Store) SetHeader(columns []string, force bool) error {
	newSet := make(map[string]bool, len(columns))
	for _, c := range columns {
		newSet[c] = true
	}
	if !force {
		for _, old := range s.header {
			if newSet[old] {
				continue
			}
			for _, r := range s.records {
				if strings.TrimSpace(r.Get(old)) != "" {
					return &UnknownColumnError{Column: old}
				}
			}
		}
	}
	for _, r := range s.records {
		for _, c := range columns {
			if _, ok := r.values[c]; !ok {
				r.set(c, "")
			}
		}
	}
	s.header = append([]string(nil), columns...)
	return nil
}
