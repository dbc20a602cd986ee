package store

import "time"

// TimeFormat is the on-disk mtime layout: ISO-8601 UTC to second precision.
const TimeFormat = "2006-01-02 15:04:05"

// DefaultHeader is the column order a freshly created store starts with.
var DefaultHeader = []string{"site", "user", "url", "tags", "mtime", "note", "password"}

// searchColumns are the columns substring-matched by an unrestricted query.
var searchColumns = map[string]bool{"site": true, "user": true, "url": true, "tags": true, "note": true}

// Record is an ordered mapping from column name to value. Its identity is
// the pointer, not its contents: two records with identical values are
// still distinct records, and modifying one through Store never allocates
// a new *Record, so callers that cached a pointer keep seeing live state.
//
// Record carries every column ever seen for it, including columns no
// longer part of the store's active header (spec requires unknown/removed
// columns to be preserved verbatim rather than dropped).
type Record struct {
	values map[string]string
}

func newRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// Get returns the value of column, or "" if unset.
func (r *Record) Get(column string) string {
	return r.values[column]
}

// set is unexported: all mutation goes through Store so mtime stays
// consistent.
func (r *Record) set(column, value string) {
	r.values[column] = value
}

func (r *Record) clone() *Record {
	c := newRecord()
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
