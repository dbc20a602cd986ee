// Package search implements the substring matching used by the record
// store's find operation.
package search

import "strings"

// Contains reports whether needle appears anywhere in haystack, ignoring
// case.
func Contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ParseQuery splits a query of the form "column:value" into its column
// restriction and value. A query with no colon, or an empty column before
// the colon, searches all default columns.
func ParseQuery(query string) (column, value string) {
	if i := strings.IndexByte(query, ':'); i > 0 {
		return query[:i], query[i+1:]
	}
	return "", query
}
