package store

import "fmt"

// UnknownColumnError is returned by SetHeader when dropping a column would
// discard non-empty data and force was not set.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("store: column %q has data and would be dropped (use force to override)", e.Column)
}
