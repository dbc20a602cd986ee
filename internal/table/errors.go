package table

import "fmt"

// SyntaxError reports a malformed line in the tab-delimited record table,
// per spec.md §7's TableSyntax error kind. Line is 1-indexed; Line == 0
// means the error applies to the header rather than a data row.
type SyntaxError struct {
	Line   int
	Detail string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("table: header: %s", e.Detail)
	}
	return fmt.Sprintf("table: line %d: %s", e.Line, e.Detail)
}

func newSyntaxError(line int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Line: line, Detail: fmt.Sprintf(format, args...)}
}
