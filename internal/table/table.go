// Package table encodes and decodes the plaintext tab-delimited record
// table that lives inside a keybox envelope: one header line naming the
// active columns in their persisted order, followed by zero or more record
// lines, each tab-separated and newline-terminated.
//
// Values can never legally contain a tab or a newline, so the format is
// unambiguous to parse: split on tabs, split lines on '\n'.
package table

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

// Row is one record's values keyed by column name. Columns not present in
// a given row are treated as empty by callers; Row itself carries only the
// values actually set.
type Row map[string]string

// ParseHeader splits a tab-separated header line into its column names, in
// persisted order. It rejects an empty header and duplicate column names.
func ParseHeader(line string) ([]string, error) {
	if line == "" {
		return nil, newSyntaxError(0, "empty header line")
	}
	cols := strings.Split(line, "\t")
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if c == "" {
			return nil, newSyntaxError(0, "empty column name")
		}
		if seen[c] {
			return nil, newSyntaxError(0, "duplicate column %q", c)
		}
		seen[c] = true
	}
	return cols, nil
}

// FormatHeader renders columns as a tab-separated header line (without a
// trailing newline).
func FormatHeader(columns []string) string {
	return strings.Join(columns, "\t")
}

// ValidateField rejects a field value that could not survive a tab/newline
// delimited round trip.
func ValidateField(value string) error {
	if strings.ContainsRune(value, '\t') {
		return errors.New("field contains a tab character")
	}
	if strings.ContainsAny(value, "\n\r") {
		return errors.New("field contains a newline")
	}
	return nil
}

// Parse decodes a full table: a header line followed by zero or more record
// lines. Column order is returned separately from the rows since it is
// persisted state, not just row metadata (design note in spec.md §9).
func Parse(data []byte) (header []string, rows []Row, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, nil, errors.Wrap(err, "table: reading header")
		}
		return nil, nil, newSyntaxError(0, "missing header line")
	}
	header, err = ParseHeader(scanner.Text())
	if err != nil {
		return nil, nil, err
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		values := strings.Split(line, "\t")
		if len(values) != len(header) {
			return nil, nil, newSyntaxError(lineNo, "expected %d fields, got %d", len(header), len(values))
		}
		row := make(Row, len(header))
		for i, col := range header {
			row[col] = values[i]
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "table: reading rows")
	}
	return header, rows, nil
}

// Format renders header and rows back into the tab-delimited table format.
// Every row must already carry a value for every header column (missing
// columns are a caller bug, not a data error); use an empty string for
// absent values. Format fails if the header or any row contains a tab,
// newline or carriage return.
func Format(header []string, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range header {
		if err := ValidateField(c); err != nil {
			return nil, errors.Wrap(err, "table: header column")
		}
	}
	buf.WriteString(FormatHeader(header))
	buf.WriteByte('\n')

	for i, row := range rows {
		for j, col := range header {
			if j > 0 {
				buf.WriteByte('\t')
			}
			v := row[col]
			if err := ValidateField(v); err != nil {
				return nil, errors.Wrapf(err, "table: row %d column %q", i, col)
			}
			buf.WriteString(v)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
