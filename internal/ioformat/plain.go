package ioformat

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rbrich/keybox/internal/store"
	"github.com/rbrich/keybox/internal/table"
)

// PlainSyntaxError reports a malformed line in the plain-text interchange
// format. Line is 1-indexed; Line == 0 means the header.
type PlainSyntaxError struct {
	Line   int
	Detail string
}

func (e *PlainSyntaxError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("plain import: header: %s", e.Detail)
	}
	return fmt.Sprintf("plain import: line %d: %s", e.Line, e.Detail)
}

// escapePassword C-escapes a password for the plain-text format: backslash,
// tab and newline become \\, \t and \n. Order matters — backslash must be
// escaped first or the later substitutions would double-escape it.
func escapePassword(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// unescapePassword reverses escapePassword. An unrecognized escape sequence
// is a syntax error.
func unescapePassword(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errors.New("trailing backslash")
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		default:
			return "", errors.Errorf(`unrecognized escape "\%c"`, s[i])
		}
	}
	return b.String(), nil
}

// ExportPlain writes header and records to w in the plain-text format,
// passwords C-escaped, everything else verbatim.
func ExportPlain(w io.Writer, src Exporter) error {
	header := src.Header()
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(table.FormatHeader(header)); err != nil {
		return errors.Wrap(err, "plain export: writing header")
	}
	if err := bw.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "plain export: writing header")
	}
	for _, r := range src.Records() {
		for i, col := range header {
			if i > 0 {
				if err := bw.WriteByte('\t'); err != nil {
					return errors.Wrap(err, "plain export: writing row")
				}
			}
			var value string
			if col == "password" {
				plain, err := src.Password(r)
				if err != nil {
					return errors.Wrap(err, "plain export: decrypting password")
				}
				value = escapePassword(string(plain))
			} else {
				value = r.Get(col)
			}
			if _, err := bw.WriteString(value); err != nil {
				return errors.Wrap(err, "plain export: writing row")
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "plain export: writing row")
		}
	}
	return errors.Wrap(bw.Flush(), "plain export: flushing")
}

// ImportPlain reads the plain-text format from r and appends every record
// to dst. mtime is kept if the source has an mtime column; otherwise it is
// set to the current UTC time before the record is handed to dst.
func ImportPlain(dst Importer, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return &PlainSyntaxError{Line: 0, Detail: "missing header line"}
	}
	header, err := table.ParseHeader(scanner.Text())
	if err != nil {
		return err
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
			return &PlainSyntaxError{Line: lineNo, Detail: fmt.Sprintf("expected %d fields, got %d", len(header), len(values))}
		}
		fields := make(map[string]string, len(header))
		var password []byte
		for i, col := range header {
			if col == "password" {
				plain, err := unescapePassword(values[i])
				if err != nil {
					return &PlainSyntaxError{Line: lineNo, Detail: err.Error()}
				}
				password = []byte(plain)
				continue
			}
			fields[col] = values[i]
		}
		if _, ok := fields["mtime"]; !ok {
			fields["mtime"] = time.Now().UTC().Format(store.TimeFormat)
		}
		if _, err := dst.ImportRecord(fields, password); err != nil {
			return errors.Wrapf(err, "plain import: line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "plain import: reading")
	}
	return nil
}
