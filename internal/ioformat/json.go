package ioformat

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/rbrich/keybox/internal/store"
)

// ExportJSON writes every record in src as a JSON array of objects, keys
// emitted in active-header order, password values decrypted to plaintext.
func ExportJSON(w io.Writer, src Exporter) error {
	header := src.Header()
	records := src.Records()

	if _, err := w.Write([]byte("[")); err != nil {
		return errors.Wrap(err, "json export: writing array")
	}
	for i, r := range records {
		obj := make(map[string]string, len(header))
		for _, col := range header {
			if col == "password" {
				plain, err := src.Password(r)
				if err != nil {
					return errors.Wrap(err, "json export: decrypting password")
				}
				obj[col] = string(plain)
				continue
			}
			obj[col] = r.Get(col)
		}
		if i > 0 {
			if _, err := w.Write([]byte(",")); err != nil {
				return errors.Wrap(err, "json export: writing separator")
			}
		}
		if err := encodeOrdered(w, header, obj); err != nil {
			return errors.Wrap(err, "json export: encoding record")
		}
	}
	if _, err := w.Write([]byte("]\n")); err != nil {
		return errors.Wrap(err, "json export: writing array")
	}
	return nil
}

// encodeOrdered writes obj as a JSON object with keys in header order, so a
// human reading the exported file sees columns in the keybox's own order
// even though encoding/json has no native ordered-map type.
func encodeOrdered(w io.Writer, header []string, obj map[string]string) error {
	if _, err := w.Write([]byte("{")); err != nil {
		return err
	}
	for i, col := range header {
		if i > 0 {
			if _, err := w.Write([]byte(",")); err != nil {
				return err
			}
		}
		key, err := json.Marshal(col)
		if err != nil {
			return err
		}
		val, err := json.Marshal(obj[col])
		if err != nil {
			return err
		}
		if _, err := w.Write(key); err != nil {
			return err
		}
		if _, err := w.Write([]byte(":")); err != nil {
			return err
		}
		if _, err := w.Write(val); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte("}"))
	return err
}

// JSONSyntaxError reports a malformed JSON import: either the top-level
// value isn't an array, or an element isn't an object of strings.
type JSONSyntaxError struct {
	Index  int // element index, -1 for a top-level error
	Detail string
}

func (e *JSONSyntaxError) Error() string {
	if e.Index < 0 {
		return "json import: " + e.Detail
	}
	return fmt.Sprintf("json import: element %d: %s", e.Index, e.Detail)
}

// ImportJSON reads a JSON array of string-valued objects from r and appends
// each as a record. mtime is kept if the object supplies one, otherwise it
// is set to the current UTC time before the record is handed to dst. Key
// order within an object is
// irrelevant on read, per spec.md §4.7.
func ImportJSON(dst Importer, r io.Reader) error {
	var raw []map[string]string
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return &JSONSyntaxError{Index: -1, Detail: err.Error()}
	}
	for i, obj := range raw {
		fields := make(map[string]string, len(obj))
		var password []byte
		for k, v := range obj {
			if k == "password" {
				password = []byte(v)
				continue
			}
			fields[k] = v
		}
		if _, ok := fields["mtime"]; !ok {
			fields["mtime"] = time.Now().UTC().Format(store.TimeFormat)
		}
		if _, err := dst.ImportRecord(fields, password); err != nil {
			return errors.Wrapf(err, "json import: element %d", i)
		}
	}
	return nil
}
