package cipher

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

// Deflate compresses data with raw DEFLATE (no zlib or gzip wrapper),
// equivalent to window bits -15.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("cipher: deflate: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("cipher: deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("cipher: deflate: %w", err)
	}
	return buf.Bytes(), nil
}

// Inflate decompresses data previously produced by Deflate.
func Inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cipher: inflate: %w", err)
	}
	return out, nil
}
