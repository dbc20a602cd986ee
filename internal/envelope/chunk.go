package envelope

import (
	"encoding/binary"
	"fmt"
)

// Chunk tags, as laid out in the binary envelope header.
const (
	TagEnd         byte = 0
	TagDataSize    byte = 1
	TagPlainSize   byte = 2
	TagCompression byte = 3
	TagCipher      byte = 4
	TagKDF         byte = 5
	TagKDFParams   byte = 6
	TagSalt        byte = 7
	TagCRC32       byte = 8
)

// chunk is one decoded TLV element: a 1-byte tag, a 1-byte size, and that
// many value bytes.
type chunk struct {
	Tag  byte
	Data []byte
}

// encodeUintChunk picks the smallest of {1,2,4,8} bytes that can hold value
// and returns the encoded chunk (tag, size, little-endian value).
func encodeUintChunk(tag byte, value uint64) []byte {
	var size int
	switch {
	case value <= 0xFF:
		size = 1
	case value <= 0xFFFF:
		size = 2
	case value <= 0xFFFFFFFF:
		size = 4
	default:
		size = 8
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	out := make([]byte, 0, 2+size)
	out = append(out, tag, byte(size))
	out = append(out, buf[:size]...)
	return out
}

// encodeBytesChunk encodes an arbitrary byte-string tag. data must be at
// most 255 bytes.
func encodeBytesChunk(tag byte, data []byte) ([]byte, error) {
	if len(data) > 255 {
		return nil, fmt.Errorf("envelope: chunk tag %d value too large (%d bytes)", tag, len(data))
	}
	out := make([]byte, 0, 2+len(data))
	out = append(out, tag, byte(len(data)))
	out = append(out, data...)
	return out, nil
}

// decodeChunkUint interprets a chunk's value bytes as a little-endian
// unsigned integer. size must be one of {1,2,4,8}.
func decodeChunkUint(data []byte) (uint64, error) {
	switch len(data) {
	case 1:
		return uint64(data[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(data)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(data)), nil
	case 8:
		return binary.LittleEndian.Uint64(data), nil
	default:
		return 0, fmt.Errorf("envelope: invalid integer chunk size %d", len(data))
	}
}

// readChunks parses buf as a sequence of TLV chunks, invoking visit for each
// one in order (including TagEnd, as the last call). It stops as soon as
// TagEnd is seen or buf is exhausted. Any bytes in buf after TagEnd are
// ignored, matching spec.md's documented behavior for trailing header bytes.
func readChunks(buf []byte, visit func(c chunk) error) error {
	i := 0
	for i < len(buf) {
		if i+2 > len(buf) {
			return fmt.Errorf("envelope: truncated chunk at offset %d", i)
		}
		tag := buf[i]
		size := int(buf[i+1])
		i += 2
		if i+size > len(buf) {
			return fmt.Errorf("envelope: truncated chunk value at offset %d", i)
		}
		data := buf[i : i+size]
		i += size
		if err := visit(chunk{Tag: tag, Data: data}); err != nil {
			return err
		}
		if tag == TagEnd {
			return nil
		}
	}
	return fmt.Errorf("envelope: header missing END chunk")
}
