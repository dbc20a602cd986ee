// Package envelope implements the keybox binary file envelope: the
// MAGIC + TLV header followed by an authenticated, optionally compressed
// ciphertext region.
package envelope

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rbrich/keybox/internal/cipher"
)

// Magic is the literal 4-byte marker every keybox file starts with.
const Magic = "[K]\x00"

// CompressionKind selects how the plaintext is compressed before sealing.
type CompressionKind uint8

const (
	CompressionNone    CompressionKind = 0
	CompressionDeflate CompressionKind = 1
)

// CipherKind selects the AEAD construction used for the data region. Only
// one is currently defined; any other value is a fatal UnknownCipher error.
type CipherKind uint8

const (
	CipherXSalsa20Poly1305 CipherKind = 1
)

// KDFKind selects how the master key is obtained from the passphrase.
type KDFKind uint8

const (
	// KDFRaw treats the passphrase bytes as the key directly. The
	// passphrase must be exactly cipher.KeySize bytes; this mode exists for
	// callers that already hold a raw key material, not for human
	// passphrases.
	KDFRaw KDFKind = 0
	KDFArgon2id KDFKind = 1
)

// WarnFunc receives non-fatal diagnostics, such as an unrecognized chunk
// tag. kind is a short machine-readable label, detail is human-readable.
type WarnFunc func(kind, detail string)

// WriteParams configures how a plaintext is sealed into an envelope.
type WriteParams struct {
	KDF         KDFKind
	KDFParams   cipher.KDFParams // meaningful only when KDF == KDFArgon2id
	Compression CompressionKind
	// Salt overrides the randomly generated salt; nil means generate a
	// fresh one. Tests use this for deterministic fixtures.
	Salt []byte
}

// DefaultWriteParams returns the envelope's documented defaults:
// Argon2id KDF at desktop cost, raw-deflate compression enabled.
func DefaultWriteParams() WriteParams {
	return WriteParams{
		KDF:         KDFArgon2id,
		KDFParams:   cipher.DefaultKDFParams(),
		Compression: CompressionDeflate,
	}
}

// Write seals plaintext with a key derived from passphrase and params, and
// writes the resulting envelope to w. It returns the derived master key so
// the caller can reuse it for per-password inner encryption (C4) without
// deriving it twice.
func Write(w io.Writer, plaintext, passphrase []byte, params WriteParams) ([cipher.KeySize]byte, error) {
	var key [cipher.KeySize]byte
	var salt []byte
	var kdfParamBytes []byte

	switch params.KDF {
	case KDFArgon2id:
		var err error
		salt = params.Salt
		if salt == nil {
			salt, err = cipher.NewSalt()
			if err != nil {
				return key, fmt.Errorf("envelope: generating salt: %w", err)
			}
		}
		key, err = cipher.DeriveKey(passphrase, salt, params.KDFParams)
		if err != nil {
			return key, fmt.Errorf("envelope: deriving key: %w", err)
		}
		kdfParamBytes = []byte{
			params.KDFParams.Version,
			params.KDFParams.MemCostLog2,
			params.KDFParams.TimeCost,
			params.KDFParams.Parallelism,
		}
	case KDFRaw:
		if len(passphrase) != cipher.KeySize {
			return key, fmt.Errorf("envelope: raw KDF requires a %d-byte key, got %d", cipher.KeySize, len(passphrase))
		}
		copy(key[:], passphrase)
	default:
		return key, fmt.Errorf("envelope: unknown kdf kind %d", params.KDF)
	}

	nonce, err := cipher.NewNonce()
	if err != nil {
		return key, fmt.Errorf("envelope: generating nonce: %w", err)
	}

	plainSize := uint64(len(plaintext))
	crc := cipher.CRC32(plaintext)

	body := plaintext
	if params.Compression == CompressionDeflate {
		body, err = cipher.Deflate(plaintext)
		if err != nil {
			return key, fmt.Errorf("envelope: compressing: %w", err)
		}
	}

	ciphertext := cipher.Seal(key, nonce, body)
	dataRegion := make([]byte, 0, len(nonce)+len(ciphertext))
	dataRegion = append(dataRegion, nonce[:]...)
	dataRegion = append(dataRegion, ciphertext...)

	var meta []byte
	meta = append(meta, encodeUintChunk(TagDataSize, uint64(len(dataRegion)))...)
	meta = append(meta, encodeUintChunk(TagPlainSize, plainSize)...)
	meta = append(meta, encodeUintChunk(TagCompression, uint64(params.Compression))...)
	meta = append(meta, encodeUintChunk(TagCipher, uint64(CipherXSalsa20Poly1305))...)
	meta = append(meta, encodeUintChunk(TagKDF, uint64(params.KDF))...)
	if kdfParamBytes != nil {
		chunkBytes, err := encodeBytesChunk(TagKDFParams, kdfParamBytes)
		if err != nil {
			return key, err
		}
		meta = append(meta, chunkBytes...)
	}
	if salt != nil {
		chunkBytes, err := encodeBytesChunk(TagSalt, salt)
		if err != nil {
			return key, err
		}
		meta = append(meta, chunkBytes...)
	}
	meta = append(meta, encodeUintChunk(TagCRC32, uint64(crc))...)
	meta = append(meta, TagEnd, 0)

	if _, err := io.WriteString(w, Magic); err != nil {
		return key, fmt.Errorf("envelope: writing magic: %w", err)
	}
	metaSize := make([]byte, 4)
	binary.LittleEndian.PutUint32(metaSize, uint32(len(meta)))
	if _, err := w.Write(metaSize); err != nil {
		return key, fmt.Errorf("envelope: writing meta size: %w", err)
	}
	if _, err := w.Write(meta); err != nil {
		return key, fmt.Errorf("envelope: writing meta: %w", err)
	}
	if _, err := w.Write(dataRegion); err != nil {
		return key, fmt.Errorf("envelope: writing data: %w", err)
	}
	return key, nil
}

// parsedHeader accumulates the chunk values seen while reading a header.
type parsedHeader struct {
	dataSize    *uint64
	plainSize   *uint64
	compression *CompressionKind
	cipherKind  *CipherKind
	kdf         *KDFKind
	kdfParams   []byte
	salt        []byte
	crc32       *uint32
}

// Params is the subset of a file's header needed to write it back with the
// same KDF cost and salt, without decrypting it.
type Params struct {
	Compression CompressionKind
	KDFParams   cipher.KDFParams
	Salt        []byte
}

// Inspect reads just the header chunks of r (MAGIC + META_DATA) and returns
// the parameters needed to re-seal the file with Write, without deriving a
// key or touching the data region. Used when reopening a file to save it
// again under the same salt.
func Inspect(r io.Reader) (Params, error) {
	var p Params
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return p, newErr(KindBadMagic, 0, "could not read magic", err)
	}
	if string(magic) != Magic {
		return p, newErr(KindBadMagic, 0, fmt.Sprintf("got %x", magic), nil)
	}
	metaSizeBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, metaSizeBuf); err != nil {
		return p, newErr(KindTruncatedHeader, 4, "could not read meta size", err)
	}
	metaSize := binary.LittleEndian.Uint32(metaSizeBuf)
	meta := make([]byte, metaSize)
	if _, err := io.ReadFull(r, meta); err != nil {
		return p, newErr(KindTruncatedHeader, 8, "meta region shorter than declared META_SIZE", err)
	}

	p.Compression = CompressionDeflate
	var kdfParamBytes []byte
	err := readChunks(meta, func(c chunk) error {
		switch c.Tag {
		case TagCompression:
			v, err := decodeChunkUint(c.Data)
			if err != nil {
				return err
			}
			p.Compression = CompressionKind(v)
		case TagKDFParams:
			kdfParamBytes = append([]byte(nil), c.Data...)
		case TagSalt:
			p.Salt = append([]byte(nil), c.Data...)
		}
		return nil
	})
	if err != nil {
		return p, newErr(KindTruncatedHeader, 8, err.Error(), err)
	}
	if len(kdfParamBytes) == 4 {
		p.KDFParams = cipher.KDFParams{
			Version:     kdfParamBytes[0],
			MemCostLog2: kdfParamBytes[1],
			TimeCost:    kdfParamBytes[2],
			Parallelism: kdfParamBytes[3],
		}
	}
	return p, nil
}

// Read opens an envelope previously produced by Write. warn may be nil; if
// non-nil it is invoked once per unrecognized chunk tag encountered, and
// once more if any bytes follow the data region (those bytes are dropped).
func Read(r io.Reader, passphrase []byte, warn WarnFunc) ([]byte, [cipher.KeySize]byte, error) {
	var key [cipher.KeySize]byte

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, key, newErr(KindBadMagic, 0, "could not read magic", err)
	}
	if string(magic) != Magic {
		return nil, key, newErr(KindBadMagic, 0, fmt.Sprintf("got %x", magic), nil)
	}

	metaSizeBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, metaSizeBuf); err != nil {
		return nil, key, newErr(KindTruncatedHeader, 4, "could not read meta size", err)
	}
	metaSize := binary.LittleEndian.Uint32(metaSizeBuf)

	meta := make([]byte, metaSize)
	if _, err := io.ReadFull(r, meta); err != nil {
		return nil, key, newErr(KindTruncatedHeader, 8, "meta region shorter than declared META_SIZE", err)
	}

	var ph parsedHeader
	parseErr := readChunks(meta, func(c chunk) error {
		switch c.Tag {
		case TagEnd:
			if len(c.Data) != 0 {
				return newErr(KindTruncatedHeader, 8, "END chunk must have size 0", nil)
			}
			return nil
		case TagDataSize:
			v, err := decodeChunkUint(c.Data)
			if err != nil {
				return newErr(KindTruncatedHeader, 8, err.Error(), err)
			}
			ph.dataSize = &v
		case TagPlainSize:
			v, err := decodeChunkUint(c.Data)
			if err != nil {
				return newErr(KindTruncatedHeader, 8, err.Error(), err)
			}
			ph.plainSize = &v
		case TagCompression:
			v, err := decodeChunkUint(c.Data)
			if err != nil {
				return newErr(KindTruncatedHeader, 8, err.Error(), err)
			}
			ck := CompressionKind(v)
			ph.compression = &ck
		case TagCipher:
			v, err := decodeChunkUint(c.Data)
			if err != nil {
				return newErr(KindTruncatedHeader, 8, err.Error(), err)
			}
			ck := CipherKind(v)
			ph.cipherKind = &ck
		case TagKDF:
			v, err := decodeChunkUint(c.Data)
			if err != nil {
				return newErr(KindTruncatedHeader, 8, err.Error(), err)
			}
			kk := KDFKind(v)
			ph.kdf = &kk
		case TagKDFParams:
			ph.kdfParams = append([]byte(nil), c.Data...)
		case TagSalt:
			ph.salt = append([]byte(nil), c.Data...)
		case TagCRC32:
			v, err := decodeChunkUint(c.Data)
			if err != nil {
				return newErr(KindTruncatedHeader, 8, err.Error(), err)
			}
			crc := uint32(v)
			ph.crc32 = &crc
		default:
			if warn != nil {
				warn("unknown_tag", fmt.Sprintf("tag %d size %d ignored", c.Tag, len(c.Data)))
			}
		}
		return nil
	})
	if parseErr != nil {
		if ee, ok := parseErr.(*EnvelopeError); ok {
			return nil, key, ee
		}
		return nil, key, newErr(KindTruncatedHeader, 8, parseErr.Error(), parseErr)
	}

	if ph.dataSize == nil || ph.plainSize == nil || ph.crc32 == nil {
		return nil, key, newErr(KindTruncatedHeader, 8, "missing required chunk (DATA_SIZE, PLAIN_SIZE or CRC32)", nil)
	}

	compression := CompressionDeflate
	if ph.compression != nil {
		compression = *ph.compression
	}
	if compression != CompressionNone && compression != CompressionDeflate {
		return nil, key, newErr(KindUnknownCompression, 8, fmt.Sprintf("%d", compression), nil)
	}

	cipherKind := CipherXSalsa20Poly1305
	if ph.cipherKind != nil {
		cipherKind = *ph.cipherKind
	}
	if cipherKind != CipherXSalsa20Poly1305 {
		return nil, key, newErr(KindUnknownCipher, 8, fmt.Sprintf("%d", cipherKind), nil)
	}

	kdfKind := KDFArgon2id
	if ph.kdf != nil {
		kdfKind = *ph.kdf
	}

	dataRegion := make([]byte, *ph.dataSize)
	if _, err := io.ReadFull(r, dataRegion); err != nil {
		return nil, key, newErr(KindTruncatedData, int64(8+metaSize), "data region shorter than declared DATA_SIZE", err)
	}
	if extra, _ := io.Copy(io.Discard, r); extra > 0 && warn != nil {
		warn("trailing_bytes", fmt.Sprintf("%d bytes after data region ignored", extra))
	}
	if len(dataRegion) < cipher.NonceSize {
		return nil, key, newErr(KindTruncatedData, int64(8+metaSize), "data region too short for nonce", nil)
	}
	var nonce [cipher.NonceSize]byte
	copy(nonce[:], dataRegion[:cipher.NonceSize])
	ciphertext := dataRegion[cipher.NonceSize:]

	switch kdfKind {
	case KDFArgon2id:
		if len(ph.kdfParams) != 4 {
			return nil, key, newErr(KindUnknownKDF, 8, "missing or malformed KDF_PARAMS", nil)
		}
		params := cipher.KDFParams{
			Version:     ph.kdfParams[0],
			MemCostLog2: ph.kdfParams[1],
			TimeCost:    ph.kdfParams[2],
			Parallelism: ph.kdfParams[3],
		}
		var err error
		key, err = cipher.DeriveKey(passphrase, ph.salt, params)
		if err != nil {
			return nil, key, newErr(KindUnknownKDF, 8, err.Error(), err)
		}
	case KDFRaw:
		if len(passphrase) != cipher.KeySize {
			return nil, key, newErr(KindUnknownKDF, 8, "raw KDF requires a full-size key as passphrase", nil)
		}
		copy(key[:], passphrase)
	default:
		return nil, key, newErr(KindUnknownKDF, 8, fmt.Sprintf("%d", kdfKind), nil)
	}

	body, err := cipher.Open(key, nonce, ciphertext)
	if err != nil {
		return nil, key, newErr(KindAuthFailure, int64(8+metaSize), "MAC verification failed", err)
	}

	plaintext := body
	if compression == CompressionDeflate {
		plaintext, err = cipher.Inflate(body)
		if err != nil {
			return nil, key, newErr(KindIntegrityFailure, int64(8+metaSize), "could not inflate plaintext", err)
		}
	}

	if uint64(len(plaintext)) != *ph.plainSize {
		return nil, key, newErr(KindIntegrityFailure, int64(8+metaSize), "plaintext size mismatch", nil)
	}
	if cipher.CRC32(plaintext) != *ph.crc32 {
		return nil, key, newErr(KindIntegrityFailure, int64(8+metaSize), "CRC32 mismatch", nil)
	}

	return plaintext, key, nil
}
