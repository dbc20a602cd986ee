package cipher

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2Version is the only Argon2 version this package derives keys with.
// golang.org/x/crypto/argon2 always implements version 0x13 (Argon2 v1.3);
// a file claiming a different version cannot be opened by this
// implementation.
const Argon2Version = 0x13

// DefaultSaltSize is the size in bytes of a freshly generated KDF salt.
const DefaultSaltSize = 16

// KDFParams holds the tunable Argon2id parameters, as they are persisted in
// the envelope's KDF_PARAMS chunk: one byte each for version, memory-cost
// exponent, time cost and parallelism.
type KDFParams struct {
	Version     uint8
	MemCostLog2 uint8 // actual memory = 2^MemCostLog2 KiB
	TimeCost    uint8
	Parallelism uint8
}

// DefaultKDFParams returns the recommended desktop-class Argon2id tuning:
// 64 MiB of memory, 3 passes, single-threaded.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Version:     Argon2Version,
		MemCostLog2: 16,
		TimeCost:    3,
		Parallelism: 1,
	}
}

// Validate rejects parameter combinations that cannot be derived or that
// would not round-trip through the single-byte chunk encoding.
func (p KDFParams) Validate() error {
	if p.Version != Argon2Version {
		return fmt.Errorf("cipher: unsupported argon2 version 0x%02x", p.Version)
	}
	if p.MemCostLog2 < 10 || p.MemCostLog2 > 31 {
		return fmt.Errorf("cipher: mem_cost_log2 %d out of range [10,31]", p.MemCostLog2)
	}
	if p.TimeCost < 1 {
		return fmt.Errorf("cipher: time_cost must be >= 1")
	}
	if p.Parallelism < 1 {
		return fmt.Errorf("cipher: parallelism must be >= 1")
	}
	return nil
}

// MemoryKiB returns the actual Argon2 memory parameter in KiB.
func (p KDFParams) MemoryKiB() uint32 {
	return uint32(1) << p.MemCostLog2
}

// NewSalt returns a fresh random salt of DefaultSaltSize bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, DefaultSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKey runs Argon2id over passphrase and salt with the given
// parameters, producing a 32-byte master key.
func DeriveKey(passphrase, salt []byte, p KDFParams) ([KeySize]byte, error) {
	var key [KeySize]byte
	if err := p.Validate(); err != nil {
		return key, err
	}
	derived := argon2.IDKey(passphrase, salt, uint32(p.TimeCost), p.MemoryKiB(), p.Parallelism, KeySize)
	copy(key[:], derived)
	Zero(derived)
	return key, nil
}
