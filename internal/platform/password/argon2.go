// Package password provides argon2id hashing and verification of user
// passwords. Hashes are encoded as PHC strings so parameters travel with
// the hash and can be tightened later without invalidating stored rows.
package password

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// ErrMalformedHash indicates a stored hash that cannot be parsed. It is a
// data-integrity fault, not a wrong-password outcome.
var ErrMalformedHash = errors.New("password: malformed hash")

const algorithmID = "argon2id"

// Params tune the argon2id computation.
type Params struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams match the argon2id RFC 9106 low-memory recommendation.
func DefaultParams() Params {
	return Params{
		MemoryKB:    19 * 1024,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher computes and verifies argon2id hashes. Key derivation is CPU and
// memory heavy, so concurrent computations are bounded by a semaphore sized
// to the number of CPUs rather than running unbounded on request goroutines.
type Hasher struct {
	params Params
	slots  *semaphore.Weighted
}

// NewHasher constructs a Hasher with the given parameters.
func NewHasher(params Params) (*Hasher, error) {
	if params.MemoryKB < 8*1024 || params.Time < 1 || params.Parallelism < 1 {
		return nil, errors.New("password: parameters below minimum cost")
	}
	if params.SaltLength < 16 || params.KeyLength < 16 {
		return nil, errors.New("password: salt and key must be at least 16 bytes")
	}
	return &Hasher{
		params: params,
		slots:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}, nil
}

// Hash derives a fresh salted hash for the plaintext. Two calls with the
// same plaintext produce different encodings.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.MemoryKB, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.MemoryKB,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash with the stored parameters and compares in
// constant time. A wrong password yields (false, nil); only a structurally
// corrupt stored hash yields ErrMalformedHash.
func (h *Hasher) Verify(ctx context.Context, plaintext, encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.slots.Release(1)

	computed := argon2.IDKey([]byte(plaintext), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, parsed.keyLength)
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1, nil
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
	keyLength   uint32
}

func parsePHC(encoded string) (*parsedPHC, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, ErrMalformedHash
	}
	if parts[1] != algorithmID {
		return nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return nil, ErrMalformedHash
	}

	var memory, timeCost uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &parallelism); err != nil {
		return nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, ErrMalformedHash
	}
	if len(salt) == 0 || len(key) == 0 {
		return nil, ErrMalformedHash
	}

	return &parsedPHC{
		memory:      memory,
		time:        timeCost,
		parallelism: parallelism,
		salt:        salt,
		key:         key,
		keyLength:   uint32(len(key)),
	}, nil
}
