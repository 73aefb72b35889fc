// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package account

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// DefaultSeed is the server-side seed mixed into every digest by the
// seeded hasher. It matches the value used by the deployed platform so
// existing stored digests keep verifying.
const DefaultSeed = "1wqqW1781ERq09"

// ErrEmptySecret is returned when attempting to hash an empty secret.
var ErrEmptySecret = oops.Code("ACCOUNT_EMPTY_SECRET").Errorf("secret cannot be empty")

// Hasher turns a plaintext secret into a storable digest.
type Hasher interface {
	// Hash produces the digest for a secret.
	Hash(secret string) (string, error)

	// Verify checks whether the secret matches the digest.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an
	// error when the digest is malformed.
	Verify(secret, digest string) (bool, error)
}

// SeededHasher implements Hasher as HMAC-SHA256 keyed by a fixed seed.
// Deterministic: the same secret always yields the same digest, and two
// accounts sharing a plaintext share a digest. This is the scheme the
// platform has always used; stored digests depend on it.
type SeededHasher struct {
	seed []byte
}

// NewSeededHasher creates a SeededHasher. An empty seed falls back to
// DefaultSeed.
func NewSeededHasher(seed string) *SeededHasher {
	if seed == "" {
		seed = DefaultSeed
	}
	return &SeededHasher{seed: []byte(seed)}
}

// Hash produces the hex-encoded HMAC-SHA256 digest of the secret.
func (h *SeededHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	mac := hmac.New(sha256.New, h.seed)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the digest and compares in constant time.
func (h *SeededHasher) Verify(secret, digest string) (bool, error) {
	computed, err := h.Hash(secret)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1, nil
}

// Argon2id parameters, per OWASP recommendations.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// Argon2idHasher implements Hasher using salted argon2id. It is the
// substitutable stronger scheme for deployments without legacy digests;
// selected via the auth.hasher config key.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces a PHC-encoded argon2id digest with a random salt.
func (h *Argon2idHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("ACCOUNT_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(secret), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify checks the secret against a PHC-encoded argon2id digest.
func (h *Argon2idHasher) Verify(secret, digest string) (bool, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false, oops.Code("ACCOUNT_INVALID_DIGEST").Errorf("invalid digest format")
	}
	if parts[1] != "argon2id" {
		return false, oops.Code("ACCOUNT_INVALID_DIGEST").Errorf("unsupported digest algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("ACCOUNT_INVALID_DIGEST").Wrap(err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code("ACCOUNT_INVALID_DIGEST").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("ACCOUNT_INVALID_DIGEST").Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("ACCOUNT_INVALID_DIGEST").Wrap(err)
	}

	if threads > 255 {
		return false, oops.Code("ACCOUNT_INVALID_DIGEST").Errorf("threads value %d exceeds uint8 max", threads)
	}
	keyLen := len(expected)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false, oops.Code("ACCOUNT_INVALID_DIGEST").Errorf("invalid digest key length: %d", keyLen)
	}

	computed := argon2.IDKey([]byte(secret), salt, time, memory, uint8(threads), uint32(keyLen))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// NewHasher returns the hasher named by kind: "seeded" (default) or
// "argon2id".
func NewHasher(kind, seed string) (Hasher, error) {
	switch kind {
	case "", "seeded":
		return NewSeededHasher(seed), nil
	case "argon2id":
		return NewArgon2idHasher(), nil
	default:
		return nil, oops.Code("ACCOUNT_UNKNOWN_HASHER").
			With("kind", kind).
			Errorf("unknown hasher kind %q", kind)
	}
}
