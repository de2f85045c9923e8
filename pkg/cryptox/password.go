package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned when a stored digest cannot be parsed.
var ErrMalformedHash = errors.New("invalid hash format")

// Params controls the Argon2id cost.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  int
}

// DefaultParams follows the OWASP minimum for Argon2id.
var DefaultParams = Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	KeyLength:   32,
	SaltLength:  16,
}

// Argon2id hashes secrets into PHC-format digests. The digest bytes are the
// ASCII of "$argon2id$v=19$m=..,t=..,p=..$salt$hash".
type Argon2id struct {
	params Params
	pepper string
}

func NewArgon2id(pepper string, params Params) *Argon2id {
	if params.KeyLength == 0 {
		params = DefaultParams
	}
	return &Argon2id{params: params, pepper: pepper}
}

// Hash generates a digest with a fresh random salt.
func (a *Argon2id) Hash(secret []byte) ([]byte, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}

	key := argon2.IDKey(
		a.peppered(secret),
		salt,
		a.params.Iterations,
		a.params.Memory,
		a.params.Parallelism,
		a.params.KeyLength,
	)

	return fmt.Appendf(nil,
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		a.params.Memory,
		a.params.Iterations,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares secret against digest in constant time. It returns
// (false, nil) on mismatch and an error only for malformed digests.
func (a *Argon2id) Verify(secret, digest []byte) (bool, error) {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(string(digest), "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("%w: expected 6 parts", ErrMalformedHash)
	}
	if parts[1] != "argon2id" {
		return false, fmt.Errorf("%w: not argon2id", ErrMalformedHash)
	}
	if parts[2] != "v=19" {
		return false, fmt.Errorf("%w: wrong version", ErrMalformedHash)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return false, fmt.Errorf("%w: parameters: %v", ErrMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false, fmt.Errorf("%w: hash", ErrMalformedHash)
	}

	computed := argon2.IDKey(
		a.peppered(secret),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - bounded by the digest we wrote
	)

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func (a *Argon2id) peppered(secret []byte) []byte {
	out := make([]byte, 0, len(secret)+len(a.pepper))
	out = append(out, secret...)
	return append(out, a.pepper...)
}
