package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// HashParams tunes argon2id password hashing.
type HashParams struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

// DefaultHashParams is used for all stored passwords.
var DefaultHashParams = HashParams{
	Time:       1,
	Memory:     64 * 1024,
	Threads:    4,
	KeyLength:  32,
	SaltLength: 16,
}

// HashPassword encodes password as argon2id$time$memory$threads$salt$hash.
func HashPassword(password string) (string, error) {
	return hashWith(password, DefaultHashParams)
}

func hashWith(password string, p HashParams) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLength)
	return fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		p.Time, p.Memory, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches an encoded hash.
// A malformed hash is an error, a mismatch is not.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func decodeHash(encoded string) (HashParams, []byte, []byte, error) {
	var p HashParams
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return p, nil, nil, fmt.Errorf("invalid password hash format")
	}

	nums := make([]uint32, 3)
	for i := range nums {
		n, err := strconv.ParseUint(parts[i+1], 10, 32)
		if err != nil {
			return p, nil, nil, fmt.Errorf("invalid hash parameter %q: %w", parts[i+1], err)
		}
		nums[i] = uint32(n)
	}
	if nums[2] == 0 || nums[2] > 255 {
		return p, nil, nil, fmt.Errorf("invalid thread count %d", nums[2])
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decode hash: %w", err)
	}
	if len(key) == 0 {
		return p, nil, nil, fmt.Errorf("empty password hash")
	}

	p = HashParams{Time: nums[0], Memory: nums[1], Threads: uint8(nums[2])}
	return p, salt, key, nil
}
