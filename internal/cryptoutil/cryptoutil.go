// Package cryptoutil collects the core's password hashing, token hashing,
// signing, and random-token generation primitives. Every other component
// that needs a secret hashed or compared goes through here so the choice of
// algorithm and parameters lives in exactly one place.
package cryptoutil

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id tuning. Chosen per the core's documented defaults: 19 MiB memory,
// 2 iterations, single-threaded, 32-byte output.
const (
	argonMemoryKiB  = 19456
	argonIterations = 2
	argonParallel   = 1
	argonKeyLen     = 32
	argonSaltLen    = 16
)

// ErrInvalidHashFormat is returned by VerifyPassword when phcString is not a
// well-formed PHC string this package produced.
var ErrInvalidHashFormat = errors.New("cryptoutil: invalid hash format")

// HashPassword hashes plaintext with Argon2id and a fresh random salt,
// returning a self-describing PHC-formatted string.
func HashPassword(plaintext string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptoutil: generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(plaintext), salt, argonIterations, argonMemoryKiB, argonParallel, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemoryKiB, argonIterations, argonParallel,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// VerifyPassword checks plaintext against a PHC string produced by
// HashPassword. It returns (false, nil) on mismatch and a non-nil error only
// when phcString is malformed or an unsupported algorithm.
func VerifyPassword(plaintext, phcString string) (bool, error) {
	parts := strings.Split(phcString, "$")
	// "" "argon2id" "v=19" "m=...,t=...,p=..." "<salt>" "<hash>"
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrInvalidHashFormat
	}

	var memory uint32
	var iterations uint32
	var parallel uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallel); err != nil {
		return false, ErrInvalidHashFormat
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHashFormat
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrInvalidHashFormat
	}

	got := argon2.IDKey([]byte(plaintext), salt, iterations, memory, parallel, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// SHA256Hex returns the lowercase hex SHA-256 digest of input.
func SHA256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// HMACSHA256Hex returns the lowercase hex HMAC-SHA256 of message keyed by
// secret. Used to sign and verify outbound webhook bodies.
func HMACSHA256Hex(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateToken returns prefix concatenated with the URL-safe, unpadded
// base64 encoding of nRandomBytes read from the OS CSPRNG. nRandomBytes is
// floored to 32 (256 bits) if a caller passes less.
func GenerateToken(prefix string, nRandomBytes int) (string, error) {
	if nRandomBytes < 32 {
		nRandomBytes = 32
	}
	buf := make([]byte, nRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptoutil: generating token: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// SecureCompare reports whether a and b are equal, in constant time with
// respect to their content (not their length).
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// inviteCodeAlphabet excludes characters easily confused when read aloud or
// copied by hand: 0/O, 1/I.
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateInviteCode returns a random invite code in XXX-XXX-XXX format,
// drawn from inviteCodeAlphabet.
func GenerateInviteCode() (string, error) {
	var out [11]byte
	var raw [9]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("cryptoutil: generating invite code: %w", err)
	}

	pos := 0
	for group := 0; group < 3; group++ {
		if group > 0 {
			out[pos] = '-'
			pos++
		}
		for i := 0; i < 3; i++ {
			out[pos] = inviteCodeAlphabet[int(raw[group*3+i])%len(inviteCodeAlphabet)]
			pos++
		}
	}
	return string(out[:]), nil
}
