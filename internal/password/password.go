// Package password hashes and verifies user passwords with PBKDF2-SHA512.
package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 1000
	keyLength  = 64
	saltBytes  = 16
)

// ErrMalformedHash is returned when a stored hash is not in salt:hash form.
var ErrMalformedHash = errors.New("malformed password hash")

// Hash derives a "salt:hash" string from plain. The salt is 16 random bytes,
// hex-encoded; the hex text itself is the PBKDF2 salt input.
func Hash(plain string) (string, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt := hex.EncodeToString(raw)
	return salt + ":" + derive(plain, salt), nil
}

// Verify reports whether plain matches the stored "salt:hash" string.
func Verify(plain, stored string) (bool, error) {
	salt, want, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || want == "" {
		return false, ErrMalformedHash
	}
	got := derive(plain, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1, nil
}

func derive(plain, salt string) string {
	key := pbkdf2.Key([]byte(plain), []byte(salt), iterations, keyLength, sha512.New)
	return hex.EncodeToString(key)
}
