package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Stored passwords are "base64(salt).base64(key)" with PBKDF2-HMAC-SHA512.
const (
	pbkdf2Iterations = 10000
	saltLen          = 16
	keyLen           = 64
)

// HashPassword derives a storable hash from a plaintext password with a
// fresh random salt.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha512.New)
	return base64.StdEncoding.EncodeToString(salt) + "." + base64.StdEncoding.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches the stored hash. A
// malformed stored value is treated as a mismatch, not an error, so callers
// cannot distinguish corrupt records from wrong passwords.
func VerifyPassword(stored, password string) bool {
	saltPart, keyPart, ok := strings.Cut(stored, ".")
	if !ok {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(keyPart)
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, len(want), sha512.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

var errBadCredentials = errors.New("invalid username or password")
