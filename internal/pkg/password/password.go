// Package password hashes and verifies user credentials.
//
// New digests are bcrypt. Digests in the passlib pbkdf2-sha256 format, written by
// the earlier deployment of this service, are still accepted by Verify.
package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const pbkdf2SHA256Prefix = "$pbkdf2-sha256$"

func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password failed: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches digest. Unknown or corrupt digests never match.
func Verify(plaintext, digest string) bool {
	if strings.HasPrefix(digest, pbkdf2SHA256Prefix) {
		return verifyPBKDF2(plaintext, digest)
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// verifyPBKDF2 checks "$pbkdf2-sha256$<rounds>$<salt>$<checksum>", salt and checksum
// in passlib's adapted base64 ('.' instead of '+', no padding).
func verifyPBKDF2(plaintext, digest string) bool {
	parts := strings.Split(strings.TrimPrefix(digest, pbkdf2SHA256Prefix), "$")
	if len(parts) != 3 {
		return false
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds <= 0 {
		return false
	}
	salt, err := decodeAB64(parts[1])
	if err != nil {
		return false
	}
	want, err := decodeAB64(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(plaintext), salt, rounds, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func decodeAB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(s, ".", "+"))
}
