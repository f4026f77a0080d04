package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	verificationTokenBytes = 20
	adminTokenBytes        = 24
)

// GenerateVerificationToken returns a random 40-char hex email verification token.
func GenerateVerificationToken() (string, error) {
	return randomHex(verificationTokenBytes)
}

// GenerateAdminToken returns a random 48-char hex admin token.
func GenerateAdminToken() (string, error) {
	return randomHex(adminTokenBytes)
}

// HashToken returns the hex SHA-256 of a high-entropy token for storage.
// Not for passwords.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenMatchesHash reports whether token hashes to storedHash, in constant time.
func TokenMatchesHash(token, storedHash string) bool {
	if token == "" || storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(storedHash)) == 1
}

// TokensEqual compares two plaintext tokens in constant time. Empty never matches.
func TokensEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
