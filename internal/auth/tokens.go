package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// SessionTokenLength is the number of random bytes in a session token.
const SessionTokenLength = 32

// GenerateToken returns n random bytes encoded as unpadded base64url.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateSessionToken returns a fresh opaque session token.
func GenerateSessionToken() (string, error) {
	return GenerateToken(SessionTokenLength)
}
