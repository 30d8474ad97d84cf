package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

// Opaque token entropy sizes.
const (
	RefreshTokenBytes = 32
	ResetTokenBytes   = 24
)

// NewOpaque returns n crypto-random bytes in URL-safe base64 without
// padding. The result is the raw bearer secret: it goes to the client
// once and is never persisted.
func NewOpaque(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("opaque token size must be positive")
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashOpaque returns the storable one-way hash of a raw opaque token.
// Stores compare this value; possession of a stored hash does not permit
// redemption.
func HashOpaque(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.StdEncoding.EncodeToString(sum[:])
}
