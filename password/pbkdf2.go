package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Algorithm is the tag stored next to every digest.
	Algorithm = "PBKDF2-SHA256"

	// DefaultIterations is the PBKDF2 work factor for new digests.
	DefaultIterations = 150_000

	// SaltSize is the per-account salt length in bytes.
	SaltSize = 16

	keySize       = 32 // 256-bit derived key
	minIterations = 1_000
)

// Hasher derives and verifies digests with a fixed iteration count.
// Verification accepts the iteration count stored with the digest, so a
// Hasher can verify credentials older than its own configuration.
type Hasher struct {
	iterations int
}

func NewHasher(iterations int) (*Hasher, error) {
	if iterations < minIterations {
		return nil, errors.New("iteration count too low")
	}
	return &Hasher{iterations: iterations}, nil
}

// Iterations returns the work factor used for new digests.
func (h *Hasher) Iterations() int {
	return h.iterations
}

// NewSalt returns SaltSize crypto-random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Hash derives the base64-encoded digest of password under salt with the
// hasher's iteration count.
func (h *Hasher) Hash(password string, salt []byte) string {
	return derive(password, salt, h.iterations)
}

// Verify recomputes the digest with the stored salt and iteration count
// and compares in constant time.
func (h *Hasher) Verify(password, digest string, salt []byte, iterations int) bool {
	if iterations < minIterations || len(salt) == 0 {
		return false
	}
	computed := derive(password, salt, iterations)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

func derive(password string, salt []byte, iterations int) string {
	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}
