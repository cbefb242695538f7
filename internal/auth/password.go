package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt cost used when none is configured. Suitable
// for interactive login latency.
const DefaultHashCost = 10

// Hasher is a one-way password transform backed by bcrypt.
type Hasher struct {
	cost int
}

// NewHasher creates a hasher with the given cost factor. Costs outside
// bcrypt's supported range fall back to the default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the salted bcrypt hash of the plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext matches the stored hash. bcrypt's
// comparison does not leak timing on mismatch, and a malformed stored hash
// compares false rather than erroring.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
