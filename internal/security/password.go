package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a secret into a salted one-way hash and verifies it later.
// Passwords and PINs share this interface with separately tuned costs.
type Hasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) bool
}

// BcryptHasher implements Hasher with bcrypt at a fixed cost
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher. Costs outside bcrypt's range fall back to the default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the bcrypt work factor
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash hashes a secret using bcrypt
func (h *BcryptHasher) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare checks a secret against a bcrypt hash
func (h *BcryptHasher) Compare(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
