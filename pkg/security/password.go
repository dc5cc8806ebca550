package security

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the cost used by the existing user seeding scripts.
const DefaultCost = 10

var (
	ErrHashingFailed   = errors.New("password hashing failed")
	ErrEmptyPassword   = errors.New("password is empty")
	ErrPasswordInvalid = errors.New("password does not match")
)

// PasswordHasher provides interface for password operations
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a new password hasher using bcrypt
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

// Compare returns ErrPasswordInvalid on mismatch or when hashedPassword is not a
// bcrypt hash.
func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	if !IsHash(hashedPassword) {
		return ErrPasswordInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrPasswordInvalid
	}
	return nil
}

// IsHash reports whether s looks like a bcrypt hash.
func IsHash(s string) bool {
	return len(s) == 60 && strings.HasPrefix(s, "$2")
}
