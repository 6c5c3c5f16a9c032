package teller

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// DrawerCrypto holds the password hashing parameters. They are configuration,
// not constants, so deployments can tighten them without a code change.
type DrawerCrypto struct {
	Iterations int
	KeyLength  int
	SaltLength int
}

// DefaultDrawerCrypto matches the parameters used by existing deployments.
func DefaultDrawerCrypto() DrawerCrypto {
	return DrawerCrypto{Iterations: 4096, KeyLength: 32, SaltLength: 16}
}

// GenerateSalt produces a fresh random salt.
func (c DrawerCrypto) GenerateSalt() ([]byte, error) {
	length := c.SaltLength
	if length <= 0 {
		length = 16
	}
	salt := make([]byte, length)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("teller: generate salt: %w", err)
	}
	return salt, nil
}

// Hash derives the stored drawer password hash.
func (c DrawerCrypto) Hash(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, c.Iterations, c.KeyLength, sha512.New)
}

// Verify compares a supplied password against the stored salt and hash in
// constant time.
func (c DrawerCrypto) Verify(password string, salt, hash []byte) bool {
	derived := c.Hash(password, salt)
	return subtle.ConstantTimeCompare(derived, hash) == 1
}
