package util

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost trades hash strength against login latency. 8 keeps a login
// round-trip comfortably under 100ms on commodity hardware.
const bcryptCost = 8

// HashPassword derives a bcrypt hash from the plaintext password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
