package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the minimum accepted password length
const MinLength = 8

// Hash derives a bcrypt hash from the plaintext password
func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether the plaintext password matches the stored hash
func Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Validate checks basic password requirements before hashing
func Validate(plaintext string) error {
	if len(plaintext) < MinLength {
		return fmt.Errorf("password must be at least %d characters", MinLength)
	}
	// bcrypt silently truncates beyond 72 bytes
	if len(plaintext) > 72 {
		return fmt.Errorf("password must be at most 72 characters")
	}
	return nil
}
