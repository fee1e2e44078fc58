package auth

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// NewCode returns a random single-use confirmation code.
func NewCode() string {
	return uuid.NewString()
}

// HashCode creates a bcrypt hash from the given confirmation code.
func HashCode(code string) (string, error) {
	// the cost determines the computational complexity of the hashing process
	// default cost is 10, codes are short lived so it is plenty
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// VerifyCode checks if the provided code matches the stored bcrypt hash.
func VerifyCode(hashedCode, providedCode string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedCode), []byte(providedCode))
}
