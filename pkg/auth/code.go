package auth

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"golang.org/x/crypto/bcrypt"
)

const (
	// EmailCodeDigits is the length of email confirmation codes
	EmailCodeDigits = 6
	codeSecretBytes = 20
	codeBcryptCost  = bcrypt.DefaultCost
)

// GenerateEmailCode returns a fresh numeric code. Each call derives the
// code from a new random secret and counter, so codes are unrelated.
func GenerateEmailCode() (string, error) {
	raw := make([]byte, codeSecretBytes+8)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:codeSecretBytes])
	counter := binary.BigEndian.Uint64(raw[codeSecretBytes:])

	code, err := hotp.GenerateCodeCustom(secret, counter, hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return code, nil
}

// HashCode returns the bcrypt hash of a code
func HashCode(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), codeBcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(hashed), nil
}

// CompareCode reports whether code matches the stored hash
func CompareCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
