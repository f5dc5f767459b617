package internal

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

const (
	EmailRegexTemplate = `^[\w.\+\.\-]+@([\w\-]+\.)+[\w]{2,}$`
	// APIKeyBytes is the amount of random bytes behind every issued API key.
	APIKeyBytes = 16
)

var emailRegex = regexp.MustCompile(EmailRegexTemplate)

// ValidEmail helper function allows to validate an email address.
func ValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// RandomBytes helper function allows to generate a random byte slice of n bytes.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// RandomHex helper function allows to generate a random hex string of n bytes.
func RandomHex(n int) string {
	return fmt.Sprintf("%x", RandomBytes(n))
}

// NewAPIKey returns a fresh 32 character lowercase hex API key.
func NewAPIKey() string {
	return RandomHex(APIKeyBytes)
}
