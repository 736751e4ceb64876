package common

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const codeCharacters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateTicketID returns the first 8 hex digits of a v4 UUID, upper-cased.
func GenerateTicketID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// GenerateReferralCode returns an 8 character code drawn from A-Z and 0-9.
func GenerateReferralCode() string {
	result := make([]byte, 8)
	max := big.NewInt(int64(len(codeCharacters)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms; fall back to uuid bytes
			u := uuid.New()
			result[i] = codeCharacters[int(u[i])%len(codeCharacters)]
			continue
		}
		result[i] = codeCharacters[n.Int64()]
	}
	return string(result)
}

// IsCode reports whether s is an 8 character upper-case alphanumeric code.
func IsCode(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(codeCharacters, c) {
			return false
		}
	}
	return true
}
