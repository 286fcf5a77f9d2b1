package orders

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

const arrivalCodeDigits = 6

// NewArrivalCode returns a 6-digit numeric code from crypto/rand. Codes are
// random per order; uniqueness across orders is not required.
func NewArrivalCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generating arrival code: %w", err)
	}
	return fmt.Sprintf("%0*d", arrivalCodeDigits, n), nil
}

// CodeMatches compares codes in constant time.
func CodeMatches(expected, provided string) bool {
	if len(expected) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
