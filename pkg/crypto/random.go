package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// CodeDigits is the width of verification and reset codes.
	CodeDigits = 6
	// TokenBytes is the number of random bytes behind a legacy link token.
	TokenBytes = 32
)

var codeSpace = big.NewInt(1_000_000)

// GenerateRandomBytes generates cryptographically secure random bytes
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// GenerateCode returns a uniformly distributed 6-digit numeric code.
// Leading zeros are kept, so "000042" is a valid result.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}

// GenerateToken returns TokenBytes random bytes encoded as lowercase hex.
func GenerateToken() (string, error) {
	b, err := GenerateRandomBytes(TokenBytes)
	if err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
