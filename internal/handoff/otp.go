package handoff

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	minOTPLength = 4
	maxOTPLength = 10
)

// NewCode returns a fixed-length numeric pickup code.
func NewCode(length int) (string, error) {
	if length < minOTPLength {
		length = minOTPLength
	}
	if length > maxOTPLength {
		length = maxOTPLength
	}

	const digits = "0123456789"
	out := make([]byte, length)
	for i := range out {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", fmt.Errorf("generate pickup code: %w", err)
		}
		out[i] = digits[v.Int64()]
	}
	return string(out), nil
}
