package service

import (
	"fmt"
	"io"
)

const (
	// ShareTokenLength is the number of symbols in a share token. 62^32 is
	// about 2^190, so tokens cannot be guessed or enumerated.
	ShareTokenLength = 32

	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// Bytes at or above this value are discarded. 248 is the largest
	// multiple of 62 that fits in a byte, so every kept byte maps onto the
	// alphabet with equal probability.
	tokenRejectAbove = 256 - 256%len(tokenAlphabet)
)

// generateToken draws ShareTokenLength symbols uniformly from tokenAlphabet.
// src is crypto/rand.Reader outside of tests.
func generateToken(src io.Reader) (string, error) {
	out := make([]byte, 0, ShareTokenLength)
	buf := make([]byte, ShareTokenLength+ShareTokenLength/4)

	for len(out) < ShareTokenLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= tokenRejectAbove {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == ShareTokenLength {
				break
			}
		}
	}
	return string(out), nil
}

// wellFormedToken reports whether s could have come from generateToken.
func wellFormedToken(s string) bool {
	if len(s) != ShareTokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}
