package claimcode

import (
	"crypto/rand"
	"errors"
)

// Alphabet excludes visually ambiguous characters (0/O, 1/I/L) so codes can be
// read out loud at the pickup counter.
const (
	Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	Length   = 8
)

var ErrGenerationFailed = errors.New("claim code generation failed")

func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", ErrGenerationFailed
	}

	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// IsWellFormed reports whether s could have been produced by Generate.
// Used to reject malformed codes before hitting the store.
func IsWellFormed(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlphabetChar(s[i]) {
			return false
		}
	}
	return true
}

func isAlphabetChar(c byte) bool {
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] == c {
			return true
		}
	}
	return false
}
