package shortener

import (
	"fmt"
	"strings"

	"github.com/jaevor/go-nanoid"
)

const (
	// Alphabet is the set of symbols short keys are drawn from.
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// DefaultCodeLength is the number of symbols in a generated short key.
	DefaultCodeLength = 6
	// MinCodeLength and MaxCodeLength bound configurable key lengths.
	MinCodeLength = 4
	MaxCodeLength = 16
)

// KeyGenerator produces candidate short keys. It knows nothing about existing keys,
// so callers must handle collisions.
type KeyGenerator func() string

// NewKeyGenerator returns a generator of uniformly random keys of the given length over Alphabet.
func NewKeyGenerator(length int) (KeyGenerator, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return nil, fmt.Errorf("code length %d outside [%d, %d]", length, MinCodeLength, MaxCodeLength)
	}

	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, err
	}

	return KeyGenerator(gen), nil
}

// ValidCode reports whether code could have been produced by a KeyGenerator.
func ValidCode(code Code) bool {
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return false
	}

	for _, r := range string(code) {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}

	return true
}
