package crypto

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"unicode"
)

const (
	MinPasswordLength  = 8
	MinPasswordBits    = 60.0
	MinGeneratedLength = 12

	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// EstimateEntropy returns a rough strength estimate in bits: length times
// log2 of the character pool in use, halved when the password mostly repeats
// the same few characters.
func EstimateEntropy(password []byte) float64 {
	if len(password) == 0 {
		return 0
	}

	var lower, upper, digit, symbol, other bool
	unique := make(map[rune]struct{})
	runes := 0
	for _, r := range string(password) {
		runes++
		unique[r] = struct{}{}
		switch {
		case unicode.IsLower(r) && r < unicode.MaxASCII:
			lower = true
		case unicode.IsUpper(r) && r < unicode.MaxASCII:
			upper = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		case r < unicode.MaxASCII && unicode.IsPrint(r):
			symbol = true
		default:
			other = true
		}
	}

	pool := 0
	if lower {
		pool += len(lowerChars)
	}
	if upper {
		pool += len(upperChars)
	}
	if digit {
		pool += len(digitChars)
	}
	if symbol {
		pool += len(symbolChars) + 1 // space
	}
	if other {
		pool += 100
	}

	bits := float64(runes) * math.Log2(float64(pool))
	if len(unique)*2 < runes {
		bits /= 2
	}
	return bits
}

// CheckPassword enforces the minimum password policy
func CheckPassword(password []byte) error {
	if len([]rune(string(password))) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if bits := EstimateEntropy(password); bits < MinPasswordBits {
		return fmt.Errorf("password entropy %.0f bits is below %.0f bits", bits, MinPasswordBits)
	}
	return nil
}

// GeneratePassword returns a random password drawn from letters, digits and
// punctuation. The result always passes CheckPassword.
func GeneratePassword(length int) ([]byte, error) {
	if length < MinGeneratedLength {
		return nil, fmt.Errorf("password length must be at least %d", MinGeneratedLength)
	}
	alphabet := lowerChars + upperChars + digitChars + symbolChars
	max := big.NewInt(int64(len(alphabet)))

	for {
		out := make([]byte, length)
		for i := range out {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return nil, fmt.Errorf("failed to generate password: %w", err)
			}
			out[i] = alphabet[n.Int64()]
		}
		if CheckPassword(out) == nil {
			return out, nil
		}
		ClearBytes(out)
	}
}
