package codes

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrInvalidLength = errors.New("invalid code length")
)

const (
	// DefaultJoinCodeLength is the length of session join codes.
	DefaultJoinCodeLength = 6

	// Upper case alphanumeric excluding ambiguous characters (0/O, 1/I/L).
	// Join codes are read aloud and typed, and ParseCode upper-cases input.
	charsetJoinCode = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// Generator creates join codes with the configured shape.
type Generator struct {
	length  int
	charset string
}

func NewGenerator(cfg Config) *Generator {
	length := cfg.JoinCodeLength
	if length < 4 {
		length = DefaultJoinCodeLength
	}
	return &Generator{length: length, charset: cfg.GetCharset()}
}

// JoinCode returns a new random session join code, e.g. "K7QM2D".
func (g *Generator) JoinCode() (string, error) {
	return GenerateCode(g.length, g.charset)
}

// GenerateCode creates a code of specified length from a given character set.
func GenerateCode(length int, charset string) (string, error) {
	if length < 1 {
		return "", ErrInvalidLength
	}
	if len(charset) == 0 {
		return "", errors.New("charset cannot be empty")
	}

	return generateFromCharset(length, charset)
}

// ParseCode normalises user input for comparison: dashes and spaces are
// dropped and letters upper-cased.
func ParseCode(formatted string) string {
	code := strings.ReplaceAll(formatted, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateFromCharset(length int, charset string) (string, error) {
	result := make([]byte, length)
	max := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random character: %w", err)
		}
		result[i] = charset[n.Int64()]
	}

	return string(result), nil
}
