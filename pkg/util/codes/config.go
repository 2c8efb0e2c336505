package codes

import (
	"strings"

	"github.com/Alijeyrad/simward_backend/config"
)

// Config holds settings for join code generation.
type Config struct {
	// JoinCodeLength is the number of characters in a session join code.
	JoinCodeLength int

	// Charset is the character set used for join codes.
	// If empty, defaults to upper case alphanumeric without ambiguous chars.
	Charset string
}

// DefaultConfig returns sensible defaults for code generation
func DefaultConfig() Config {
	return Config{
		JoinCodeLength: DefaultJoinCodeLength,
		Charset:        charsetJoinCode,
	}
}

// GetCharset returns the configured charset upper-cased, or the default if
// empty. ParseCode upper-cases input, so lower case
// characters would never match.
func (c Config) GetCharset() string {
	if c.Charset == "" {
		return charsetJoinCode
	}
	return strings.ToUpper(c.Charset)
}

// FromCentralConfig converts central config.CodesConfig to package Config
func FromCentralConfig(c config.CodesConfig) Config {
	return Config{
		JoinCodeLength: c.JoinCodeLength,
		Charset:        c.Charset,
	}
}
