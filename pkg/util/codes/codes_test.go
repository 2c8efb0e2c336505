package codes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCode(t *testing.T) {
	g := NewGenerator(DefaultConfig())

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := g.JoinCode()
		require.NoError(t, err)
		assert.Len(t, code, DefaultJoinCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(charsetJoinCode, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestNewGeneratorFallsBackOnShortLength(t *testing.T) {
	g := NewGenerator(Config{JoinCodeLength: 2, Charset: "abc"})
	code, err := g.JoinCode()
	require.NoError(t, err)
	assert.Len(t, code, DefaultJoinCodeLength)
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestGenerateCodeErrors(t *testing.T) {
	_, err := GenerateCode(0, "AB")
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = GenerateCode(4, "")
	assert.Error(t, err)
}

func TestParseCode(t *testing.T) {
	assert.Equal(t, "K7QM2D", ParseCode(" k7q-m2d "))
	assert.Equal(t, "K7QM2D", ParseCode("K7Q M2D"))
}
