package joincode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesFixedLengthCodes(t *testing.T) {
	gen := NewGenerator()

	for range 100 {
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, code, CodeLength)
	}
}

func TestGenerateUsesOnlyUnambiguousAlphabet(t *testing.T) {
	gen := NewGenerator()

	for range 100 {
		code, err := gen.Generate()
		require.NoError(t, err)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected character %q in code %s", r, code)
		}
		assert.NotContainsf(t, code, "I", "ambiguous character in %s", code)
		assert.NotContainsf(t, code, "O", "ambiguous character in %s", code)
		assert.NotContainsf(t, code, "0", "ambiguous character in %s", code)
		assert.NotContainsf(t, code, "1", "ambiguous character in %s", code)
	}
}

func TestGenerateDoesNotRepeatImmediately(t *testing.T) {
	gen := NewGenerator()

	seen := make(map[string]bool)
	for range 100 {
		code, err := gen.Generate()
		require.NoError(t, err)
		seen[code] = true
	}
	// 100 draws from a 32^8 space colliding would point at a broken source.
	assert.Len(t, seen, 100)
}
