package auth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestGenerateEmailCode_Format(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := GenerateEmailCode()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestGenerateEmailCode_Varies(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		code, err := GenerateEmailCode()
		require.NoError(t, err)
		seen[code] = struct{}{}
	}

	// 20 draws from a million values collide with negligible probability
	assert.Greater(t, len(seen), 1)
}

func TestHashAndCompareCode(t *testing.T) {
	hash, err := HashCode("123456")
	require.NoError(t, err)

	assert.NotEqual(t, "123456", hash)
	assert.True(t, CompareCode(hash, "123456"))
	assert.False(t, CompareCode(hash, "654321"))
	assert.False(t, CompareCode("not-a-hash", "123456"))
}
