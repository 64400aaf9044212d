package crypto

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
	tokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

func TestGenerateCode_Format(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, codePattern, code)
	}
}

func TestGenerateCode_Varies(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		seen[code] = true
	}
	// 50 draws over a million values should practically never collide much
	assert.Greater(t, len(seen), 40)
}

func TestGenerateToken_Format(t *testing.T) {
	token1, err := GenerateToken()
	require.NoError(t, err)
	assert.Regexp(t, tokenPattern, token1)

	token2, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token1, token2)
}

func TestGenerateRandomBytes(t *testing.T) {
	b, err := GenerateRandomBytes(16)
	require.NoError(t, err)
	assert.Len(t, b, 16)
}

func TestHashPassword_CheckPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", hash)
	assert.True(t, IsPasswordHash(hash))
	assert.True(t, CheckPassword("secret1", hash))
	assert.False(t, CheckPassword("secret2", hash))
}

func TestHashPassword_Salted(t *testing.T) {
	hash1, err := HashPassword("same-password")
	require.NoError(t, err)
	hash2, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestIsPasswordHash(t *testing.T) {
	assert.True(t, IsPasswordHash("$2a$10$abcdefghijklmnopqrstuv"))
	assert.True(t, IsPasswordHash("$2b$12$abcdefghijklmnopqrstuv"))
	assert.True(t, IsPasswordHash("$2y$10$abcdefghijklmnopqrstuv"))
	assert.False(t, IsPasswordHash("plaintext"))
	assert.False(t, IsPasswordHash(""))
}
