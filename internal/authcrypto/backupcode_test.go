package authcrypto

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var backupCodeFormat = regexp.MustCompile(`^[0-9]{4}-[0-9]{4}$`)

func TestGenerateBackupCodes_FormatAndUniqueness(t *testing.T) {
	codes, err := GenerateBackupCodes(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := make(map[string]bool)
	for _, c := range codes {
		assert.Regexp(t, backupCodeFormat, c)
		assert.False(t, seen[c], "duplicate backup code generated")
		seen[c] = true
	}
}

func TestHashAndVerifyBackupCode(t *testing.T) {
	code := "1234-5678"
	hash := HashBackupCode(code)
	assert.Len(t, hash, 64)
	assert.True(t, VerifyBackupCode(code, hash))
	assert.False(t, VerifyBackupCode("8765-4321", hash))
}

func TestHashBackupCode_Deterministic(t *testing.T) {
	assert.Equal(t, HashBackupCode("1111-2222"), HashBackupCode("1111-2222"))
}
