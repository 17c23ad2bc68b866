package authcrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2idHasher_HashAndCompare(t *testing.T) {
	h := NewArgon2idHasher()

	phc, err := h.Hash("P@ssword1234")
	require.NoError(t, err)
	assert.Contains(t, phc, "$argon2id$")

	assert.NoError(t, h.Compare(phc, "P@ssword1234"))
	assert.Error(t, h.Compare(phc, "wrong-password"))
}

func TestValidatePasswordPolicy(t *testing.T) {
	cases := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"too short", "Aa1!aaa", true},
		{"no upper", "p@ssword1234", true},
		{"no lower", "P@SSWORD1234", true},
		{"no digit", "P@ssword!!!!", true},
		{"no symbol", "Password12345", true},
		{"valid", "P@ssword1234", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidatePasswordPolicy(c.pw)
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
