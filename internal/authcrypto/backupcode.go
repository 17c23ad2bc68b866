package authcrypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const backupCodeDigits = "0123456789"

// GenerateBackupCodes creates n cryptographically random DDDD-DDDD decimal
// recovery codes, pairwise unique within the batch (spec.md section 1/6:
// "9 characters, hyphen at position 4, digits 0-9").
func GenerateBackupCodes(n int) ([]string, error) {
	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)
	for len(codes) < n {
		code, err := generateOneBackupCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

func generateOneBackupCode() (string, error) {
	digits := make([]byte, 8)
	for i := range digits {
		n, err := randDigit()
		if err != nil {
			return "", err
		}
		digits[i] = backupCodeDigits[n]
	}
	return fmt.Sprintf("%s-%s", digits[:4], digits[4:]), nil
}

func randDigit() (int64, error) {
	b, err := readFull(SystemRand, 1)
	if err != nil {
		return 0, err
	}
	// Rejection sampling against a byte to keep the distribution uniform
	// over [0,10) without the bignum overhead of crypto/rand.Int for a
	// single-digit draw.
	const limit = 250 // largest multiple of 10 <= 256
	for b[0] >= limit {
		b, err = readFull(SystemRand, 1)
		if err != nil {
			return 0, err
		}
	}
	return int64(b[0]) % 10, nil
}

// HashBackupCode returns the 64-char lowercase hex SHA-256 digest of code.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyBackupCode reports whether code hashes to storedHash, in constant
// time over the hash comparison.
func VerifyBackupCode(code, storedHash string) bool {
	got := HashBackupCode(code)
	return subtle.ConstantTimeCompare([]byte(got), []byte(storedHash)) == 1
}
