package authcrypto

import (
	"crypto/rand"
	"io"

	"github.com/meridianhq/authcore/internal/errs"
)

// Rand is the process-wide RNG seam. Production code uses SystemRand
// (crypto/rand.Reader); tests substitute a deterministic implementation to
// make property tests reproducible, per the Design Notes on global
// singletons ("RAND_bytes-style access is acceptable only behind a small
// wrapper that can be substituted in tests").
type Rand interface {
	Read(p []byte) (n int, err error)
}

// SystemRand is the default, cryptographically secure Rand.
var SystemRand Rand = rand.Reader

func readFull(r Rand, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errs.New(errs.KindCryptoError, "rng failure")
	}
	return buf, nil
}
