package revocation

import "errors"

// ErrNotFound is returned by Get when the key is absent or has expired.
var ErrNotFound = errors.New("revocation: key not found")

// ErrUnavailable wraps any error reaching the backing store (network
// failure, connection pool exhaustion). Callers decide fail-open vs
// fail-closed per spec.md section 4.2/7.
var ErrUnavailable = errors.New("revocation: store unavailable")
