// Package transport implements C9: mutually-authenticated gRPC channels
// between the edge and backend services, with SPIFFE-issued X.509
// identities as the trust anchor, and re-validation of propagated caller
// identity on arrival.
package transport

import (
	"context"
	"time"

	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// defaultSpiffeDialTimeout bounds the initial connection to the SPIFFE
// Workload API so a missing/unreachable SPIRE agent fails startup
// promptly instead of hanging.
const defaultSpiffeDialTimeout = 3 * time.Second

// TrustSource wraps a workloadapi.X509Source: the SVID and trust bundle
// both peers present and verify against (spec.md section 4.9's "trust
// anchor"), refreshed automatically by the SPIRE agent in the background.
type TrustSource struct {
	source *workloadapi.X509Source
}

// NewTrustSource connects to the SPIRE Workload API at socketPath (a Unix
// domain socket address, e.g. "unix:///tmp/spire-agent/public/api.sock").
func NewTrustSource(socketPath string) (*TrustSource, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSpiffeDialTimeout)
	defer cancel()

	source, err := workloadapi.NewX509Source(
		ctx,
		workloadapi.WithClientOptions(workloadapi.WithAddr(socketPath)),
	)
	if err != nil {
		return nil, err
	}
	return &TrustSource{source: source}, nil
}

func (t *TrustSource) Close() error {
	return t.source.Close()
}
