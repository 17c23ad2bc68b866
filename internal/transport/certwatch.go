package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/protobuf/types/known/timestamppb"
)

var errNoCertificates = errors.New("transport: svid has no certificates")

// certExpiryWarningWindow is how far ahead of expiry a warning fires
// (spec.md section 4.9: "a warning is emitted seven days before expiry").
const certExpiryWarningWindow = 7 * 24 * time.Hour

// pollInterval is how often the SVID's current expiry is checked.
const pollInterval = time.Hour

// CertStatus reports a trust source's current leaf certificate expiry.
// Timestamp uses the well-known protobuf wire type so this status can be
// carried verbatim across the same gRPC/protobuf transport C9 otherwise
// uses, rather than a bespoke time encoding.
type CertStatus struct {
	ExpiresAt *timestamppb.Timestamp
	Warning   bool
}

// WatchCertExpiry polls trust's current SVID expiry every pollInterval
// until ctx is done, logging a warning and a Sentry breadcrumb once the
// certificate enters its 7-day expiry window.
func WatchCertExpiry(ctx context.Context, trust *TrustSource, log *slog.Logger) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	check := func() {
		status, err := trust.certStatus()
		if err != nil {
			log.Warn("transport: failed to read SVID for expiry check", "error", err)
			return
		}
		if !status.Warning {
			return
		}
		log.Warn("transport: mTLS certificate nearing expiry",
			"expires_at", status.ExpiresAt.AsTime())
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Category: "transport.cert_expiry",
			Message:  "mTLS certificate nearing expiry",
			Level:    sentry.LevelWarning,
			Data:     map[string]interface{}{"expires_at": status.ExpiresAt.AsTime()},
		})
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// certStatus reads the trust source's current leaf certificate and
// reports whether it falls inside the expiry warning window.
func (t *TrustSource) certStatus() (CertStatus, error) {
	svid, err := t.source.GetX509SVID()
	if err != nil {
		return CertStatus{}, err
	}
	if len(svid.Certificates) == 0 {
		return CertStatus{}, errNoCertificates
	}
	leaf := svid.Certificates[0]
	expiresAt := leaf.NotAfter
	return CertStatus{
		ExpiresAt: timestamppb.New(expiresAt),
		Warning:   time.Until(expiresAt) <= certExpiryWarningWindow,
	}, nil
}
