// Package delivery implements C8: the email outbox worker and webhook
// dispatch, including SSRF-safe URL validation and HMAC signing.
package delivery

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/meridianhq/authcore/internal/errs"
)

// allowedWebhookPorts is the exhaustive set of ports a webhook endpoint may
// target (spec.md section 4.8.2).
var allowedWebhookPorts = map[string]bool{
	"80": true, "443": true, "8080": true, "8443": true,
}

// blockedHostLiterals are rejected by exact (case-insensitive) string
// match. Deliberately does NOT strip a trailing dot before comparing, so
// "localhost." is a distinct string from "localhost" and is NOT rejected
// by this path (see DESIGN.md's Open Question decision on this exact
// behavior) -- a documented, tested quirk of doing this check
// string-based rather than via DNS resolution.
var blockedHostLiterals = map[string]bool{
	"localhost": true,
	"0.0.0.0":   true,
	"::1":       true,
}

// ValidateWebhookUrl implements spec.md section 4.8.2's SSRF defense:
// string/IP-literal based checks only, never a DNS lookup, so the
// behavior is fully deterministic and doesn't change between validation
// time and delivery time based on what a hostname currently resolves to.
func ValidateWebhookUrl(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return errs.New(errs.KindWebhookUrlRejected, "malformed url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errs.New(errs.KindWebhookUrlRejected, "scheme must be http or https")
	}

	host := u.Hostname()
	lower := strings.ToLower(host)
	if blockedHostLiterals[lower] {
		return errs.New(errs.KindWebhookUrlRejected, "host is not routable")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return errs.New(errs.KindWebhookUrlRejected, "host is not routable")
		}
	}

	if port := u.Port(); port != "" {
		if !allowedWebhookPorts[port] {
			return errs.New(errs.KindWebhookUrlRejected, "port not allowed")
		}
		if _, err := strconv.Atoi(port); err != nil {
			return errs.New(errs.KindWebhookUrlRejected, "port must be numeric")
		}
	}

	return nil
}

// isBlockedIP reports whether ip falls in a loopback, RFC 1918, or
// link-local (cloud metadata) range (spec.md section 4.8.2's exhaustive
// rejection list).
func isBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	privateBlocks := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
	}
	for _, cidr := range privateBlocks {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
