package token

import "github.com/prometheus/client_golang/prometheus"

// RefreshReuseDetectedTotal is the dedicated counter spec.md section 4.4.4
// requires: "This is the single most important security invariant; the
// event MUST be counted in a dedicated metric." Grounded on
// Generativebots-ocx-backend-go-svc's use of prometheus/client_golang.
var RefreshReuseDetectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "authcore",
	Subsystem: "token",
	Name:      "refresh_reuse_detected_total",
	Help:      "Number of times a consumed refresh token was presented again, indicating theft.",
})

func init() {
	prometheus.MustRegister(RefreshReuseDetectedTotal)
}
