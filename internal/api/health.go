package api

import (
	"net/http"

	"github.com/meridianhq/authcore/internal/api/helpers"
)

// HealthHandler is a liveness probe. Unlike the teacher's version this
// does not ping a concrete database handle -- the C3 Store this edge
// layer depends on is an interface with no health-check method, since
// both the in-memory and pgx-backed implementations are expected to fail
// individual operations with errs.KindStoreUnavailable rather than expose
// a separate liveness surface.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	helpers.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
