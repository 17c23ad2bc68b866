package api

import (
	"net/http"

	"github.com/meridianhq/authcore/internal/api/helpers"
	"github.com/meridianhq/authcore/internal/token"
)

// JWKSHandler exposes C4's current signing key set so resource servers can
// verify access tokens without a shared secret (spec.md section 4.4.3).
type JWKSHandler struct {
	engine *token.Engine
}

func NewJWKSHandler(engine *token.Engine) *JWKSHandler {
	return &JWKSHandler{engine: engine}
}

func (h *JWKSHandler) GetJWKS(w http.ResponseWriter, r *http.Request) {
	helpers.RespondJSON(w, http.StatusOK, h.engine.GetJWKS())
}
