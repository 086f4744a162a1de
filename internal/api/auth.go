package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pairup-labs/pairup/internal/orchestrator"
)

// AuthHandler finishes the deferred provider authorization flow.
type AuthHandler struct {
	*Handler
	orch *orchestrator.Orchestrator
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *Handler, orch *orchestrator.Orchestrator) *AuthHandler {
	return &AuthHandler{Handler: base, orch: orch}
}

// RegisterRoutes registers the OAuth callback route.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/auth/callback", h.Callback)
}

// Callback receives the provider redirect. The room ID rides in the OAuth
// state parameter; on success the stashed action request resumes and the
// participant is sent back to the frontend.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	roomID := r.URL.Query().Get("state")
	if code == "" || roomID == "" {
		Error(w, http.StatusBadRequest, "missing code or state")
		return
	}

	if err := h.orch.AuthorizationCallback(r.Context(), roomID, code); err != nil {
		slog.Error("Authorization callback failed", "room_id", roomID, "error", err)
		Error(w, http.StatusBadGateway, "authorization failed")
		return
	}

	if h.frontendRedirectURL != "" {
		http.Redirect(w, r, h.frontendRedirectURL, http.StatusFound)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "authorized"})
}
