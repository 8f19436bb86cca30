package api

import (
	"net/http"

	"github.com/koopa0/helpdesk/internal/session"
)

type healthHandler struct {
	sessions *session.MemoryStore
}

func newHealthHandler(sessions *session.MemoryStore) *healthHandler {
	return &healthHandler{sessions: sessions}
}

func (h *healthHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.health)
}

// health reports liveness plus a conversation count for quick inspection.
func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"conversations_count": h.sessions.Count(),
	})
}
