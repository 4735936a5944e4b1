package http

import (
	"context"
	"net/http"
	"time"

	"github.com/stackpad/stackpad/internal/middleware"
	"github.com/stackpad/stackpad/internal/service"
)

// Handlers bundles the services the HTTP layer dispatches to.
type Handlers struct {
	Auth  *service.AuthService
	Orgs  *service.OrgService
	Todos *service.TodoService

	// ReadyCheck reports whether downstream dependencies are reachable.
	// Nil means readiness is always green.
	ReadyCheck func(ctx context.Context) error

	// WSConnections reports how many websocket clients are attached. Nil
	// omits the count from the health payload.
	WSConnections func() int
}

// NewHandlers creates the handler set.
func NewHandlers(auth *service.AuthService, orgs *service.OrgService, todos *service.TodoService) *Handlers {
	return &Handlers{Auth: auth, Orgs: orgs, Todos: todos}
}

// principal returns the authenticated principal, or writes a 401 and returns
// false. The auth middleware guarantees a principal on protected routes;
// this guards handlers against being mounted outside it.
func (h *Handlers) principal(w http.ResponseWriter, r *http.Request) (*middleware.Principal, bool) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return p, true
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.WSConnections != nil {
		body["ws_connections"] = h.WSConnections()
	}
	writeJSON(w, http.StatusOK, body)
}

// Ready handles GET /health/ready.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ReadyCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ReadyCheck(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
