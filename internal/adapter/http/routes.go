package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. The caller
// wires the cross-cutting middleware (request IDs, auth, rate limiting,
// idempotency) around the router; routes here only dispatch.
func MountRoutes(r chi.Router, h *Handlers, wsHandler http.HandlerFunc) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	if wsHandler != nil {
		r.Get("/ws", wsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Identity
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Get("/auth/me", h.Me)
		r.Post("/auth/password", h.ChangePassword)

		// Active organization
		r.Get("/me/active-organization", h.GetActiveOrganization)
		r.Put("/me/active-organization", h.SetActiveOrganization)

		// Organizations
		r.Get("/organizations", h.ListOrganizations)
		r.Post("/organizations", h.CreateOrganization)
		r.Get("/organizations/slug-available", h.CheckSlug)
		r.Get("/organizations/slug/{slug}", h.GetOrganizationBySlug)
		r.Get("/organizations/{id}", h.GetOrganization)
		r.Put("/organizations/{id}", h.UpdateOrganization)
		r.Delete("/organizations/{id}", h.DeleteOrganization)
		r.Post("/organizations/{id}/leave", h.LeaveOrganization)
		r.Get("/organizations/{id}/my-role", h.MyRole)

		// Members (nested under organizations)
		r.Get("/organizations/{id}/members", h.ListMembers)
		r.Post("/organizations/{id}/members", h.AddMember)

		// Members (direct access)
		r.Put("/members/{id}/role", h.UpdateMemberRole)
		r.Delete("/members/{id}", h.RemoveMember)

		// Todos
		r.Get("/todos", h.ListTodos)
		r.Post("/todos", h.CreateTodo)
		r.Get("/todos/{id}", h.GetTodo)
		r.Put("/todos/{id}", h.UpdateTodo)
		r.Delete("/todos/{id}", h.DeleteTodo)
		r.Get("/organizations/{id}/todos", h.ListOrganizationTodos)
	})
}
