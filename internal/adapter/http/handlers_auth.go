package http

import (
	"log/slog"
	"net/http"

	"github.com/stackpad/stackpad/internal/domain/account"
)

// Register handles POST /api/v1/auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[account.RegisterRequest](w, r)
	if !ok {
		return
	}

	a, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "account not found")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Login handles POST /api/v1/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[account.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.Login(r.Context(), &req)
	if err != nil {
		slog.Debug("login failed", "email", req.Email, "error", err)
		writeDomainError(w, err, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/v1/auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	a, err := h.Auth.GetAccount(r.Context(), p.AccountID)
	if err != nil {
		writeDomainError(w, err, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles POST /api/v1/auth/password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[changePasswordRequest](w, r)
	if !ok {
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), p.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		writeDomainError(w, err, "account not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
