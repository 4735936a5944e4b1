package http

import (
	"net/http"

	"github.com/stackpad/stackpad/internal/domain/org"
)

// CreateOrganization handles POST /api/v1/organizations.
func (h *Handlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[org.CreateRequest](w, r)
	if !ok {
		return
	}

	o, err := h.Orgs.CreateOrganization(r.Context(), p.AccountID, &req)
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// ListOrganizations handles GET /api/v1/organizations. It returns the
// caller's organizations paired with their role in each.
func (h *Handlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	list, err := h.Orgs.MemberOrganizations(r.Context(), p.AccountID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if list == nil {
		list = []org.WithRole{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetOrganization handles GET /api/v1/organizations/{id}.
func (h *Handlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	o, err := h.Orgs.GetOrganization(r.Context(), p.AccountID, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// GetOrganizationBySlug handles GET /api/v1/organizations/slug/{slug}.
func (h *Handlers) GetOrganizationBySlug(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	o, err := h.Orgs.GetOrganizationBySlug(r.Context(), p.AccountID, urlParam(r, "slug"))
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UpdateOrganization handles PUT /api/v1/organizations/{id}.
func (h *Handlers) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[org.UpdateRequest](w, r)
	if !ok {
		return
	}

	o, err := h.Orgs.UpdateOrganization(r.Context(), p.AccountID, urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// DeleteOrganization handles DELETE /api/v1/organizations/{id}.
func (h *Handlers) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.Orgs.DeleteOrganization(r.Context(), p.AccountID, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckSlug handles GET /api/v1/organizations/slug-available?slug=...
func (h *Handlers) CheckSlug(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	available, err := h.Orgs.CheckSlugAvailable(r.Context(), slug)
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slug": org.NormalizeSlug(slug), "available": available})
}

type setActiveRequest struct {
	OrganizationID *string `json:"organization_id"`
}

// SetActiveOrganization handles PUT /api/v1/me/active-organization. A null
// organization_id clears the active organization.
func (h *Handlers) SetActiveOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[setActiveRequest](w, r)
	if !ok {
		return
	}

	if err := h.Orgs.SetActiveOrganization(r.Context(), p.AccountID, req.OrganizationID); err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetActiveOrganization handles GET /api/v1/me/active-organization.
func (h *Handlers) GetActiveOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	o, err := h.Orgs.ActiveOrganization(r.Context(), p.AccountID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organization": o})
}

// MyRole handles GET /api/v1/organizations/{id}/my-role. A caller without a
// membership gets 404, consistent with the visibility rules.
func (h *Handlers) MyRole(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	role, member, err := h.Orgs.RoleOf(r.Context(), p.AccountID, urlParam(r, "id"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if !member {
		writeError(w, http.StatusNotFound, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": string(role)})
}

// ListMembers handles GET /api/v1/organizations/{id}/members.
func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	members, err := h.Orgs.ListMembers(r.Context(), p.AccountID, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	if members == nil {
		members = []org.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

// AddMember handles POST /api/v1/organizations/{id}/members.
func (h *Handlers) AddMember(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[org.AddMemberRequest](w, r)
	if !ok {
		return
	}

	m, err := h.Orgs.AddMember(r.Context(), p.AccountID, urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, err, "account not found")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// UpdateMemberRole handles PUT /api/v1/members/{id}/role.
func (h *Handlers) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[org.UpdateRoleRequest](w, r)
	if !ok {
		return
	}

	m, err := h.Orgs.UpdateMemberRole(r.Context(), p.AccountID, urlParam(r, "id"), req.Role)
	if err != nil {
		writeDomainError(w, err, "member not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// RemoveMember handles DELETE /api/v1/members/{id}.
func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.Orgs.RemoveMember(r.Context(), p.AccountID, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "member not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LeaveOrganization handles POST /api/v1/organizations/{id}/leave.
func (h *Handlers) LeaveOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.Orgs.LeaveOrganization(r.Context(), p.AccountID, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
