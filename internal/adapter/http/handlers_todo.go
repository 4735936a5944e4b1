package http

import (
	"net/http"

	"github.com/stackpad/stackpad/internal/domain/todo"
)

// CreateTodo handles POST /api/v1/todos.
func (h *Handlers) CreateTodo(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[todo.CreateRequest](w, r)
	if !ok {
		return
	}

	t, err := h.Todos.Create(r.Context(), p.AccountID, &req)
	if err != nil {
		writeDomainError(w, err, "todo not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTodos handles GET /api/v1/todos: everything visible to the caller.
func (h *Handlers) ListTodos(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	list, err := h.Todos.List(r.Context(), p.AccountID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if list == nil {
		list = []todo.Todo{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ListOrganizationTodos handles GET /api/v1/organizations/{id}/todos.
func (h *Handlers) ListOrganizationTodos(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	list, err := h.Todos.ListForOrganization(r.Context(), p.AccountID, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	if list == nil {
		list = []todo.Todo{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetTodo handles GET /api/v1/todos/{id}.
func (h *Handlers) GetTodo(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	t, err := h.Todos.Get(r.Context(), p.AccountID, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "todo not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTodo handles PUT /api/v1/todos/{id}.
func (h *Handlers) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[todo.UpdateRequest](w, r)
	if !ok {
		return
	}

	t, err := h.Todos.Update(r.Context(), p.AccountID, urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, err, "todo not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTodo handles DELETE /api/v1/todos/{id}.
func (h *Handlers) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.Todos.Delete(r.Context(), p.AccountID, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "todo not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
