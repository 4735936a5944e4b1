package service

import (
	"context"
	"fmt"

	"github.com/stackpad/stackpad/internal/domain"
	"github.com/stackpad/stackpad/internal/domain/todo"
	"github.com/stackpad/stackpad/internal/port/database"
)

// TodoService applies the row-scoping rules to the tenant-scoped todo
// resource. Every rule is built from the membership predicates; there is no
// privileged bypass for any call path.
type TodoService struct {
	store database.Store
	orgs  *OrgService
}

// NewTodoService creates a TodoService.
func NewTodoService(store database.Store, orgs *OrgService) *TodoService {
	return &TodoService{store: store, orgs: orgs}
}

// Create makes a new todo. An organization todo requires membership in that
// organization; a personal todo only requires the caller to be its creator.
func (s *TodoService) Create(ctx context.Context, principalID string, req *todo.CreateRequest) (*todo.Todo, error) {
	if principalID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.OrganizationID != nil {
		ok, err := s.orgs.IsMember(ctx, principalID, *req.OrganizationID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("create todo in %s: %w", *req.OrganizationID, domain.ErrNotAuthorized)
		}
	}

	t := &todo.Todo{
		OrganizationID: req.OrganizationID,
		CreatorID:      principalID,
		Title:          req.Title,
		Body:           req.Body,
	}
	if err := s.store.CreateTodo(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns a todo the caller may read. Invisible rows surface as
// ErrNotFound, indistinguishable from absent ones.
func (s *TodoService) Get(ctx context.Context, principalID, id string) (*todo.Todo, error) {
	return s.store.GetTodoVisible(ctx, id, principalID)
}

// List returns everything visible to the caller: their personal todos plus
// the todos of every organization they belong to.
func (s *TodoService) List(ctx context.Context, principalID string) ([]todo.Todo, error) {
	return s.store.ListTodosVisible(ctx, principalID)
}

// ListForOrganization returns an organization's todos, provided the caller
// is a member.
func (s *TodoService) ListForOrganization(ctx context.Context, principalID, orgID string) ([]todo.Todo, error) {
	ok, err := s.orgs.IsMember(ctx, principalID, orgID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("list todos of %s: %w", orgID, domain.ErrNotFound)
	}
	return s.store.ListOrganizationTodos(ctx, orgID, principalID)
}

// Update patches a todo. Only the creator may update, and only while they
// can still see the row. Re-parenting the todo to a different organization
// additionally requires admin rights on both the old and the new
// organization; this guard runs on every update, regardless of call path.
func (s *TodoService) Update(ctx context.Context, principalID, id string, req *todo.UpdateRequest) (*todo.Todo, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.store.GetTodoVisible(ctx, id, principalID)
	if err != nil {
		return nil, err
	}
	if t.CreatorID != principalID {
		return nil, fmt.Errorf("update todo %s: %w", id, domain.ErrNotAuthorized)
	}

	if req.OrganizationID != nil || req.MoveToPersonal {
		var newOrg *string
		if req.OrganizationID != nil {
			newOrg = req.OrganizationID
		}
		if err := s.reparentGuard(ctx, principalID, t.OrganizationID, newOrg); err != nil {
			return nil, err
		}
		t.OrganizationID = newOrg
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Body != nil {
		t.Body = *req.Body
	}
	if req.Done != nil {
		t.Done = *req.Done
	}

	if err := s.store.UpdateTodo(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// reparentGuard rejects an organization change unless the caller is admin
// of both sides. A nil side (personal) imposes no admin requirement of its
// own; the creator check already gates it.
func (s *TodoService) reparentGuard(ctx context.Context, principalID string, oldOrg, newOrg *string) error {
	if equalOrg(oldOrg, newOrg) {
		return nil
	}
	for _, ref := range []*string{oldOrg, newOrg} {
		if ref == nil {
			continue
		}
		ok, err := s.orgs.IsAdmin(ctx, principalID, *ref)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("re-parent todo to %s: %w", *ref, domain.ErrNotAuthorized)
		}
	}
	return nil
}

func equalOrg(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Delete removes a todo. Allowed for the creator (when the row is visible
// to them) or for an admin of the todo's organization.
func (s *TodoService) Delete(ctx context.Context, principalID, id string) error {
	t, err := s.store.GetTodoVisible(ctx, id, principalID)
	if err != nil {
		return err
	}

	allowed := t.CreatorID == principalID
	if !allowed && t.OrganizationID != nil {
		ok, aerr := s.orgs.IsAdmin(ctx, principalID, *t.OrganizationID)
		if aerr != nil {
			return aerr
		}
		allowed = ok
	}
	if !allowed {
		return fmt.Errorf("delete todo %s: %w", id, domain.ErrNotAuthorized)
	}

	return s.store.DeleteTodo(ctx, id)
}
