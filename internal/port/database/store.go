// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/stackpad/stackpad/internal/domain/account"
	"github.com/stackpad/stackpad/internal/domain/org"
	"github.com/stackpad/stackpad/internal/domain/todo"
)

// Store is the port interface for durable storage. Implementations enforce
// the relational constraints (unique slug, unique membership pair, cascades)
// and surface violations as domain errors. Methods are primitives consumed
// by the service layer only; request handlers never reach the store without
// going through the authorization checks in the services.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, a *account.Account) error
	GetAccount(ctx context.Context, id string) (*account.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
	UpdateAccountPassword(ctx context.Context, id, passwordHash string) error

	// Organizations
	//
	// CreateOrganizationWithOwner is the atomic create-with-owner unit: it
	// inserts the organization row, the owner membership, and points the
	// creator's profile at the new organization, all in one transaction.
	// The insert itself arbitrates slug uniqueness (domain.ErrSlugTaken).
	CreateOrganizationWithOwner(ctx context.Context, o *org.Organization, ownerID string) (*org.Membership, error)
	GetOrganization(ctx context.Context, id string) (*org.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*org.Organization, error)
	UpdateOrganization(ctx context.Context, o *org.Organization) error
	DeleteOrganization(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListOrganizationsByAccount(ctx context.Context, accountID string) ([]org.WithRole, error)

	// Memberships
	GetMembership(ctx context.Context, orgID, accountID string) (*org.Membership, error)
	GetMembershipByID(ctx context.Context, id string) (*org.Membership, error)
	CreateMembership(ctx context.Context, m *org.Membership) error
	// UpdateMembershipRole changes a member's role. When the change demotes
	// an owner it locks the organization's membership rows and rejects with
	// domain.ErrNoRemainingOwner if no other owner would remain.
	UpdateMembershipRole(ctx context.Context, id string, role org.Role) (*org.Membership, error)
	// DeleteMembership removes a membership and clears the member's profile
	// pointer when it referenced the same organization, in one transaction.
	DeleteMembership(ctx context.Context, id string) error
	ListMembers(ctx context.Context, orgID string) ([]org.Member, error)
	// LeaveOrganization runs the locked leave protocol: it locks the caller's
	// own membership row, then (for owners) every membership row of the
	// organization, counts them under lock, and deletes the caller's row
	// only when the organization would not be left ownerless.
	LeaveOrganization(ctx context.Context, orgID, accountID string) error

	// Profiles
	GetProfile(ctx context.Context, accountID string) (*account.Profile, error)
	SetCurrentOrganization(ctx context.Context, accountID string, orgID *string) error

	// Todos
	CreateTodo(ctx context.Context, t *todo.Todo) error
	// GetTodoVisible resolves a todo only when the viewer may read it: a
	// member of its organization, or its creator for personal todos. The
	// visibility predicate is part of the query, not a post-filter.
	GetTodoVisible(ctx context.Context, id, viewerID string) (*todo.Todo, error)
	ListTodosVisible(ctx context.Context, viewerID string) ([]todo.Todo, error)
	ListOrganizationTodos(ctx context.Context, orgID, viewerID string) ([]todo.Todo, error)
	UpdateTodo(ctx context.Context, t *todo.Todo) error
	DeleteTodo(ctx context.Context, id string) error
}
