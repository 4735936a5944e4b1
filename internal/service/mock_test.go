package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stackpad/stackpad/internal/domain"
	"github.com/stackpad/stackpad/internal/domain/account"
	"github.com/stackpad/stackpad/internal/domain/org"
	"github.com/stackpad/stackpad/internal/domain/todo"
	"github.com/stackpad/stackpad/internal/port/database"
)

// Ensure mockStore implements database.Store at compile time.
var _ database.Store = (*mockStore)(nil)

// mockStore is an in-memory implementation of database.Store for testing.
// It mirrors the relational behavior of the real store: slug and membership
// uniqueness, the remaining-owner guards, the profile-pointer clears, and
// the visibility predicate on todos.
type mockStore struct {
	accounts    []account.Account
	orgs        []org.Organization
	memberships []org.Membership
	profiles    map[string]*string // accountID -> current org pointer
	todos       []todo.Todo

	seq int

	// Error hooks — set these to inject failures.
	getMembershipErr error
	createTodoErr    error
}

func newMockStore() *mockStore {
	return &mockStore{profiles: map[string]*string{}}
}

func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// --- Accounts ---

func (m *mockStore) CreateAccount(_ context.Context, a *account.Account) error {
	for i := range m.accounts {
		if m.accounts[i].Email == a.Email {
			return fmt.Errorf("create account: %w", domain.ErrConflict)
		}
	}
	a.ID = m.nextID("acct")
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.accounts = append(m.accounts, *a)
	return nil
}

func (m *mockStore) GetAccount(_ context.Context, id string) (*account.Account, error) {
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			a := m.accounts[i]
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) GetAccountByEmail(_ context.Context, email string) (*account.Account, error) {
	for i := range m.accounts {
		if m.accounts[i].Email == email {
			a := m.accounts[i]
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
}

func (m *mockStore) ListAccounts(_ context.Context) ([]account.Account, error) {
	return m.accounts, nil
}

func (m *mockStore) UpdateAccountPassword(_ context.Context, id, passwordHash string) error {
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			m.accounts[i].PasswordHash = passwordHash
			return nil
		}
	}
	return fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
}

// --- Organizations ---

func (m *mockStore) CreateOrganizationWithOwner(_ context.Context, o *org.Organization, ownerID string) (*org.Membership, error) {
	for i := range m.orgs {
		if m.orgs[i].Slug == o.Slug {
			return nil, fmt.Errorf("create organization: %w", domain.ErrSlugTaken)
		}
	}
	found := false
	for i := range m.accounts {
		if m.accounts[i].ID == ownerID {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("account %s: %w", ownerID, domain.ErrNotFound)
	}

	o.ID = m.nextID("org")
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	m.orgs = append(m.orgs, *o)

	mem := org.Membership{
		ID:             m.nextID("mem"),
		OrganizationID: o.ID,
		AccountID:      ownerID,
		Role:           org.RoleOwner,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.CreatedAt,
	}
	m.memberships = append(m.memberships, mem)

	id := o.ID
	m.profiles[ownerID] = &id
	return &mem, nil
}

func (m *mockStore) GetOrganization(_ context.Context, id string) (*org.Organization, error) {
	for i := range m.orgs {
		if m.orgs[i].ID == id {
			o := m.orgs[i]
			return &o, nil
		}
	}
	return nil, fmt.Errorf("organization %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) GetOrganizationBySlug(_ context.Context, slug string) (*org.Organization, error) {
	for i := range m.orgs {
		if m.orgs[i].Slug == slug {
			o := m.orgs[i]
			return &o, nil
		}
	}
	return nil, fmt.Errorf("organization %s: %w", slug, domain.ErrNotFound)
}

func (m *mockStore) UpdateOrganization(_ context.Context, o *org.Organization) error {
	for i := range m.orgs {
		if m.orgs[i].Slug == o.Slug && m.orgs[i].ID != o.ID {
			return fmt.Errorf("update organization: %w", domain.ErrSlugTaken)
		}
	}
	for i := range m.orgs {
		if m.orgs[i].ID == o.ID {
			m.orgs[i] = *o
			return nil
		}
	}
	return fmt.Errorf("organization %s: %w", o.ID, domain.ErrNotFound)
}

func (m *mockStore) DeleteOrganization(_ context.Context, id string) error {
	idx := -1
	for i := range m.orgs {
		if m.orgs[i].ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("organization %s: %w", id, domain.ErrNotFound)
	}
	m.orgs = append(m.orgs[:idx], m.orgs[idx+1:]...)

	// Cascades, as the schema would.
	kept := m.memberships[:0]
	for _, mem := range m.memberships {
		if mem.OrganizationID != id {
			kept = append(kept, mem)
		}
	}
	m.memberships = kept
	keptTodos := m.todos[:0]
	for _, t := range m.todos {
		if t.OrganizationID == nil || *t.OrganizationID != id {
			keptTodos = append(keptTodos, t)
		}
	}
	m.todos = keptTodos
	for acct, ptr := range m.profiles {
		if ptr != nil && *ptr == id {
			m.profiles[acct] = nil
		}
	}
	return nil
}

func (m *mockStore) SlugExists(_ context.Context, slug string) (bool, error) {
	for i := range m.orgs {
		if m.orgs[i].Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) ListOrganizationsByAccount(_ context.Context, accountID string) ([]org.WithRole, error) {
	var out []org.WithRole
	for _, mem := range m.memberships {
		if mem.AccountID != accountID {
			continue
		}
		for i := range m.orgs {
			if m.orgs[i].ID == mem.OrganizationID {
				out = append(out, org.WithRole{Organization: m.orgs[i], Role: mem.Role})
			}
		}
	}
	return out, nil
}

// --- Memberships ---

func (m *mockStore) GetMembership(_ context.Context, orgID, accountID string) (*org.Membership, error) {
	if m.getMembershipErr != nil {
		return nil, m.getMembershipErr
	}
	for i := range m.memberships {
		if m.memberships[i].OrganizationID == orgID && m.memberships[i].AccountID == accountID {
			mem := m.memberships[i]
			return &mem, nil
		}
	}
	return nil, fmt.Errorf("membership: %w", domain.ErrNotFound)
}

func (m *mockStore) GetMembershipByID(_ context.Context, id string) (*org.Membership, error) {
	for i := range m.memberships {
		if m.memberships[i].ID == id {
			mem := m.memberships[i]
			return &mem, nil
		}
	}
	return nil, fmt.Errorf("membership %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) CreateMembership(_ context.Context, mem *org.Membership) error {
	for i := range m.memberships {
		if m.memberships[i].OrganizationID == mem.OrganizationID && m.memberships[i].AccountID == mem.AccountID {
			return fmt.Errorf("create membership: %w", domain.ErrAlreadyMember)
		}
	}
	// An organization without an owner no longer accepts members.
	if m.countOwners(mem.OrganizationID) == 0 {
		return fmt.Errorf("create membership org=%s: %w", mem.OrganizationID, domain.ErrNotFound)
	}
	mem.ID = m.nextID("mem")
	mem.CreatedAt = time.Now()
	mem.UpdatedAt = mem.CreatedAt
	m.memberships = append(m.memberships, *mem)
	return nil
}

func (m *mockStore) countOwners(orgID string) int {
	n := 0
	for i := range m.memberships {
		if m.memberships[i].OrganizationID == orgID && m.memberships[i].Role == org.RoleOwner {
			n++
		}
	}
	return n
}

func (m *mockStore) UpdateMembershipRole(_ context.Context, id string, role org.Role) (*org.Membership, error) {
	for i := range m.memberships {
		if m.memberships[i].ID != id {
			continue
		}
		if m.memberships[i].Role == org.RoleOwner && role != org.RoleOwner &&
			m.countOwners(m.memberships[i].OrganizationID) <= 1 {
			return nil, fmt.Errorf("update membership role: %w", domain.ErrNoRemainingOwner)
		}
		m.memberships[i].Role = role
		m.memberships[i].UpdatedAt = time.Now()
		mem := m.memberships[i]
		return &mem, nil
	}
	return nil, fmt.Errorf("membership %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) DeleteMembership(_ context.Context, id string) error {
	for i := range m.memberships {
		if m.memberships[i].ID != id {
			continue
		}
		mem := m.memberships[i]
		m.memberships = append(m.memberships[:i], m.memberships[i+1:]...)
		if ptr := m.profiles[mem.AccountID]; ptr != nil && *ptr == mem.OrganizationID {
			m.profiles[mem.AccountID] = nil
		}
		return nil
	}
	return fmt.Errorf("membership %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) ListMembers(_ context.Context, orgID string) ([]org.Member, error) {
	var out []org.Member
	for _, mem := range m.memberships {
		if mem.OrganizationID != orgID {
			continue
		}
		member := org.Member{Membership: mem}
		for i := range m.accounts {
			if m.accounts[i].ID == mem.AccountID {
				member.Email = m.accounts[i].Email
				member.Name = m.accounts[i].Name
			}
		}
		out = append(out, member)
	}
	return out, nil
}

func (m *mockStore) LeaveOrganization(_ context.Context, orgID, accountID string) error {
	idx := -1
	for i := range m.memberships {
		if m.memberships[i].OrganizationID == orgID && m.memberships[i].AccountID == accountID {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("leave organization: %w", domain.ErrNotAMember)
	}
	if m.memberships[idx].Role == org.RoleOwner && m.countOwners(orgID) <= 1 {
		total := 0
		for i := range m.memberships {
			if m.memberships[i].OrganizationID == orgID {
				total++
			}
		}
		if total > 1 {
			return fmt.Errorf("leave organization: %w", domain.ErrMustTransferOwnership)
		}
	}
	m.memberships = append(m.memberships[:idx], m.memberships[idx+1:]...)
	if ptr := m.profiles[accountID]; ptr != nil && *ptr == orgID {
		m.profiles[accountID] = nil
	}
	return nil
}

// --- Profiles ---

func (m *mockStore) GetProfile(_ context.Context, accountID string) (*account.Profile, error) {
	return &account.Profile{AccountID: accountID, CurrentOrganizationID: m.profiles[accountID]}, nil
}

func (m *mockStore) SetCurrentOrganization(_ context.Context, accountID string, orgID *string) error {
	m.profiles[accountID] = orgID
	return nil
}

// --- Todos ---

func (m *mockStore) CreateTodo(_ context.Context, t *todo.Todo) error {
	if m.createTodoErr != nil {
		return m.createTodoErr
	}
	t.ID = m.nextID("todo")
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.todos = append(m.todos, *t)
	return nil
}

// visible mirrors the store's row-scoping predicate: organization todos are
// visible to members, personal todos only to their creator.
func (m *mockStore) visible(t *todo.Todo, viewerID string) bool {
	if t.OrganizationID == nil {
		return t.CreatorID == viewerID
	}
	for i := range m.memberships {
		if m.memberships[i].OrganizationID == *t.OrganizationID && m.memberships[i].AccountID == viewerID {
			return true
		}
	}
	return false
}

func (m *mockStore) GetTodoVisible(_ context.Context, id, viewerID string) (*todo.Todo, error) {
	for i := range m.todos {
		if m.todos[i].ID == id && m.visible(&m.todos[i], viewerID) {
			t := m.todos[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("todo %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) ListTodosVisible(_ context.Context, viewerID string) ([]todo.Todo, error) {
	var out []todo.Todo
	for i := range m.todos {
		if m.visible(&m.todos[i], viewerID) {
			out = append(out, m.todos[i])
		}
	}
	return out, nil
}

func (m *mockStore) ListOrganizationTodos(_ context.Context, orgID, viewerID string) ([]todo.Todo, error) {
	var out []todo.Todo
	for i := range m.todos {
		t := &m.todos[i]
		if t.OrganizationID != nil && *t.OrganizationID == orgID && m.visible(t, viewerID) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateTodo(_ context.Context, t *todo.Todo) error {
	for i := range m.todos {
		if m.todos[i].ID == t.ID {
			t.UpdatedAt = time.Now()
			m.todos[i] = *t
			return nil
		}
	}
	return fmt.Errorf("todo %s: %w", t.ID, domain.ErrNotFound)
}

func (m *mockStore) DeleteTodo(_ context.Context, id string) error {
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos = append(m.todos[:i], m.todos[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("todo %s: %w", id, domain.ErrNotFound)
}
