package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stackpad/stackpad/internal/domain"
	"github.com/stackpad/stackpad/internal/domain/org"
)

// --- Memberships ---

func (s *Store) GetMembership(ctx context.Context, orgID, accountID string) (*org.Membership, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, organization_id, account_id, role, created_at, updated_at
		 FROM memberships WHERE organization_id = $1 AND account_id = $2`,
		orgID, accountID)

	m, err := scanMembership(row)
	if err != nil {
		return nil, notFoundWrap(err, "get membership org=%s account=%s", orgID, accountID)
	}
	return m, nil
}

func (s *Store) GetMembershipByID(ctx context.Context, id string) (*org.Membership, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, organization_id, account_id, role, created_at, updated_at
		 FROM memberships WHERE id = $1`, id)

	m, err := scanMembership(row)
	if err != nil {
		return nil, notFoundWrap(err, "get membership %s", id)
	}
	return m, nil
}

// CreateMembership inserts a membership row. The unique pair constraint is
// the arbiter for duplicate membership; there is no prior existence check.
//
// The insert first takes a key-share lock on the organization row, which
// conflicts with the exclusive lock held by an in-flight leave or delete.
// Once through, the owner count runs on a fresh snapshot: an organization
// that has just lost its last member does not accept new ones, so a join
// racing a final leave cannot produce an ownerless organization.
func (s *Store) CreateMembership(ctx context.Context, m *org.Membership) error {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	var locked int
	err = tx.QueryRow(ctx,
		`SELECT 1 FROM organizations WHERE id = $1 FOR KEY SHARE`,
		m.OrganizationID,
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("create membership org=%s: %w", m.OrganizationID, domain.ErrNotFound)
		}
		return fmt.Errorf("lock organization %s: %w", m.OrganizationID, err)
	}

	var owners int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM memberships WHERE organization_id = $1 AND role = $2`,
		m.OrganizationID, org.RoleOwner,
	).Scan(&owners)
	if err != nil {
		return fmt.Errorf("count owners org=%s: %w", m.OrganizationID, err)
	}
	if owners == 0 {
		return fmt.Errorf("create membership org=%s: %w", m.OrganizationID, domain.ErrNotFound)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO memberships (organization_id, account_id, role)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		m.OrganizationID, m.AccountID, m.Role,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "memberships_org_account_key") {
			return fmt.Errorf("create membership: %w", domain.ErrAlreadyMember)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("create membership: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create membership: %w", err)
	}

	return tx.Commit(ctx)
}

// UpdateMembershipRole changes the role of a membership. Demoting an owner
// locks the organization's membership rows first and counts the remaining
// owners under that lock, so two concurrent demotions cannot both pass the
// last-owner check.
func (s *Store) UpdateMembershipRole(ctx context.Context, id string, role org.Role) (*org.Membership, error) {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	row := tx.QueryRow(ctx,
		`SELECT id, organization_id, account_id, role, created_at, updated_at
		 FROM memberships WHERE id = $1 FOR UPDATE`, id)
	m, err := scanMembership(row)
	if err != nil {
		return nil, notFoundWrap(err, "update membership role %s", id)
	}

	if m.Role == org.RoleOwner && role != org.RoleOwner {
		var owners int
		err := tx.QueryRow(ctx,
			`SELECT count(*) FROM (
			   SELECT id FROM memberships
			   WHERE organization_id = $1 AND role = $2
			   FOR UPDATE
			 ) locked`,
			m.OrganizationID, org.RoleOwner,
		).Scan(&owners)
		if err != nil {
			return nil, fmt.Errorf("count owners org=%s: %w", m.OrganizationID, err)
		}
		if owners <= 1 {
			return nil, fmt.Errorf("demote membership %s: %w", id, domain.ErrNoRemainingOwner)
		}
	}

	err = tx.QueryRow(ctx,
		`UPDATE memberships SET role = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`, id, role,
	).Scan(&m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update membership role %s: %w", id, err)
	}
	m.Role = role

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit role update: %w", err)
	}
	return m, nil
}

// DeleteMembership removes a membership and, in the same transaction, clears
// the member's profile pointer when it referenced the organization they were
// removed from.
func (s *Store) DeleteMembership(ctx context.Context, id string) error {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	var orgID, accountID string
	err = tx.QueryRow(ctx,
		`DELETE FROM memberships WHERE id = $1
		 RETURNING organization_id, account_id`, id,
	).Scan(&orgID, &accountID)
	if err != nil {
		return notFoundWrap(err, "delete membership %s", id)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE profiles SET current_organization_id = NULL, updated_at = now()
		 WHERE account_id = $1 AND current_organization_id = $2`,
		accountID, orgID,
	); err != nil {
		return fmt.Errorf("clear profile pointer account=%s: %w", accountID, err)
	}

	return tx.Commit(ctx)
}

func (s *Store) ListMembers(ctx context.Context, orgID string) ([]org.Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.organization_id, m.account_id, m.role, m.created_at, m.updated_at,
		        a.email, a.name
		 FROM memberships m
		 JOIN accounts a ON a.id = m.account_id
		 WHERE m.organization_id = $1
		 ORDER BY m.created_at ASC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members org=%s: %w", orgID, err)
	}
	defer rows.Close()

	var members []org.Member
	for rows.Next() {
		var m org.Member
		err := rows.Scan(&m.ID, &m.OrganizationID, &m.AccountID, &m.Role,
			&m.CreatedAt, &m.UpdatedAt, &m.Email, &m.Name)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// LeaveOrganization removes the caller's own membership under row locks.
//
// The organization row is locked exclusively first, which serializes this
// transaction against concurrent membership inserts (their foreign key
// takes a key-share lock on the same row). The caller's membership row is
// locked next; if it does not exist the caller was never a member. When the caller is an owner, every membership
// row of the organization is then locked and the remaining owners counted
// under that lock. An owner may leave while another owner remains, or when
// nobody else does; a sole owner with other members must transfer ownership
// first. Locking all rows (not just owners) serializes leave against
// concurrent role changes in the same organization.
func (s *Store) LeaveOrganization(ctx context.Context, orgID, accountID string) error {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	// Row locks on memberships do not stop a concurrent insert from
	// joining someone mid-leave. Every membership insert references this
	// organization row through its foreign key, so taking it exclusively
	// makes joins wait until the owner count below has been acted on.
	var locked int
	err = tx.QueryRow(ctx,
		`SELECT 1 FROM organizations WHERE id = $1 FOR UPDATE`, orgID,
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("leave org=%s: %w", orgID, domain.ErrNotFound)
		}
		return fmt.Errorf("lock organization %s: %w", orgID, err)
	}

	var membershipID string
	var role org.Role
	err = tx.QueryRow(ctx,
		`SELECT id, role FROM memberships
		 WHERE organization_id = $1 AND account_id = $2
		 FOR UPDATE`,
		orgID, accountID,
	).Scan(&membershipID, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("leave org=%s account=%s: %w", orgID, accountID, domain.ErrNotAMember)
		}
		return fmt.Errorf("leave org=%s account=%s: %w", orgID, accountID, err)
	}

	if role == org.RoleOwner {
		var owners, total int
		err := tx.QueryRow(ctx,
			`SELECT count(*) FILTER (WHERE role = $2), count(*) FROM (
			   SELECT role FROM memberships
			   WHERE organization_id = $1
			   FOR UPDATE
			 ) locked`,
			orgID, org.RoleOwner,
		).Scan(&owners, &total)
		if err != nil {
			return fmt.Errorf("count memberships org=%s: %w", orgID, err)
		}
		// The last owner may only walk away from an otherwise empty
		// organization; anyone left behind needs an owner.
		if owners <= 1 && total > 1 {
			return fmt.Errorf("leave org=%s: %w", orgID, domain.ErrMustTransferOwnership)
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM memberships WHERE id = $1`, membershipID,
	); err != nil {
		return fmt.Errorf("delete membership %s: %w", membershipID, err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE profiles SET current_organization_id = NULL, updated_at = now()
		 WHERE account_id = $1 AND current_organization_id = $2`,
		accountID, orgID,
	); err != nil {
		return fmt.Errorf("clear profile pointer account=%s: %w", accountID, err)
	}

	return tx.Commit(ctx)
}

func scanMembership(row scannable) (*org.Membership, error) {
	var m org.Membership
	err := row.Scan(&m.ID, &m.OrganizationID, &m.AccountID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
