package postgres

import (
	"context"
	"fmt"

	"github.com/stackpad/stackpad/internal/domain"
	"github.com/stackpad/stackpad/internal/domain/org"
)

// --- Organizations ---

// CreateOrganizationWithOwner inserts the organization, its owner
// membership, and the creator's profile pointer in one transaction. There
// is no pre-check on the slug: the unique constraint on the insert is the
// arbiter, so two concurrent creates with the same slug cannot both succeed.
func (s *Store) CreateOrganizationWithOwner(ctx context.Context, o *org.Organization, ownerID string) (*org.Membership, error) {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	err = tx.QueryRow(ctx,
		`INSERT INTO organizations (name, slug, logo_url)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		o.Name, o.Slug, o.LogoURL,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "organizations_slug_key") {
			return nil, fmt.Errorf("create organization: %w", domain.ErrSlugTaken)
		}
		return nil, fmt.Errorf("create organization: %w", err)
	}

	m := &org.Membership{OrganizationID: o.ID, AccountID: ownerID, Role: org.RoleOwner}
	err = tx.QueryRow(ctx,
		`INSERT INTO memberships (organization_id, account_id, role)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		m.OrganizationID, m.AccountID, m.Role,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("create owner membership: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("create owner membership: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO profiles (account_id, current_organization_id)
		 VALUES ($1, $2)
		 ON CONFLICT (account_id) DO UPDATE
		 SET current_organization_id = EXCLUDED.current_organization_id, updated_at = now()`,
		ownerID, o.ID,
	); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create organization: %w", err)
	}
	return m, nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*org.Organization, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, logo_url, created_at, updated_at
		 FROM organizations WHERE id = $1`, id)

	o, err := scanOrganization(row)
	if err != nil {
		return nil, notFoundWrap(err, "get organization %s", id)
	}
	return o, nil
}

func (s *Store) GetOrganizationBySlug(ctx context.Context, slug string) (*org.Organization, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, logo_url, created_at, updated_at
		 FROM organizations WHERE slug = $1`, slug)

	o, err := scanOrganization(row)
	if err != nil {
		return nil, notFoundWrap(err, "get organization by slug %s", slug)
	}
	return o, nil
}

func (s *Store) UpdateOrganization(ctx context.Context, o *org.Organization) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE organizations SET name = $2, slug = $3, logo_url = $4, updated_at = now()
		 WHERE id = $1`,
		o.ID, o.Name, o.Slug, o.LogoURL)
	if err != nil {
		if isUniqueViolation(err, "organizations_slug_key") {
			return fmt.Errorf("update organization %s: %w", o.ID, domain.ErrSlugTaken)
		}
		return fmt.Errorf("update organization %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update organization %s: %w", o.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteOrganization removes the organization. Memberships and todos cascade
// via foreign keys; profile pointers referencing it are set to NULL.
func (s *Store) DeleteOrganization(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete organization %s", id)
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE slug = $1)`, slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("slug exists %s: %w", slug, err)
	}
	return exists, nil
}

func (s *Store) ListOrganizationsByAccount(ctx context.Context, accountID string) ([]org.WithRole, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT o.id, o.name, o.slug, o.logo_url, o.created_at, o.updated_at, m.role
		 FROM organizations o
		 JOIN memberships m ON m.organization_id = o.id
		 WHERE m.account_id = $1
		 ORDER BY o.created_at ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list organizations by account: %w", err)
	}
	defer rows.Close()

	var orgs []org.WithRole
	for rows.Next() {
		var o org.WithRole
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.LogoURL, &o.CreatedAt, &o.UpdatedAt, &o.Role); err != nil {
			return nil, fmt.Errorf("scan organization with role: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func scanOrganization(row scannable) (*org.Organization, error) {
	var o org.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.LogoURL, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
