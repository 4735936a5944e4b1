package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stackpad/stackpad/internal/domain"
	"github.com/stackpad/stackpad/internal/domain/account"
)

// --- Profiles ---

// GetProfile returns the account's profile. Accounts created before profiles
// existed may have no row yet; those get an empty profile rather than an
// error, since the profile is derivable state.
func (s *Store) GetProfile(ctx context.Context, accountID string) (*account.Profile, error) {
	var p account.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT account_id, current_organization_id, updated_at
		 FROM profiles WHERE account_id = $1`, accountID,
	).Scan(&p.AccountID, &p.CurrentOrganizationID, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &account.Profile{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", accountID, err)
	}
	return &p, nil
}

// SetCurrentOrganization points the profile at orgID, or clears the pointer
// when orgID is nil. The caller is responsible for verifying membership; the
// store only records the preference.
func (s *Store) SetCurrentOrganization(ctx context.Context, accountID string, orgID *string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (account_id, current_organization_id)
		 VALUES ($1, $2)
		 ON CONFLICT (account_id) DO UPDATE
		 SET current_organization_id = EXCLUDED.current_organization_id, updated_at = now()`,
		accountID, orgID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("set current organization account=%s: %w", accountID, domain.ErrNotFound)
		}
		return fmt.Errorf("set current organization account=%s: %w", accountID, err)
	}
	return nil
}
