package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackpad/stackpad/internal/domain"
	"github.com/stackpad/stackpad/internal/domain/account"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Accounts ---

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		a.Email, a.Name, a.PasswordHash,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "accounts_email_key") {
			return fmt.Errorf("create account: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*account.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM accounts WHERE id = $1`, id)

	a, err := scanAccount(row)
	if err != nil {
		return nil, notFoundWrap(err, "get account %s", id)
	}
	return a, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM accounts WHERE email = $1`, email)

	a, err := scanAccount(row)
	if err != nil {
		return nil, notFoundWrap(err, "get account by email")
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (s *Store) UpdateAccountPassword(ctx context.Context, id, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
	return execExpectOne(tag, err, "update account password %s", id)
}

func scanAccount(row scannable) (*account.Account, error) {
	var a account.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// begin starts a transaction with a rollback-on-return guard. The returned
// cleanup is a no-op after commit.
func (s *Store) begin(ctx context.Context) (pgx.Tx, func(), error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, func() { _ = tx.Rollback(ctx) }, nil
}
