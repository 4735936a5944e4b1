// Package account defines the principal domain model: the authenticated
// identity and its per-account profile.
package account

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/stackpad/stackpad/internal/domain"
)

// Account represents a registered principal. The ID is the stable opaque
// identifier every authorization decision keys on.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialized
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile holds per-account denormalized state. CurrentOrganizationID is a
// cache of the account's active organization, cleared reactively when the
// referenced membership is deleted. It is never a source of truth for
// authorization.
type Profile struct {
	AccountID             string    `json:"account_id"`
	CurrentOrganizationID *string   `json:"current_organization_id,omitempty"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// RegisterRequest is the input for creating a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the RegisterRequest has all required fields.
func (r *RegisterRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("%w: invalid email format", domain.ErrValidation)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}
	return nil
}

// LoginRequest is the input for authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if r.Password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	return nil
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	AccessToken string  `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresIn   int     `json:"expires_in"`   // seconds until the access token expires
	Account     Account `json:"account"`
}

// TokenClaims contains the JWT payload fields.
type TokenClaims struct {
	AccountID string `json:"sub"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	IssuedAt  int64  `json:"iat"`
	Expiry    int64  `json:"exp"`
	Audience  string `json:"aud"`
	Issuer    string `json:"iss"`
}
