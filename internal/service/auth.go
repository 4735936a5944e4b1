// Package service contains StackPad's application services: identity,
// organizations and membership, and tenant-scoped todos. Services are the
// only consumers of the store port; request handlers never reach the store
// without passing through the authorization checks here.
package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stackpad/stackpad/internal/adapter/otel"
	"github.com/stackpad/stackpad/internal/config"
	"github.com/stackpad/stackpad/internal/domain"
	"github.com/stackpad/stackpad/internal/domain/account"
	"github.com/stackpad/stackpad/internal/port/database"
)

// AuthService handles registration, login, and bearer token validation.
type AuthService struct {
	store   database.Store
	cfg     *config.Auth
	metrics *otel.Metrics
	secret  []byte
}

// NewAuthService creates a new authentication service. metrics may be nil.
func NewAuthService(store database.Store, cfg *config.Auth, m *otel.Metrics) *AuthService {
	return &AuthService{
		store:   store,
		cfg:     cfg,
		metrics: m,
		secret:  []byte(cfg.JWTSecret),
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req *account.RegisterRequest) (*account.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	a := &account.Account{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		PasswordHash: string(hash),
	}

	if err := s.store.CreateAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

// Login authenticates an account and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, req *account.LoginRequest) (*account.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	a, err := s.store.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.recordLoginFailure(ctx)
			return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		s.recordLoginFailure(ctx)
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	}

	token, err := s.signJWT(a)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}

	return &account.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.cfg.TokenTTL.Seconds()),
		Account:     *a,
	}, nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.LoginFailures.Add(ctx, 1)
	}
}

// ChangePassword verifies the current password and stores a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, current, updated string) error {
	if len(updated) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}

	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(current)); err != nil {
		return fmt.Errorf("%w: current password does not match", domain.ErrUnauthenticated)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(updated), s.cfg.BCryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdateAccountPassword(ctx, accountID, string(hash))
}

// GetAccount returns an account by ID.
func (s *AuthService) GetAccount(ctx context.Context, id string) (*account.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// ListAccounts returns all registered accounts. Admin CLI only.
func (s *AuthService) ListAccounts(ctx context.Context) ([]account.Account, error) {
	return s.store.ListAccounts(ctx)
}

// AdminResetPassword overwrites an account's password without checking the
// current one. Admin CLI only; never exposed over HTTP.
func (s *AuthService) AdminResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}

	a, err := s.store.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BCryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdateAccountPassword(ctx, a.ID, string(hash))
}

// ValidateToken verifies a bearer token and returns its claims.
func (s *AuthService) ValidateToken(tokenStr string) (*account.TokenClaims, error) {
	parts := strings.SplitN(tokenStr, ".", 3)
	if len(parts) != 3 {
		return nil, errors.New("malformed token")
	}

	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	expectedSig := base64URLEncode(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[2]), []byte(expectedSig)) {
		return nil, errors.New("invalid signature")
	}

	payload, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var claims account.TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	if time.Now().Unix() > claims.Expiry {
		return nil, errors.New("token expired")
	}
	if claims.Audience != s.cfg.Audience {
		return nil, errors.New("invalid token audience")
	}
	if claims.Issuer != s.cfg.Issuer {
		return nil, errors.New("invalid token issuer")
	}

	return &claims, nil
}

// jwtHeader is the fixed base64url-encoded header for HS256.
var jwtHeader = base64URLEncode([]byte(`{"alg":"HS256","typ":"JWT"}`))

func (s *AuthService) signJWT(a *account.Account) (string, error) {
	now := time.Now()
	claims := account.TokenClaims{
		AccountID: a.ID,
		Email:     a.Email,
		Name:      a.Name,
		IssuedAt:  now.Unix(),
		Expiry:    now.Add(s.cfg.TokenTTL).Unix(),
		Audience:  s.cfg.Audience,
		Issuer:    s.cfg.Issuer,
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	payloadB64 := base64URLEncode(payload)
	signingInput := jwtHeader + "." + payloadB64

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	sig := base64URLEncode(mac.Sum(nil))

	return signingInput + "." + sig, nil
}

func base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func base64URLDecode(s string) ([]byte, error) {
	// Add padding back
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}
