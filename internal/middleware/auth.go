package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/stackpad/stackpad/internal/domain/account"
	"github.com/stackpad/stackpad/internal/logger"
)

type principalCtxKey struct{}

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*account.TokenClaims, error)
}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":               true,
	"/health/ready":         true,
	"/api/v1/auth/register": true,
	"/api/v1/auth/login":    true,
}

// Auth returns middleware that validates bearer tokens and stores the
// authenticated principal in the request context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// WebSocket auth via ?token= query parameter, since browsers
			// cannot set headers on WebSocket requests.
			token := ""
			if r.URL.Path == "/ws" {
				token = r.URL.Query().Get("token")
			} else {
				authHeader := r.Header.Get("Authorization")
				token = strings.TrimPrefix(authHeader, "Bearer ")
				if token == authHeader {
					token = ""
				}
			}
			if token == "" {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			p := &Principal{
				AccountID: claims.AccountID,
				Email:     claims.Email,
				Name:      claims.Name,
			}
			ctx := context.WithValue(r.Context(), principalCtxKey{}, p)
			logger.SetAccountID(ctx, p.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Principal is the authenticated caller stored in the request context.
type Principal struct {
	AccountID string
	Email     string
	Name      string
}

// PrincipalFromContext returns the authenticated principal, or nil when the
// request was not authenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*Principal)
	return p
}

// WithPrincipal stores a principal in the context. Exported for handler tests.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}
