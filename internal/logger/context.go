package logger

import "context"

// Private key types prevent collisions with other packages' context values.
type requestIDCtxKey struct{}
type accountIDCtxKey struct{}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// RequestID extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

// accountHolder lets middleware running later in the chain (auth) publish
// the resolved account id to a request logger that wrapped the request
// earlier. It is written once before any read on the same goroutine.
type accountHolder struct {
	id string
}

// WithAccountHolder prepares the context to receive an account id.
func WithAccountHolder(ctx context.Context) context.Context {
	return context.WithValue(ctx, accountIDCtxKey{}, &accountHolder{})
}

// SetAccountID records the authenticated account id, if the context was
// prepared with WithAccountHolder. A no-op otherwise.
func SetAccountID(ctx context.Context, id string) {
	if h, ok := ctx.Value(accountIDCtxKey{}).(*accountHolder); ok {
		h.id = id
	}
}

// AccountID returns the recorded account id, or an empty string for
// anonymous requests.
func AccountID(ctx context.Context) string {
	if h, ok := ctx.Value(accountIDCtxKey{}).(*accountHolder); ok {
		return h.id
	}
	return ""
}
