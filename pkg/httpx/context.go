package httpx

import "context"

// Principal is the authenticated caller attached to a request's context.
// It is a value, set once by the authenticator and never mutated after;
// handlers receive a copy and cannot affect each other's view of it.
type Principal struct {
	AccountID string
	Role      string
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated principal, if any. ok is false for
// unauthenticated requests, which still reach public handlers.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
