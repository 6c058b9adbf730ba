package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/shophub/auth/pkg/jwtx"
	"github.com/shophub/auth/pkg/slogx"
)

// TokenDecoder validates a raw bearer token of the expected kind.
type TokenDecoder interface {
	DecodeKind(raw, kind string) (jwtx.Claims, error)
}

// AdminSessionSource resolves the live admin session marker for an account.
// ok is false when the account no longer exists; a non-nil error means the
// lookup itself failed and must not be read as "credential invalid".
type AdminSessionSource interface {
	ActiveAdminSession(ctx context.Context, accountID string) (marker string, ok bool, err error)
}

// Authenticator validates bearer tokens per request.
//
// No Authorization header means the request proceeds unauthenticated, so
// public endpoints stay reachable. A header that is present but does not
// verify aborts the request: a malformed or expired token is positive
// evidence of a bad credential, not the absence of one. Admin access tokens
// additionally require their session claim to equal the account's live
// marker; a mismatch is logged distinctly for audit but produces the same
// 401 on the wire as any other auth failure.
func Authenticator(dec TokenDecoder, sessions AdminSessionSource) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := dec.DecodeKind(raw, jwtx.KindAccess)
			if err != nil {
				log.Warn("bearer token rejected")
				writeAuthFailure(w)
				return
			}

			if claims.Role == jwtx.RoleAdmin {
				marker, found, err := sessions.ActiveAdminSession(ctx, claims.Subject)
				if err != nil {
					log.Error("admin session lookup failed", "err", err)
					WriteError(w, http.StatusInternalServerError, "internal error")
					return
				}
				if !found || marker == "" || claims.Session != marker {
					// Superseded admin session. Logged with its own reason;
					// the response body stays identical to other failures.
					log.Warn("admin session invalidated", "account_id", claims.Subject)
					writeAuthFailure(w)
					return
				}
			}

			principal := Principal{AccountID: claims.Subject, Role: claims.Role}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

// RequireAuthenticated rejects requests that carry no principal.
func RequireAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFrom(r.Context()); !ok {
				writeAuthFailure(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects requests whose principal is missing or holds a
// different role.
func RequireRole(role string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeAuthFailure(w)
				return
			}
			if p.Role != role {
				WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the bearer token from the Authorization header.
// The scheme match is case-insensitive and surrounding whitespace is
// ignored. ok is false when no bearer credential was offered.
func BearerToken(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return "", false
	}

	const scheme = "bearer "
	if len(authz) < len(scheme) || !strings.EqualFold(authz[:len(scheme)], scheme) {
		return "", false
	}

	token := strings.TrimSpace(authz[len(scheme):])
	if token == "" {
		return "", false
	}
	return token, true
}

// writeAuthFailure is the single 401 shape for every authentication
// failure. No claim-level detail, no lockout timing, no account existence.
func writeAuthFailure(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteError(w, http.StatusUnauthorized, "invalid or expired token")
}
