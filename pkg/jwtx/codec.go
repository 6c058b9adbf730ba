// Package jwtx implements the bearer-token codec for the auth service:
// compact HS512-signed tokens carrying the subject, role and token kind,
// plus the admin session marker when one applies.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyBytes is the minimum amount of signing-key material accepted.
// HS512 loses its security margin with anything shorter.
const MinKeyBytes = 64

// Token kinds embedded in the "type" claim. Access tokens authenticate
// requests; refresh tokens exist only to be exchanged at the refresh
// endpoint and are rejected everywhere else.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Role values embedded in the "role" claim.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var (
	// ErrKeyTooShort reports insufficient signing-key entropy. Raised at
	// construction so a misconfigured service refuses to boot.
	ErrKeyTooShort = errors.New("jwtx: signing key must be at least 64 bytes")

	// ErrInvalidToken covers every decode failure: bad signature, malformed
	// input, expired, wrong kind. Callers never learn which, so the token
	// endpoint cannot be used as a validation oracle.
	ErrInvalidToken = errors.New("jwtx: invalid token")
)

// Claims are the claims embedded in every token this service signs.
type Claims struct {
	jwt.RegisteredClaims

	// Role of the subject: "customer" or "admin".
	Role string `json:"role,omitempty"`

	// Kind distinguishes access from refresh tokens.
	Kind string `json:"type"`

	// Session carries the account's active admin session marker. Set only on
	// access tokens issued to admins; its value must still match the live
	// account record at request time.
	Session string `json:"session,omitempty"`
}

// Codec signs and verifies bearer tokens with a single process-wide
// symmetric key.
type Codec struct {
	key    []byte
	issuer string

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

// NewCodec builds a Codec, rejecting key material below MinKeyBytes.
func NewCodec(key []byte, issuer string) (*Codec, error) {
	if len(key) < MinKeyBytes {
		return nil, ErrKeyTooShort
	}
	return &Codec{key: key, issuer: issuer}, nil
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Issue signs a token for subject with the given role, kind and lifetime.
// session is carried only when non-empty (admin access tokens).
func (c *Codec) Issue(subject, role, kind string, ttl time.Duration, session string) (string, error) {
	now := c.now().UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:    role,
		Kind:    kind,
		Session: session,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.key)
}

// Decode verifies signature, expiry and issuer and returns the claims.
// Every failure mode maps to ErrInvalidToken.
func (c *Codec) Decode(raw string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	if claims.Subject == "" || (claims.Kind != KindAccess && claims.Kind != KindRefresh) {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// DecodeKind is Decode plus a kind check, for call sites that only ever
// accept one kind of token.
func (c *Codec) DecodeKind(raw, kind string) (Claims, error) {
	claims, err := c.Decode(raw)
	if err != nil {
		return Claims{}, err
	}
	if claims.Kind != kind {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
