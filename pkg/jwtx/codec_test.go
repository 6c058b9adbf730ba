package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte(strings.Repeat("0123456789abcdef", 4)) // 64 bytes
}

func TestNewCodec_RejectsShortKeys(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 32, 63} {
		_, err := NewCodec(make([]byte, n), "shophub")
		require.ErrorIs(t, err, ErrKeyTooShort)
	}

	c, err := NewCodec(testKey(), "shophub")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestIssueDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	c, err := NewCodec(testKey(), "shophub")
	require.NoError(t, err)

	t.Run("customer access token has no session claim", func(t *testing.T) {
		raw, err := c.Issue("acct-1", "customer", KindAccess, time.Minute, "")
		require.NoError(t, err)

		claims, err := c.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, "acct-1", claims.Subject)
		require.Equal(t, "customer", claims.Role)
		require.Equal(t, KindAccess, claims.Kind)
		require.Empty(t, claims.Session)
	})

	t.Run("admin access token carries session marker", func(t *testing.T) {
		raw, err := c.Issue("acct-2", "admin", KindAccess, time.Minute, "sess-abc")
		require.NoError(t, err)

		claims, err := c.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, "sess-abc", claims.Session)
	})

	t.Run("refresh token round-trips", func(t *testing.T) {
		raw, err := c.Issue("acct-3", "customer", KindRefresh, time.Hour, "")
		require.NoError(t, err)

		claims, err := c.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, KindRefresh, claims.Kind)
	})
}

func TestIssue_UsesInjectedClock(t *testing.T) {
	t.Parallel()

	c, err := NewCodec(testKey(), "shophub")
	require.NoError(t, err)

	fixed := time.Now().Add(42 * time.Minute).Truncate(time.Second)
	c.Now = func() time.Time { return fixed }

	raw, err := c.Issue("acct-1", "customer", KindAccess, time.Minute, "")
	require.NoError(t, err)

	claims, err := c.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, fixed.UTC(), claims.IssuedAt.Time.UTC())
	require.Equal(t, fixed.Add(time.Minute).UTC(), claims.ExpiresAt.Time.UTC())
}

func TestDecode_Failures(t *testing.T) {
	t.Parallel()

	c, err := NewCodec(testKey(), "shophub")
	require.NoError(t, err)

	t.Run("malformed input", func(t *testing.T) {
		for _, raw := range []string{"", "garbage", "a.b.c"} {
			_, err := c.Decode(raw)
			require.ErrorIs(t, err, ErrInvalidToken)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		raw, err := c.Issue("acct-1", "customer", KindAccess, -time.Minute, "")
		require.NoError(t, err)

		_, err = c.Decode(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered payload", func(t *testing.T) {
		raw, err := c.Issue("acct-1", "customer", KindAccess, time.Minute, "")
		require.NoError(t, err)

		parts := strings.Split(raw, ".")
		require.Len(t, parts, 3)
		parts[1] = parts[1][:len(parts[1])-2] + "xx"

		_, err = c.Decode(strings.Join(parts, "."))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other, err := NewCodec([]byte(strings.Repeat("x", 64)), "shophub")
		require.NoError(t, err)

		raw, err := other.Issue("acct-1", "customer", KindAccess, time.Minute, "")
		require.NoError(t, err)

		_, err = c.Decode(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewCodec(testKey(), "someone-else")
		require.NoError(t, err)

		raw, err := other.Issue("acct-1", "customer", KindAccess, time.Minute, "")
		require.NoError(t, err)

		_, err = c.Decode(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestDecodeKind(t *testing.T) {
	t.Parallel()

	c, err := NewCodec(testKey(), "shophub")
	require.NoError(t, err)

	refresh, err := c.Issue("acct-1", "customer", KindRefresh, time.Hour, "")
	require.NoError(t, err)

	_, err = c.DecodeKind(refresh, KindRefresh)
	require.NoError(t, err)

	// A refresh token presented where an access token is expected must be
	// indistinguishable from any other invalid token.
	_, err = c.DecodeKind(refresh, KindAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}
