package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shophub/auth/internal/auth/domain"
	"github.com/shophub/auth/internal/auth/service"
	"github.com/shophub/auth/internal/auth/store/drivers/sqlite"
	"github.com/shophub/auth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	key := make([]byte, 64)
	_, err = rand.Read(key)
	require.NoError(t, err)

	codec, err := jwtx.NewCodec(key, "shophub-test")
	require.NoError(t, err)

	sessions := &service.SessionService{
		Codec:      codec,
		Store:      st,
		Lockout:    service.DefaultLockoutPolicy(),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter("test", st, logger)
	r.SessionService = sessions
	r.StepUpService = &service.StepUpService{Store: st}
	r.AuditService = &service.AuditService{Store: st}
	r.ApplyRoutes()
	return r
}

func doJSON(t *testing.T, r *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, r *Router, email string, role domain.Role) tokenResponse {
	t.Helper()

	_, err := r.SessionService.Register(context.Background(), "Test Account", email, "correct horse battery", role)
	require.NoError(t, err)
	return login(t, r, email)
}

func login(t *testing.T, r *Router, email string) tokenResponse {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	return pair
}

func TestRegisterLoginMeFlow(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Customer",
		"email":    "customer@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "customer", created.Role)

	pair := login(t, r, "customer@example.com")
	require.Equal(t, "Bearer", pair.TokenType)

	rec = doJSON(t, r, http.MethodGet, "/v1/auth/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, created.ID, me.AccountID)
	require.Equal(t, "customer", me.Role)
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name":     "Short",
		"email":    "short@example.com",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailuresLockAccount(t *testing.T) {
	r := newTestRouter(t)

	registerAndLogin(t, r, "lockme@example.com", domain.RoleCustomer)

	for i := 0; i < 5; i++ {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email":    "lockme@example.com",
			"password": "wrong password",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// Locked now, even with the correct password.
	rec := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "lockme@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusLocked, rec.Code)
}

func TestLoginUnknownEmailSameShapeAsWrongPassword(t *testing.T) {
	r := newTestRouter(t)

	registerAndLogin(t, r, "known@example.com", domain.RoleCustomer)

	unknown := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "unknown@example.com",
		"password": "whatever",
	})
	wrong := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "known@example.com",
		"password": "wrong password",
	})

	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.JSONEq(t, unknown.Body.String(), wrong.Body.String())
}

func TestRefreshEndpointRotates(t *testing.T) {
	r := newTestRouter(t)

	pair := registerAndLogin(t, r, "rotate@example.com", domain.RoleCustomer)

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var rotated tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// Reuse of the consumed token fails.
	rec = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutIdempotentOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	pair := registerAndLogin(t, r, "bye@example.com", domain.RoleCustomer)

	// Empty body is fine.
	rec := doJSON(t, r, http.MethodPost, "/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/auth/logout", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Again, same token: still 204.
	rec = doJSON(t, r, http.MethodPost, "/v1/auth/logout", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/v1/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/auth/me", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSecondAdminLoginInvalidatesFirstToken(t *testing.T) {
	r := newTestRouter(t)

	first := registerAndLogin(t, r, "admin@example.com", domain.RoleAdmin)

	// The first session works.
	rec := doJSON(t, r, http.MethodGet, "/v1/admin/audit", first.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	second := login(t, r, "admin@example.com")

	// The first token is structurally valid and unexpired, but its session
	// marker was superseded by the second login.
	rec = doJSON(t, r, http.MethodGet, "/v1/admin/audit", first.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/admin/audit", second.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutInvalidatesAdminAccessToken(t *testing.T) {
	r := newTestRouter(t)

	pair := registerAndLogin(t, r, "admin-bye@example.com", domain.RoleAdmin)

	rec := doJSON(t, r, http.MethodGet, "/v1/admin/audit", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, "/v1/auth/logout", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Logout cleared the session marker, so the unexpired access token no
	// longer authenticates.
	rec = doJSON(t, r, http.MethodGet, "/v1/admin/audit", pair.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminEndpointsRejectCustomers(t *testing.T) {
	r := newTestRouter(t)

	pair := registerAndLogin(t, r, "plain@example.com", domain.RoleCustomer)

	rec := doJSON(t, r, http.MethodGet, "/v1/admin/audit", pair.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/admin/confirm", pair.AccessToken, map[string]string{
		"action": ActionDeleteAccount,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteAccountRequiresStepUp(t *testing.T) {
	r := newTestRouter(t)

	admin := registerAndLogin(t, r, "root@example.com", domain.RoleAdmin)
	victim, err := r.SessionService.Register(context.Background(), "Victim", "victim@example.com", "correct horse battery", domain.RoleCustomer)
	require.NoError(t, err)

	// No confirmation token: rejected.
	rec := doJSON(t, r, http.MethodDelete, "/v1/admin/accounts/"+victim.ID, admin.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Mint a confirmation token.
	rec = doJSON(t, r, http.MethodPost, "/v1/admin/confirm", admin.AccessToken, map[string]string{
		"action": ActionDeleteAccount,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var confirm confirmResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirm))
	require.NotEmpty(t, confirm.Token)

	// Spend it.
	rec = doJSON(t, r, http.MethodDelete, "/v1/admin/accounts/"+victim.ID+"?token_id="+confirm.Token, admin.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// The account is gone and the token is spent.
	rec = doJSON(t, r, http.MethodDelete, "/v1/admin/accounts/"+victim.ID+"?token_id="+confirm.Token, admin.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// The deletion landed in the audit log.
	rec = doJSON(t, r, http.MethodGet, "/v1/admin/audit", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var audit auditListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &audit))
	require.NotEmpty(t, audit.Entries)

	var found bool
	for _, e := range audit.Entries {
		if e.Action == ActionDeleteAccount && e.Resource == "account:"+victim.ID {
			found = true
		}
	}
	require.True(t, found)
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
