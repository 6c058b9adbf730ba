package service

import (
	"context"
	"testing"
	"time"

	"github.com/shophub/auth/internal/auth/domain"
	"github.com/shophub/auth/internal/auth/store/drivers/sqlite"
	"github.com/shophub/auth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStepUpService(t *testing.T) (*StepUpService, *testClock, domain.Account) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	admin := domain.Account{
		ID:           idx.New().String(),
		Name:         "Admin",
		Email:        "admin@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleAdmin,
	}
	require.NoError(t, st.Accounts().CreateAccount(context.Background(), admin))

	clock := &testClock{now: time.Now().UTC()}
	svc := &StepUpService{
		Store: st,
		Now:   clock.Now,
	}
	return svc, clock, admin
}

func TestStepUpVerifyConsumesToken(t *testing.T) {
	ctx := context.Background()
	svc, _, admin := newStepUpService(t)

	token, err := svc.Create(ctx, admin.ID, "DELETE_ACCOUNT")
	require.NoError(t, err)
	require.NotEmpty(t, token.ID)

	require.NoError(t, svc.Verify(ctx, token.ID, admin.ID, "DELETE_ACCOUNT"))

	// Spent, even for the rightful issuer.
	err = svc.Verify(ctx, token.ID, admin.ID, "DELETE_ACCOUNT")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestStepUpVerifyRejectsNonIssuer(t *testing.T) {
	ctx := context.Background()
	svc, _, admin := newStepUpService(t)

	token, err := svc.Create(ctx, admin.ID, "DELETE_ACCOUNT")
	require.NoError(t, err)

	err = svc.Verify(ctx, token.ID, "someone-else", "DELETE_ACCOUNT")
	require.ErrorIs(t, err, ErrUnauthorized)

	// The failed attempt did not consume the token.
	require.NoError(t, svc.Verify(ctx, token.ID, admin.ID, "DELETE_ACCOUNT"))
}

func TestStepUpVerifyRejectsWrongAction(t *testing.T) {
	ctx := context.Background()
	svc, _, admin := newStepUpService(t)

	token, err := svc.Create(ctx, admin.ID, "DELETE_ACCOUNT")
	require.NoError(t, err)

	err = svc.Verify(ctx, token.ID, admin.ID, "PURGE_ORDERS")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestStepUpVerifyRejectsExpired(t *testing.T) {
	ctx := context.Background()
	svc, clock, admin := newStepUpService(t)

	token, err := svc.Create(ctx, admin.ID, "DELETE_ACCOUNT")
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)

	err = svc.Verify(ctx, token.ID, admin.ID, "DELETE_ACCOUNT")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestStepUpVerifyUnknownToken(t *testing.T) {
	ctx := context.Background()
	svc, _, admin := newStepUpService(t)

	err := svc.Verify(ctx, "no-such-token", admin.ID, "DELETE_ACCOUNT")
	require.ErrorIs(t, err, ErrUnauthorized)
}
