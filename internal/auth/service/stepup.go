package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shophub/auth/internal/auth/domain"
	"github.com/shophub/auth/internal/auth/store"
	"github.com/shophub/auth/pkg/slogx"

	"github.com/google/uuid"
)

// DefaultStepUpTTL is how long a step-up confirmation token stays
// redeemable after issuance.
const DefaultStepUpTTL = 5 * time.Minute

var ErrUnauthorized = errors.New("unauthorized")

// StepUpService issues and redeems the short-lived single-use confirmation
// tokens that gate destructive admin operations. Holding a valid admin
// access token is not enough for those; the admin must first confirm the
// specific action and spend the resulting token within the window.
type StepUpService struct {
	Store store.Store
	TTL   time.Duration

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

func (s *StepUpService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *StepUpService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultStepUpTTL
}

// Create mints a confirmation token bound to the issuing admin and the
// named action.
func (s *StepUpService) Create(ctx context.Context, issuerID, action string) (domain.StepUpToken, error) {
	token := domain.StepUpToken{
		ID:        uuid.NewString(),
		IssuerID:  issuerID,
		Action:    action,
		ExpiresAt: s.now().Add(s.ttl()),
	}
	if err := s.Store.StepUpTokens().CreateStepUpToken(ctx, token); err != nil {
		return domain.StepUpToken{}, err
	}
	return token, nil
}

// Verify redeems a confirmation token for the given caller and action.
// Every failure mode collapses to ErrUnauthorized for the caller; the
// distinction only shows up in logs. The token is consumed on success, so a
// second redemption fails even for the rightful issuer.
func (s *StepUpService) Verify(ctx context.Context, tokenID, callerID, action string) error {
	now := s.now()
	l := slogx.FromContext(ctx)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		token, err := tx.StepUpTokens().GetStepUpToken(ctx, tokenID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}

		if token.Used {
			return ErrUnauthorized
		}

		if token.IssuerID != callerID {
			l.Warn("step-up token presented by non-issuer",
				slog.String("token_id", tokenID),
				slog.String("issuer_id", token.IssuerID),
				slog.String("caller_id", callerID))
			return ErrUnauthorized
		}

		if token.Action != action {
			return ErrUnauthorized
		}

		if token.Expired(now) {
			return ErrUnauthorized
		}

		// Conditional flip; if someone raced us to it, they win and we fail
		// closed.
		if err := tx.StepUpTokens().MarkStepUpTokenUsed(ctx, tokenID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}

		return nil
	})
}
