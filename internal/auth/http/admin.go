package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shophub/auth/internal/auth/service"
	"github.com/shophub/auth/internal/auth/store"
	"github.com/shophub/auth/pkg/httpx"
	"github.com/shophub/auth/pkg/slogx"

	"github.com/getsentry/sentry-go"
)

// ActionDeleteAccount is the step-up action name for account deletion.
const ActionDeleteAccount = "DELETE_ACCOUNT"

// AdminHandler serves the privileged endpoints. All of them sit behind the
// admin role requirement; the destructive ones additionally demand a
// step-up confirmation token minted via Confirm.
type AdminHandler struct {
	SessionService *service.SessionService
	StepUpService  *service.StepUpService
	AuditService   *service.AuditService
	Store          store.Store
}

type confirmRequest struct {
	Action string `json:"action"`
}

type confirmResponse struct {
	Token     string    `json:"token"`
	Action    string    `json:"action"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Confirm godoc
//
//	@Summary		Mint a step-up confirmation token
//	@Description	Issues a short-lived single-use token bound to the calling admin and the
//	@Description	named action. The token must be spent on the matching destructive endpoint
//	@Description	within five minutes.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		confirmRequest	true	"Action to confirm"
//	@Success		201		{object}	confirmResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/admin/confirm [post].
func (h *AdminHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := httpx.PrincipalFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		httpx.WriteError(w, http.StatusBadRequest, "action is required")
		return
	}

	token, err := h.StepUpService.Create(ctx, p.AccountID, req.Action)
	if err != nil {
		sentry.CaptureException(err)
		log.Error("step-up token creation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.AuditService.Record(ctx, p.AccountID, "STEP_UP_CONFIRM", "action:"+req.Action, r.RemoteAddr)

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, confirmResponse{
		Token:     token.ID,
		Action:    token.Action,
		ExpiresAt: token.ExpiresAt,
	})
}

// DeleteAccount godoc
//
//	@Summary		Delete an account
//	@Description	Deletes the account and its refresh credential. Requires a step-up
//	@Description	confirmation token for the DELETE_ACCOUNT action, passed as token_id.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path	string	true	"Account id"
//	@Param			token_id	query	string	true	"Step-up confirmation token"
//	@Success		204
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Failure		403	{object}	httpx.ErrorResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Failure		500	{object}	httpx.ErrorResponse
//	@Router			/v1/admin/accounts/{id} [delete].
func (h *AdminHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := httpx.PrincipalFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	accountID := r.PathValue("id")
	tokenID := strings.TrimSpace(r.URL.Query().Get("token_id"))

	if err := h.StepUpService.Verify(ctx, tokenID, p.AccountID, ActionDeleteAccount); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			httpx.WriteError(w, http.StatusForbidden, "confirmation required")
			return
		}
		sentry.CaptureException(err)
		log.Error("step-up verification failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if _, err := h.Store.Accounts().GetAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "account not found")
			return
		}
		sentry.CaptureException(err)
		log.Error("account lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Refresh tokens go with the account via FK cascade, but the explicit
	// delete keeps the behavior independent of the schema.
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().DeleteRefreshTokensByAccount(ctx, accountID); err != nil {
			return err
		}
		return tx.Accounts().DeleteAccount(ctx, accountID)
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Error("account deletion failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.AuditService.Record(ctx, p.AccountID, ActionDeleteAccount, "account:"+accountID, r.RemoteAddr)

	w.WriteHeader(http.StatusNoContent)
}

type auditListResponse struct {
	Entries []auditEntryResponse `json:"entries"`
}

type auditEntryResponse struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	SourceAddr string    `json:"source_addr"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListAudit godoc
//
//	@Summary		List recent audit entries
//	@Description	Returns the most recent privileged actions, newest first.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int	false	"Maximum entries to return (default 100)"
//	@Success		200		{object}	auditListResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/admin/audit [get].
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.AuditService.List(ctx, limit)
	if err != nil {
		sentry.CaptureException(err)
		log.Error("audit listing failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := auditListResponse{Entries: make([]auditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, auditEntryResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			Action:     e.Action,
			Resource:   e.Resource,
			SourceAddr: e.SourceAddr,
			CreatedAt:  e.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
