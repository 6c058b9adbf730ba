package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shophub/auth/internal/auth/domain"
	"github.com/shophub/auth/internal/auth/service"
	"github.com/shophub/auth/pkg/httpx"
	"github.com/shophub/auth/pkg/slogx"

	"github.com/getsentry/sentry-go"
)

// AuthHandler serves the credential and session lifecycle endpoints.
type AuthHandler struct {
	SessionService *service.SessionService
	AuditService   *service.AuditService
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register godoc
//
//	@Summary		Register a new customer account
//	@Description	Creates a customer account with the given name, email and password.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		registerRequest	true	"Account details"
//	@Success		201		{object}	registerResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		409		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		httpx.WriteError(w, http.StatusBadRequest, "name, email and a password of at least 8 characters are required")
		return
	}

	// Admin accounts are provisioned out of band; this endpoint only mints
	// customers.
	account, err := h.SessionService.Register(ctx, req.Name, req.Email, req.Password, domain.RoleCustomer)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteError(w, http.StatusConflict, "email already registered")
		default:
			sentry.CaptureException(err)
			log.Error("register failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, registerResponse{
		ID:    account.ID,
		Name:  account.Name,
		Email: account.Email,
		Role:  string(account.Role),
	})
}

// Login godoc
//
//	@Summary		Log in with email and password
//	@Description	Verifies credentials and issues an access/refresh token pair. Repeated
//	@Description	failures lock the account temporarily; locked accounts are rejected with 423.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	tokenResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		423		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.SessionService.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			// Unknown email and wrong password share one shape.
			httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAccountLocked):
			httpx.WriteError(w, http.StatusLocked, "account temporarily locked")
		default:
			sentry.CaptureException(err)
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	httpx.NoCache(w)
	writeTokenPair(w, pair)
}

// Refresh godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Redeems the refresh token and returns a brand-new token pair. The presented
//	@Description	token is consumed; reusing it fails.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		refreshRequest	true	"Refresh token"
//	@Success		200		{object}	tokenResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.SessionService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefresh):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		default:
			sentry.CaptureException(err)
			log.Error("refresh failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	httpx.NoCache(w)
	writeTokenPair(w, pair)
}

// Logout godoc
//
//	@Summary		Log out
//	@Description	Revokes the refresh token. Blank or unknown tokens are accepted silently;
//	@Description	logout always succeeds.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body	refreshRequest	false	"Refresh token"
//	@Success		204
//	@Failure		500	{object}	httpx.ErrorResponse
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// A missing or malformed body is treated the same as a blank token.
	var req refreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.SessionService.Logout(ctx, req.RefreshToken); err != nil {
		sentry.CaptureException(err)
		log.Error("logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
}

// Me godoc
//
//	@Summary		Current principal
//	@Description	Returns the authenticated principal derived from the access token.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	meResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Router			/v1/auth/me [get].
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{AccountID: p.AccountID, Role: p.Role})
}

// tokenResponse mirrors domain.TokenPair but reports the access lifetime in
// whole seconds, which is what clients expect from an expires_in field.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func writeTokenPair(w http.ResponseWriter, pair *domain.TokenPair) {
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}
