package handlers

import (
	"net/http"
	"strings"

	"github.com/vidshare/backend/internal/apperrors"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/response"
	"github.com/vidshare/backend/internal/services"
)

// AccountHandler implements the user and subscription endpoints.
type AccountHandler struct {
	Accounts AccountService
	Cookies  CookiePolicy
	Uploads  UploadPolicy
}

// Register handles POST /api/v1/users/register.
func (h AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form, err := h.Uploads.parse(w, r, "avatar", "coverImage")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	account, err := h.Accounts.Register(ctx, services.RegisterInput{
		Handle:     form.value("username"),
		Email:      form.value("email"),
		FullName:   form.value("fullName"),
		Password:   form.value("password"),
		AvatarPath: form.file("avatar"),
		CoverPath:  form.file("coverImage"),
	})
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	response.Created(ctx, w, account, "user registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.LoginInput
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(ctx, w, err)
		return
	}

	account, tokens, err := h.Accounts.Login(ctx, req)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	h.Cookies.setSession(w, tokens)
	response.OK(ctx, w, loginResponse{
		User:         account,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.Accounts.Logout(ctx, identity.AccountID); err != nil {
		response.Error(ctx, w, err)
		return
	}

	h.Cookies.clearSession(w)
	response.OK(ctx, w, struct{}{}, "user logged out")
}

// Refresh handles POST /api/v1/users/refresh-token. The token is read from
// the refresh cookie, falling back to the JSON body.
func (h AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var token string
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			response.Error(ctx, w, err)
			return
		}
		token = req.RefreshToken
	}

	tokens, err := h.Accounts.Refresh(ctx, token)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	h.Cookies.setSession(w, tokens)
	response.OK(ctx, w, tokens, "access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req services.ChangePasswordInput
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(ctx, w, err)
		return
	}

	if err := h.Accounts.ChangePassword(ctx, identity.AccountID, req); err != nil {
		response.Error(ctx, w, err)
		return
	}

	response.OK(ctx, w, struct{}{}, "password changed successfully")
}

type loginResponse struct {
	User         models.Account `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		response.Error(r.Context(), w, apperrors.Unauthorized("unauthorized request"))
	}
	return identity, ok
}
