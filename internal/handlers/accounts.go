package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/response"
	"github.com/vidshare/backend/internal/services"
)

// CurrentUser handles GET /api/v1/users/current-user.
func (h AccountHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	account, err := h.Accounts.CurrentAccount(ctx, identity.AccountID)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.OK(ctx, w, account, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req services.AccountDetailsInput
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(ctx, w, err)
		return
	}

	account, err := h.Accounts.UpdateAccountDetails(ctx, identity.AccountID, req)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.OK(ctx, w, account, "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Accounts.UpdateAvatar, "avatar image updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h AccountHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Accounts.UpdateCoverImage, "cover image updated successfully")
}

func (h AccountHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, accountID, localPath string) (models.Account, error),
	message string,
) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	form, err := h.Uploads.parse(w, r, field)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	account, err := update(ctx, identity.AccountID, form.file(field))
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.OK(ctx, w, account, message)
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h AccountHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	profile, err := h.Accounts.GetChannelProfile(ctx, identity.AccountID, chi.URLParam(r, "username"))
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.OK(ctx, w, profile, "user channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history.
func (h AccountHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	history, err := h.Accounts.GetWatchHistory(ctx, identity.AccountID)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if history == nil {
		history = []models.WatchedVideo{}
	}
	response.OK(ctx, w, history, "watch history fetched successfully")
}

// ToggleSubscription handles POST /api/v1/subscriptions/c/{channelId}.
func (h AccountHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	subscribed, err := h.Accounts.ToggleSubscription(ctx, identity.AccountID, chi.URLParam(r, "channelId"))
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	response.OK(ctx, w, map[string]bool{"subscribed": subscribed}, message)
}
