package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidshare/backend/internal/apperrors"
	"github.com/vidshare/backend/internal/response"
	"github.com/vidshare/backend/internal/services"
)

// VideoHandler provides the video publishing and browsing endpoints.
type VideoHandler struct {
	Videos  PublishingService
	Uploads UploadPolicy
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	page, err := queryInt(query.Get("page"), "page")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	limit, err := queryInt(query.Get("limit"), "limit")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	result, err := h.Videos.List(ctx, identity.AccountID, services.ListVideosInput{
		Page:     page,
		Limit:    limit,
		Query:    query.Get("query"),
		SortBy:   query.Get("sortBy"),
		SortType: strings.ToLower(query.Get("sortType")),
		UserID:   query.Get("userId"),
	})
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.OK(ctx, w, result, "videos fetched successfully")
}

// Publish handles POST /api/v1/videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	form, err := h.Uploads.parse(w, r, "videoFile", "thumbnail")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	video, err := h.Videos.Publish(ctx, identity.AccountID, services.PublishInput{
		Title:         form.value("title"),
		Description:   form.value("description"),
		VideoPath:     form.file("videoFile"),
		ThumbnailPath: form.file("thumbnail"),
	})
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.Created(ctx, w, video, "video published successfully")
}

// Get handles GET /api/v1/videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	video, err := h.Videos.GetByID(ctx, identity.AccountID, chi.URLParam(r, "videoId"))
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.OK(ctx, w, video, "video fetched successfully")
}

// Update handles PATCH /api/v1/videos/{videoId}. It accepts a multipart form
// with an optional thumbnail, or a JSON body when only text changes.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var in services.UpdateVideoInput
	if isMultipart(r) {
		form, err := h.Uploads.parse(w, r, "thumbnail")
		if err != nil {
			response.Error(ctx, w, err)
			return
		}
		in = services.UpdateVideoInput{
			Title:         form.value("title"),
			Description:   form.value("description"),
			ThumbnailPath: form.file("thumbnail"),
		}
	} else if err := decodeJSON(w, r, &in); err != nil {
		response.Error(ctx, w, err)
		return
	}

	video, err := h.Videos.Update(ctx, identity.AccountID, chi.URLParam(r, "videoId"), in)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.OK(ctx, w, video, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.Videos.Delete(ctx, identity.AccountID, chi.URLParam(r, "videoId")); err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.OK(ctx, w, struct{}{}, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	video, err := h.Videos.TogglePublishStatus(ctx, identity.AccountID, chi.URLParam(r, "videoId"))
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.OK(ctx, w, video, "publish status toggled successfully")
}

func queryInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, apperrors.BadRequest(name + " must be a non-negative integer")
	}
	return value, nil
}
