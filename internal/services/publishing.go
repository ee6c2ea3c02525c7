package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/apperrors"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PublishInput is the publish form. Both paths are temp files owned by the service.
type PublishInput struct {
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description"`
	VideoPath     string `json:"-"`
	ThumbnailPath string `json:"-"`
}

// UpdateVideoInput edits a video. Empty fields keep their current value.
type UpdateVideoInput struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	ThumbnailPath string `json:"-"`
}

// ListVideosInput mirrors the listing query string.
type ListVideosInput struct {
	Page     int    `json:"page" validate:"gte=0"`
	Limit    int    `json:"limit" validate:"gte=0"`
	Query    string `json:"query"`
	SortBy   string `json:"sortBy" validate:"omitempty,oneof=createdAt updatedAt title duration views"`
	SortType string `json:"sortType" validate:"omitempty,oneof=asc desc"`
	UserID   string `json:"userId" validate:"omitempty,uuid"`
}

// PublishingService implements the video lifecycle.
type PublishingService struct {
	videos   repositories.VideoRepository
	accounts repositories.AccountRepository
	media    storage.Gateway
	validate *validator.Validate
	now      func() time.Time
}

// NewPublishingService wires the publishing workflow.
func NewPublishingService(videos repositories.VideoRepository, accounts repositories.AccountRepository, media storage.Gateway) *PublishingService {
	return &PublishingService{
		videos:   videos,
		accounts: accounts,
		media:    media,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Publish uploads the video and thumbnail and records a published video
// owned by ownerID.
func (s *PublishingService) Publish(ctx context.Context, ownerID string, in PublishInput) (_ models.Video, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.publish")
	defer func() { span.Fail(err) }()

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if err := s.validate.Struct(in); err != nil {
		storage.RemoveTempFiles(ctx, in.VideoPath, in.ThumbnailPath)
		return models.Video{}, validationError(err)
	}
	if in.VideoPath == "" || in.ThumbnailPath == "" {
		storage.RemoveTempFiles(ctx, in.VideoPath, in.ThumbnailPath)
		return models.Video{}, apperrors.BadRequest("video file and thumbnail are required")
	}

	video, err := s.media.Upload(ctx, in.VideoPath)
	if err != nil {
		storage.RemoveTempFile(ctx, in.ThumbnailPath)
		logging.FromContext(ctx).Warn("video upload failed", slog.Any("error", err))
		return models.Video{}, apperrors.BadRequest("video file upload failed")
	}

	thumbnail, err := s.media.Upload(ctx, in.ThumbnailPath)
	if err != nil {
		s.media.Delete(ctx, video.URL)
		logging.FromContext(ctx).Warn("thumbnail upload failed", slog.Any("error", err))
		return models.Video{}, apperrors.BadRequest("thumbnail upload failed")
	}

	now := s.now().UTC()
	record := models.Video{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Description:     in.Description,
		VideoURL:        video.URL,
		ThumbnailURL:    thumbnail.URL,
		DurationSeconds: video.DurationSeconds,
		OwnerID:         ownerID,
		IsPublished:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.videos.Create(ctx, record); err != nil {
		s.media.Delete(ctx, video.URL)
		s.media.Delete(ctx, thumbnail.URL)
		return models.Video{}, apperrors.Internal("something went wrong while publishing the video", err)
	}

	logging.FromContext(ctx).Info("video published", slog.String("video_id", record.ID))
	return record, nil
}

// Update edits title, description and thumbnail. A replacement thumbnail is
// uploaded and persisted before the previous one is deleted.
func (s *PublishingService) Update(ctx context.Context, accountID, videoID string, in UpdateVideoInput) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "videos.update")
	defer span.End()

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" && in.Description == "" && in.ThumbnailPath == "" {
		return models.Video{}, apperrors.BadRequest("title, description or thumbnail is required")
	}

	existing, err := s.loadOwned(ctx, accountID, videoID)
	if err != nil {
		storage.RemoveTempFile(ctx, in.ThumbnailPath)
		return models.Video{}, err
	}

	changes := existing
	if in.Title != "" {
		changes.Title = in.Title
	}
	if in.Description != "" {
		changes.Description = in.Description
	}

	var uploaded string
	if in.ThumbnailPath != "" {
		thumbnail, err := s.media.Upload(ctx, in.ThumbnailPath)
		if err != nil {
			return models.Video{}, apperrors.Internal("thumbnail upload failed", err)
		}
		uploaded = thumbnail.URL
		changes.ThumbnailURL = uploaded
	}

	updated, err := s.videos.Update(ctx, changes)
	if err != nil {
		if uploaded != "" {
			s.media.Delete(ctx, uploaded)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperrors.NotFound("video not found")
		}
		return models.Video{}, apperrors.Internal("update video", err)
	}

	if uploaded != "" && existing.ThumbnailURL != "" && existing.ThumbnailURL != uploaded {
		s.media.Delete(ctx, existing.ThumbnailURL)
	}
	return updated, nil
}

// Delete removes both remote assets and then the record.
func (s *PublishingService) Delete(ctx context.Context, accountID, videoID string) error {
	ctx, span := logging.StartSpan(ctx, "videos.delete")
	defer span.End()

	video, err := s.loadOwned(ctx, accountID, videoID)
	if err != nil {
		return err
	}

	s.media.Delete(ctx, video.ThumbnailURL)
	s.media.Delete(ctx, video.VideoURL)

	if err := s.videos.Delete(ctx, video.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("video not found")
		}
		logging.FromContext(ctx).Error("video record left after remote delete",
			slog.String("video_id", video.ID), slog.Any("error", err))
		return apperrors.Internal("delete video", err)
	}
	return nil
}

// GetByID returns a video and records it in the viewer's watch history.
// Unpublished videos are only visible to their owner.
func (s *PublishingService) GetByID(ctx context.Context, viewerID, videoID string) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "videos.get")
	defer span.End()

	video, err := s.load(ctx, videoID)
	if err != nil {
		return models.Video{}, err
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return models.Video{}, apperrors.NotFound("video not found")
	}

	if viewerID != "" {
		if err := s.accounts.AppendWatchHistory(ctx, viewerID, video.ID); err != nil {
			return models.Video{}, apperrors.Internal("record watch history", err)
		}
	}
	return video, nil
}

// TogglePublishStatus flips the published flag of an owned video.
func (s *PublishingService) TogglePublishStatus(ctx context.Context, accountID, videoID string) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "videos.toggle_publish")
	defer span.End()

	video, err := s.loadOwned(ctx, accountID, videoID)
	if err != nil {
		return models.Video{}, err
	}

	updated, err := s.videos.SetPublished(ctx, video.ID, !video.IsPublished)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperrors.NotFound("video not found")
		}
		return models.Video{}, apperrors.Internal("toggle publish status", err)
	}
	return updated, nil
}

// List returns one page of videos visible to viewerID.
func (s *PublishingService) List(ctx context.Context, viewerID string, in ListVideosInput) (models.VideoPage, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.VideoPage{}, validationError(err)
	}

	query := models.VideoQuery{
		Page:      in.Page,
		Limit:     in.Limit,
		Search:    strings.TrimSpace(in.Query),
		SortBy:    models.VideoSort(in.SortBy),
		Ascending: in.SortType == "asc",
		OwnerID:   in.UserID,
		ViewerID:  viewerID,
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = defaultPageSize
	}
	if query.Limit > maxPageSize {
		query.Limit = maxPageSize
	}
	if query.SortBy == "" {
		query.SortBy = models.SortCreatedAt
	}

	page, err := s.videos.List(ctx, query)
	if err != nil {
		return models.VideoPage{}, apperrors.Internal("list videos", err)
	}
	return page, nil
}

func (s *PublishingService) load(ctx context.Context, videoID string) (models.Video, error) {
	if _, err := uuid.Parse(videoID); err != nil {
		return models.Video{}, apperrors.BadRequest("invalid video id")
	}
	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperrors.NotFound("video not found")
		}
		return models.Video{}, apperrors.Internal("find video", err)
	}
	return video, nil
}

func (s *PublishingService) loadOwned(ctx context.Context, accountID, videoID string) (models.Video, error) {
	video, err := s.load(ctx, videoID)
	if err != nil {
		return models.Video{}, err
	}
	if err := requireOwner(video, accountID); err != nil {
		return models.Video{}, err
	}
	return video, nil
}
