package handlers

import (
	"context"

	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/services"
)

// AccountService captures the account workflow required by the user handlers.
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (models.Account, error)
	Login(ctx context.Context, in services.LoginInput) (models.Account, models.SessionTokens, error)
	Logout(ctx context.Context, accountID string) error
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	ChangePassword(ctx context.Context, accountID string, in services.ChangePasswordInput) error
	CurrentAccount(ctx context.Context, accountID string) (models.Account, error)
	UpdateAccountDetails(ctx context.Context, accountID string, in services.AccountDetailsInput) (models.Account, error)
	UpdateAvatar(ctx context.Context, accountID, localPath string) (models.Account, error)
	UpdateCoverImage(ctx context.Context, accountID, localPath string) (models.Account, error)
	GetChannelProfile(ctx context.Context, viewerID, handle string) (models.ChannelProfile, error)
	GetWatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// PublishingService captures the video lifecycle required by the video handlers.
type PublishingService interface {
	Publish(ctx context.Context, ownerID string, in services.PublishInput) (models.Video, error)
	Update(ctx context.Context, accountID, videoID string, in services.UpdateVideoInput) (models.Video, error)
	Delete(ctx context.Context, accountID, videoID string) error
	GetByID(ctx context.Context, viewerID, videoID string) (models.Video, error)
	TogglePublishStatus(ctx context.Context, accountID, videoID string) (models.Video, error)
	List(ctx context.Context, viewerID string, in services.ListVideosInput) (models.VideoPage, error)
}

var (
	_ AccountService    = (*services.AccountService)(nil)
	_ PublishingService = (*services.PublishingService)(nil)
)
