package repositories

import (
	"context"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/models"
)

// AccountRepository defines the data access contract for accounts. It also
// persists the single active refresh token of each account.
type AccountRepository interface {
	auth.RefreshTokenStore

	Create(ctx context.Context, account models.NewAccount) error
	FindByID(ctx context.Context, id string) (models.Account, error)
	// FindByHandleOrEmail matches either field; empty arguments never match.
	FindByHandleOrEmail(ctx context.Context, handle, email string) (models.Account, error)
	UpdatePassword(ctx context.Context, id, password string) error
	UpdateDetails(ctx context.Context, id string, details models.AccountDetails) (models.Account, error)
	UpdateAvatar(ctx context.Context, id, url string) (models.Account, error)
	UpdateCoverImage(ctx context.Context, id, url string) (models.Account, error)

	AppendWatchHistory(ctx context.Context, accountID, videoID string) error
	WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error)
	ChannelProfile(ctx context.Context, handle, viewerID string) (models.ChannelProfile, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// VideoRepository exposes data access for published media.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) (models.Video, error)
	SetPublished(ctx context.Context, id string, published bool) (models.Video, error)
	// Delete removes the video and every watch-history reference to it.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error)
}

var (
	_ AccountRepository = (*PostgresAccountRepository)(nil)
	_ VideoRepository   = (*PostgresVideoRepository)(nil)
	_ AccountRepository = (*MemoryAccountRepository)(nil)
	_ VideoRepository   = (*MemoryVideoRepository)(nil)
)
