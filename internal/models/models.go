package models

import "time"

// Account represents a registered channel on the platform. The password hash
// and the current refresh token never leave the service.
type Account struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatar"`
	CoverURL     string    `json:"coverImage"`
	RefreshToken string    `json:"-"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewAccount carries the fields required to create an account. Password is
// plaintext; the repository hashes it on write.
type NewAccount struct {
	ID        string
	Handle    string
	Email     string
	FullName  string
	Password  string
	AvatarURL string
	CoverURL  string
	CreatedAt time.Time
}

// AccountDetails is a partial update of the public account fields. Nil
// pointers are left untouched.
type AccountDetails struct {
	FullName *string
	Email    *string
}

// Video is a published media item.
type Video struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoURL        string    `json:"videoFile"`
	ThumbnailURL    string    `json:"thumbnail"`
	DurationSeconds float64   `json:"duration"`
	Views           int64     `json:"views"`
	OwnerID         string    `json:"owner"`
	IsPublished     bool      `json:"isPublished"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// OwnerSummary is the minimal projection of an account embedded in other views.
type OwnerSummary struct {
	FullName  string `json:"fullName"`
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatar"`
}

// WatchedVideo is a watch-history entry joined with its owner.
type WatchedVideo struct {
	Video
	Owner OwnerSummary `json:"owner"`
}

// ChannelProfile is the public view of a channel with subscription statistics.
type ChannelProfile struct {
	ID                string `json:"id"`
	Handle            string `json:"handle"`
	FullName          string `json:"fullName"`
	Email             string `json:"email"`
	AvatarURL         string `json:"avatar"`
	CoverURL          string `json:"coverImage"`
	SubscribersCount  int64  `json:"subscribersCount"`
	SubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
	IsOwner           bool   `json:"isOwner"`
}

// VideoSort enumerates the listing sort keys.
type VideoSort string

const (
	SortCreatedAt VideoSort = "createdAt"
	SortUpdatedAt VideoSort = "updatedAt"
	SortTitle     VideoSort = "title"
	SortDuration  VideoSort = "duration"
	SortViews     VideoSort = "views"
)

// VideoQuery filters and paginates the video listing.
type VideoQuery struct {
	Page      int
	Limit     int
	Search    string
	SortBy    VideoSort
	Ascending bool
	OwnerID   string
	ViewerID  string
}

// VideoPage is one page of the video listing.
type VideoPage struct {
	Items      []Video `json:"items"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	Total      int64   `json:"total"`
	TotalPages int     `json:"totalPages"`
}

// SessionTokens groups the bearer credentials issued to authenticated accounts.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"-"`
}
