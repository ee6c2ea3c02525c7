package repositories

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/models"
)

// MemoryStore holds accounts, videos and subscriptions in process memory. It
// backs the in-memory repositories used by tests and local development.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[string]models.Account
	videos        map[string]models.Video
	subscriptions map[[2]string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:      make(map[string]models.Account),
		videos:        make(map[string]models.Video),
		subscriptions: make(map[[2]string]struct{}),
	}
}

// MemoryAccountRepository implements AccountRepository on a MemoryStore.
type MemoryAccountRepository struct {
	store *MemoryStore
}

// NewMemoryAccountRepository returns an account repository backed by store.
func NewMemoryAccountRepository(store *MemoryStore) *MemoryAccountRepository {
	return &MemoryAccountRepository{store: store}
}

func (r *MemoryAccountRepository) Create(_ context.Context, account models.NewAccount) error {
	hash, err := auth.HashPassword(account.Password)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.ID == account.ID || existing.Handle == account.Handle || existing.Email == account.Email {
			return ErrConflict
		}
	}

	createdAt := account.CreatedAt.UTC()
	s.accounts[account.ID] = models.Account{
		ID:           account.ID,
		Handle:       account.Handle,
		Email:        account.Email,
		FullName:     account.FullName,
		PasswordHash: hash,
		AvatarURL:    account.AvatarURL,
		CoverURL:     account.CoverURL,
		WatchHistory: []string{},
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	return nil
}

func (r *MemoryAccountRepository) FindByID(_ context.Context, id string) (models.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *MemoryAccountRepository) FindByHandleOrEmail(_ context.Context, handle, email string) (models.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		match models.Account
		found bool
	)
	for _, account := range s.accounts {
		if (handle != "" && account.Handle == handle) || (email != "" && account.Email == email) {
			if !found || account.CreatedAt.Before(match.CreatedAt) {
				match, found = account, true
			}
		}
	}
	if !found {
		return models.Account{}, ErrNotFound
	}
	return cloneAccount(match), nil
}

func (r *MemoryAccountRepository) UpdatePassword(_ context.Context, id, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = r.update(id, func(account *models.Account) error {
		account.PasswordHash = hash
		return nil
	})
	return err
}

func (r *MemoryAccountRepository) UpdateDetails(_ context.Context, id string, details models.AccountDetails) (models.Account, error) {
	return r.update(id, func(account *models.Account) error {
		if details.Email != nil && *details.Email != account.Email {
			for _, other := range r.store.accounts {
				if other.ID != id && other.Email == *details.Email {
					return ErrConflict
				}
			}
			account.Email = *details.Email
		}
		if details.FullName != nil {
			account.FullName = *details.FullName
		}
		return nil
	})
}

func (r *MemoryAccountRepository) UpdateAvatar(_ context.Context, id, url string) (models.Account, error) {
	return r.update(id, func(account *models.Account) error {
		account.AvatarURL = url
		return nil
	})
}

func (r *MemoryAccountRepository) UpdateCoverImage(_ context.Context, id, url string) (models.Account, error) {
	return r.update(id, func(account *models.Account) error {
		account.CoverURL = url
		return nil
	})
}

func (r *MemoryAccountRepository) AppendWatchHistory(_ context.Context, accountID, videoID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok || slices.Contains(account.WatchHistory, videoID) {
		return nil
	}
	account.WatchHistory = append(slices.Clone(account.WatchHistory), videoID)
	s.accounts[accountID] = account
	return nil
}

func (r *MemoryAccountRepository) WatchHistory(_ context.Context, accountID string) ([]models.WatchedVideo, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}

	byID := make(map[string]models.WatchedVideo, len(account.WatchHistory))
	for _, id := range account.WatchHistory {
		video, ok := s.videos[id]
		if !ok {
			continue
		}
		owner := s.accounts[video.OwnerID]
		byID[id] = models.WatchedVideo{
			Video: video,
			Owner: models.OwnerSummary{FullName: owner.FullName, Handle: owner.Handle, AvatarURL: owner.AvatarURL},
		}
	}
	return orderHistory(account.WatchHistory, byID), nil
}

func (r *MemoryAccountRepository) ChannelProfile(_ context.Context, handle, viewerID string) (models.ChannelProfile, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.Handle != handle {
			continue
		}
		profile := models.ChannelProfile{
			ID:        account.ID,
			Handle:    account.Handle,
			FullName:  account.FullName,
			Email:     account.Email,
			AvatarURL: account.AvatarURL,
			CoverURL:  account.CoverURL,
			IsOwner:   viewerID != "" && account.ID == viewerID,
		}
		for key := range s.subscriptions {
			if key[1] == account.ID {
				profile.SubscribersCount++
				if key[0] == viewerID {
					profile.IsSubscribed = true
				}
			}
			if key[0] == account.ID {
				profile.SubscribedToCount++
			}
		}
		return profile, nil
	}
	return models.ChannelProfile{}, ErrNotFound
}

func (r *MemoryAccountRepository) ToggleSubscription(_ context.Context, subscriberID, channelID string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[channelID]; !ok {
		return false, ErrNotFound
	}
	if _, ok := s.accounts[subscriberID]; !ok {
		return false, ErrNotFound
	}

	key := [2]string{subscriberID, channelID}
	if _, ok := s.subscriptions[key]; ok {
		delete(s.subscriptions, key)
		return false, nil
	}
	s.subscriptions[key] = struct{}{}
	return true, nil
}

func (r *MemoryAccountRepository) LoadRefreshToken(_ context.Context, accountID string) (string, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return "", auth.ErrAccountNotFound
	}
	return account.RefreshToken, nil
}

func (r *MemoryAccountRepository) SaveRefreshToken(_ context.Context, accountID, token string) error {
	return r.swap(accountID, func(string) bool { return true }, token)
}

func (r *MemoryAccountRepository) SwapRefreshToken(_ context.Context, accountID, previous, next string) error {
	return r.swap(accountID, func(current string) bool { return current != "" && current == previous }, next)
}

func (r *MemoryAccountRepository) ClearRefreshToken(_ context.Context, accountID string) error {
	return r.swap(accountID, func(string) bool { return true }, "")
}

func (r *MemoryAccountRepository) swap(accountID string, matches func(current string) bool, next string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return auth.ErrAccountNotFound
	}
	if !matches(account.RefreshToken) {
		return auth.ErrRefreshTokenMismatch
	}
	account.RefreshToken = next
	s.accounts[accountID] = account
	return nil
}

func (r *MemoryAccountRepository) update(id string, apply func(account *models.Account) error) (models.Account, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	if err := apply(&account); err != nil {
		return models.Account{}, err
	}
	account.UpdatedAt = time.Now().UTC()
	s.accounts[id] = account
	return cloneAccount(account), nil
}

func cloneAccount(account models.Account) models.Account {
	account.WatchHistory = slices.Clone(account.WatchHistory)
	if account.WatchHistory == nil {
		account.WatchHistory = []string{}
	}
	return account
}

// MemoryVideoRepository implements VideoRepository on a MemoryStore.
type MemoryVideoRepository struct {
	store *MemoryStore
}

// NewMemoryVideoRepository returns a video repository backed by store.
func NewMemoryVideoRepository(store *MemoryStore) *MemoryVideoRepository {
	return &MemoryVideoRepository{store: store}
}

func (r *MemoryVideoRepository) Create(_ context.Context, video models.Video) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[video.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.accounts[video.OwnerID]; !ok {
		return ErrNotFound
	}
	video.CreatedAt = video.CreatedAt.UTC()
	video.UpdatedAt = video.UpdatedAt.UTC()
	s.videos[video.ID] = video
	return nil
}

func (r *MemoryVideoRepository) FindByID(_ context.Context, id string) (models.Video, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

func (r *MemoryVideoRepository) Update(_ context.Context, video models.Video) (models.Video, error) {
	return r.update(video.ID, func(existing *models.Video) {
		existing.Title = video.Title
		existing.Description = video.Description
		existing.ThumbnailURL = video.ThumbnailURL
	})
}

func (r *MemoryVideoRepository) SetPublished(_ context.Context, id string, published bool) (models.Video, error) {
	return r.update(id, func(existing *models.Video) {
		existing.IsPublished = published
	})
}

func (r *MemoryVideoRepository) Delete(_ context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[id]; !ok {
		return ErrNotFound
	}
	delete(s.videos, id)

	for accountID, account := range s.accounts {
		if !slices.Contains(account.WatchHistory, id) {
			continue
		}
		account.WatchHistory = slices.DeleteFunc(slices.Clone(account.WatchHistory), func(v string) bool { return v == id })
		s.accounts[accountID] = account
	}
	return nil
}

func (r *MemoryVideoRepository) List(_ context.Context, query models.VideoQuery) (models.VideoPage, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(query.Search)
	matches := make([]models.Video, 0, len(s.videos))
	for _, video := range s.videos {
		if !video.IsPublished && (query.ViewerID == "" || video.OwnerID != query.ViewerID) {
			continue
		}
		if query.OwnerID != "" && video.OwnerID != query.OwnerID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(video.Title), search) &&
			!strings.Contains(strings.ToLower(video.Description), search) {
			continue
		}
		matches = append(matches, video)
	}

	sort.Slice(matches, func(i, j int) bool {
		cmp := compareVideos(matches[i], matches[j], query.SortBy)
		if cmp == 0 {
			cmp = strings.Compare(matches[i].ID, matches[j].ID)
		}
		if query.Ascending {
			return cmp < 0
		}
		return cmp > 0
	})

	total := int64(len(matches))
	start := (query.Page - 1) * query.Limit
	if start < 0 || start > len(matches) {
		start = len(matches)
	}
	end := start + query.Limit
	if end > len(matches) {
		end = len(matches)
	}

	return newVideoPage(slices.Clone(matches[start:end]), query, total), nil
}

func (r *MemoryVideoRepository) update(id string, apply func(existing *models.Video)) (models.Video, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	apply(&video)
	video.UpdatedAt = time.Now().UTC()
	s.videos[id] = video
	return video, nil
}

func compareVideos(a, b models.Video, sortBy models.VideoSort) int {
	switch sortBy {
	case models.SortTitle:
		return strings.Compare(a.Title, b.Title)
	case models.SortDuration:
		return compareOrdered(a.DurationSeconds, b.DurationSeconds)
	case models.SortViews:
		return compareOrdered(a.Views, b.Views)
	case models.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
