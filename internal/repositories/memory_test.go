package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/models"
)

func newMemoryRepos() (*MemoryAccountRepository, *MemoryVideoRepository) {
	store := NewMemoryStore()
	return NewMemoryAccountRepository(store), NewMemoryVideoRepository(store)
}

func seedAccount(t *testing.T, repo *MemoryAccountRepository, handle string) models.Account {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, repo.Create(context.Background(), models.NewAccount{
		ID:        id,
		Handle:    handle,
		Email:     handle + "@example.com",
		FullName:  handle,
		Password:  "secret1",
		AvatarURL: "https://cdn.example.com/images/" + handle + ".png",
		CreatedAt: time.Now(),
	}))
	account, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return account
}

func seedVideo(t *testing.T, repo *MemoryVideoRepository, ownerID, title string, published bool, createdAt time.Time) models.Video {
	t.Helper()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		IsPublished: published,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), video))
	return video
}

func TestMemoryAccountRepositoryUniqueness(t *testing.T) {
	accounts, _ := newMemoryRepos()
	alice := seedAccount(t, accounts, "alice")

	assert.NotEqual(t, "secret1", alice.PasswordHash)
	assert.NoError(t, auth.ComparePassword(alice.PasswordHash, "secret1"))

	err := accounts.Create(context.Background(), models.NewAccount{
		ID: uuid.NewString(), Handle: "alice", Email: "other@example.com", Password: "secret1",
	})
	assert.ErrorIs(t, err, ErrConflict)

	bob := seedAccount(t, accounts, "bob")
	taken := "alice@example.com"
	_, err = accounts.UpdateDetails(context.Background(), bob.ID, models.AccountDetails{Email: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	found, err := accounts.FindByHandleOrEmail(context.Background(), "", "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)

	_, err = accounts.FindByHandleOrEmail(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAccountRepositoryRefreshTokens(t *testing.T) {
	accounts, _ := newMemoryRepos()
	alice := seedAccount(t, accounts, "alice")
	ctx := context.Background()

	require.NoError(t, accounts.SaveRefreshToken(ctx, alice.ID, "one"))
	assert.ErrorIs(t, accounts.SwapRefreshToken(ctx, alice.ID, "stale", "two"), auth.ErrRefreshTokenMismatch)
	require.NoError(t, accounts.SwapRefreshToken(ctx, alice.ID, "one", "two"))

	token, err := accounts.LoadRefreshToken(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "two", token)

	require.NoError(t, accounts.ClearRefreshToken(ctx, alice.ID))
	assert.ErrorIs(t, accounts.SwapRefreshToken(ctx, alice.ID, "", "three"), auth.ErrRefreshTokenMismatch)
	assert.ErrorIs(t, accounts.SaveRefreshToken(ctx, "missing", "x"), auth.ErrAccountNotFound)
}

func TestMemoryWatchHistoryIsOrderedAndDeduplicated(t *testing.T) {
	accounts, videos := newMemoryRepos()
	ctx := context.Background()
	alice := seedAccount(t, accounts, "alice")
	bob := seedAccount(t, accounts, "bob")

	now := time.Now()
	first := seedVideo(t, videos, alice.ID, "first", true, now)
	second := seedVideo(t, videos, alice.ID, "second", true, now)

	for _, id := range []string{second.ID, first.ID, second.ID, first.ID} {
		require.NoError(t, accounts.AppendWatchHistory(ctx, bob.ID, id))
	}

	stored, err := accounts.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, stored.WatchHistory)

	history, err := accounts.WatchHistory(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, "alice", history[0].Owner.Handle)

	require.NoError(t, videos.Delete(ctx, second.ID))
	stored, err = accounts.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, stored.WatchHistory)
}

func TestMemoryChannelProfileAndSubscriptions(t *testing.T) {
	accounts, _ := newMemoryRepos()
	ctx := context.Background()
	alice := seedAccount(t, accounts, "alice")
	bob := seedAccount(t, accounts, "bob")

	subscribed, err := accounts.ToggleSubscription(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, subscribed)

	profile, err := accounts.ChannelProfile(ctx, "alice", bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.SubscribersCount)
	assert.True(t, profile.IsSubscribed)
	assert.False(t, profile.IsOwner)

	bobProfile, err := accounts.ChannelProfile(ctx, "bob", bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobProfile.SubscribedToCount)
	assert.True(t, bobProfile.IsOwner)

	subscribed, err = accounts.ToggleSubscription(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, subscribed)

	_, err = accounts.ToggleSubscription(ctx, bob.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = accounts.ChannelProfile(ctx, "nobody", bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryVideoListVisibilityAndPaging(t *testing.T) {
	accounts, videos := newMemoryRepos()
	ctx := context.Background()
	alice := seedAccount(t, accounts, "alice")
	bob := seedAccount(t, accounts, "bob")

	base := time.Now()
	seedVideo(t, videos, alice.ID, "Cats", true, base)
	dogs := seedVideo(t, videos, alice.ID, "Dogs", true, base.Add(time.Minute))
	draft := seedVideo(t, videos, bob.ID, "cats draft", false, base.Add(2*time.Minute))

	page, err := videos.List(ctx, models.VideoQuery{Page: 1, Limit: 10, ViewerID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, dogs.ID, page.Items[0].ID)

	page, err = videos.List(ctx, models.VideoQuery{Page: 1, Limit: 10, Search: "CATS", ViewerID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, draft.ID, page.Items[0].ID)

	page, err = videos.List(ctx, models.VideoQuery{Page: 3, Limit: 1, ViewerID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 1)

	page, err = videos.List(ctx, models.VideoQuery{Page: 9, Limit: 10, ViewerID: bob.ID})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(3), page.Total)
}
