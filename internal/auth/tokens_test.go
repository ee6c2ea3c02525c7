package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vidshare/backend/internal/models"
)

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeTokenStore(accountIDs ...string) *fakeTokenStore {
	store := &fakeTokenStore{tokens: make(map[string]string)}
	for _, id := range accountIDs {
		store.tokens[id] = ""
	}
	return store
}

func (s *fakeTokenStore) LoadRefreshToken(_ context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[accountID]
	if !ok {
		return "", ErrAccountNotFound
	}
	return token, nil
}

func (s *fakeTokenStore) SaveRefreshToken(_ context.Context, accountID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[accountID]; !ok {
		return ErrAccountNotFound
	}
	s.tokens[accountID] = token
	return nil
}

func (s *fakeTokenStore) SwapRefreshToken(_ context.Context, accountID, previous, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tokens[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	if current != previous {
		return ErrRefreshTokenMismatch
	}
	s.tokens[accountID] = next
	return nil
}

func (s *fakeTokenStore) ClearRefreshToken(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[accountID]; !ok {
		return ErrAccountNotFound
	}
	s.tokens[accountID] = ""
	return nil
}

func newTestService(store RefreshTokenStore) *TokenService {
	return NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour, store)
}

var alice = models.Account{ID: "acct-1", Handle: "alice", Email: "alice@example.com", FullName: "Alice A"}

func TestIssuePairStoresRefreshToken(t *testing.T) {
	store := newFakeTokenStore(alice.ID)
	service := newTestService(store)

	tokens, err := service.IssuePair(context.Background(), alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}
	if store.tokens[alice.ID] != tokens.RefreshToken {
		t.Fatal("expected refresh token to be stored on the account")
	}

	claims, err := service.VerifyAccess(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != alice.ID || claims.Handle != "alice" || claims.Email != alice.Email || claims.Name != alice.FullName {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestIssuePairTwiceProducesDistinctTokens(t *testing.T) {
	service := newTestService(newFakeTokenStore(alice.ID))

	first, err := service.IssuePair(context.Background(), alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := service.IssuePair(context.Background(), alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first.RefreshToken == second.RefreshToken || first.AccessToken == second.AccessToken {
		t.Fatal("expected distinct tokens for each issue")
	}
	if _, err := service.VerifyRefresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrRefreshTokenMismatch) {
		t.Fatalf("expected superseded refresh token to be rejected got %v", err)
	}
}

func TestIssuePairUnknownAccount(t *testing.T) {
	service := newTestService(newFakeTokenStore())
	if _, err := service.IssuePair(context.Background(), alice); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found got %v", err)
	}
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	service := newTestService(newFakeTokenStore(alice.ID))
	tokens, err := service.IssuePair(context.Background(), alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := service.VerifyAccess(tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected refresh token to fail access verification got %v", err)
	}
	if _, err := service.VerifyRefresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected access token to fail refresh verification got %v", err)
	}
	if _, err := service.VerifyAccess(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected empty token to be invalid got %v", err)
	}
}

func TestVerifyAccessRejectsExpiredAndForeignTokens(t *testing.T) {
	service := newTestService(newFakeTokenStore(alice.ID))
	tokens, err := service.IssuePair(context.Background(), alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	service.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := service.VerifyAccess(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected got %v", err)
	}
	service.now = time.Now

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   alice.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err := forged.SignedString([]byte("someone-else"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := service.VerifyAccess(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature to be rejected got %v", err)
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   alice.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	none, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := service.VerifyAccess(none); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg none to be rejected got %v", err)
	}
}

func TestRotateReplacesStoredToken(t *testing.T) {
	store := newFakeTokenStore(alice.ID)
	service := newTestService(store)
	ctx := context.Background()

	tokens, err := service.IssuePair(ctx, alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	accountID, err := service.VerifyRefresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if accountID != alice.ID {
		t.Fatalf("expected %s got %s", alice.ID, accountID)
	}

	rotated, err := service.Rotate(ctx, alice, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	if _, err := service.VerifyRefresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenMismatch) {
		t.Fatalf("expected old refresh token to be rejected got %v", err)
	}
	if _, err := service.Rotate(ctx, alice, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenMismatch) {
		t.Fatalf("expected second rotation of the same token to fail got %v", err)
	}
}

func TestConcurrentRotateOnlyOneWins(t *testing.T) {
	store := newFakeTokenStore(alice.ID)
	service := newTestService(store)
	ctx := context.Background()

	tokens, err := service.IssuePair(ctx, alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.Rotate(ctx, alice, tokens.RefreshToken); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful rotation got %d", successes)
	}
}

func TestVerifyRefreshAfterRevoke(t *testing.T) {
	store := newFakeTokenStore(alice.ID)
	service := newTestService(store)
	ctx := context.Background()

	tokens, err := service.IssuePair(ctx, alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := service.Revoke(ctx, alice.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := service.VerifyRefresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenMismatch) {
		t.Fatalf("expected revoked token to be rejected got %v", err)
	}
}

func TestVerifyRefreshUnknownAccount(t *testing.T) {
	issuer := newTestService(newFakeTokenStore(alice.ID))
	tokens, err := issuer.IssuePair(context.Background(), alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := newTestService(newFakeTokenStore())
	if _, err := verifier.VerifyRefresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for unknown account got %v", err)
	}
}
