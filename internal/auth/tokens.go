package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/models"
)

var (
	// ErrInvalidToken indicates the token is malformed, expired, or signed with the wrong key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrAccountNotFound is returned by RefreshTokenStore implementations for unknown accounts.
	ErrAccountNotFound = errors.New("account not found")
	// ErrRefreshTokenMismatch indicates the presented refresh token is not the one currently stored.
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// RefreshTokenStore persists the single active refresh token of each account.
type RefreshTokenStore interface {
	LoadRefreshToken(ctx context.Context, accountID string) (string, error)
	SaveRefreshToken(ctx context.Context, accountID, token string) error
	// SwapRefreshToken replaces previous with next only when previous is still
	// the stored value, returning ErrRefreshTokenMismatch otherwise.
	SwapRefreshToken(ctx context.Context, accountID, previous, next string) error
	ClearRefreshToken(ctx context.Context, accountID string) error
}

// Claims is the payload carried by both token kinds. Refresh tokens only set
// the registered claims and the token type.
type Claims struct {
	Handle    string `json:"handle,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies access and refresh tokens.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	store RefreshTokenStore
	now   func() time.Time
}

// NewTokenService constructs a TokenService. The two secrets must differ so a
// refresh token can never be replayed as an access token.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, store RefreshTokenStore) *TokenService {
	if store == nil {
		panic("auth: refresh token store must not be nil")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		store:         store,
		now:           time.Now,
	}
}

// IssuePair signs a fresh access/refresh pair for the account and stores the
// refresh token, replacing whatever was stored before.
func (s *TokenService) IssuePair(ctx context.Context, account models.Account) (models.SessionTokens, error) {
	tokens, err := s.sign(account)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := s.store.SaveRefreshToken(ctx, account.ID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store refresh token: %w", err)
	}
	return tokens, nil
}

// Rotate exchanges the presented refresh token for a new pair. The store write
// is conditional on presented still being the stored token, so only one of
// several concurrent rotations can succeed.
func (s *TokenService) Rotate(ctx context.Context, account models.Account, presented string) (models.SessionTokens, error) {
	tokens, err := s.sign(account)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := s.store.SwapRefreshToken(ctx, account.ID, presented, tokens.RefreshToken); err != nil {
		if errors.Is(err, ErrRefreshTokenMismatch) || errors.Is(err, ErrAccountNotFound) {
			return models.SessionTokens{}, err
		}
		return models.SessionTokens{}, fmt.Errorf("swap refresh token: %w", err)
	}
	return tokens, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(token string) (Claims, error) {
	return s.parse(token, s.accessSecret, tokenTypeAccess)
}

// VerifyRefresh validates a refresh token and checks it against the stored
// value. It returns the account id the token was issued to.
func (s *TokenService) VerifyRefresh(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token, s.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return "", err
	}

	stored, err := s.store.LoadRefreshToken(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("load refresh token: %w", err)
	}
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return "", ErrRefreshTokenMismatch
	}

	return claims.Subject, nil
}

// Revoke clears the stored refresh token, ending the session.
func (s *TokenService) Revoke(ctx context.Context, accountID string) error {
	if err := s.store.ClearRefreshToken(ctx, accountID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (s *TokenService) sign(account models.Account) (models.SessionTokens, error) {
	if strings.TrimSpace(account.ID) == "" {
		return models.SessionTokens{}, errors.New("account id must be provided")
	}

	now := s.now().UTC()
	accessExpires := now.Add(s.accessTTL)
	refreshExpires := now.Add(s.refreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Handle:           account.Handle,
		Email:            account.Email,
		Name:             account.FullName,
		TokenType:        tokenTypeAccess,
		RegisteredClaims: registered(account.ID, now, accessExpires),
	})
	accessToken, err := access.SignedString(s.accessSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenType:        tokenTypeRefresh,
		RegisteredClaims: registered(account.ID, now, refreshExpires),
	})
	refreshToken, err := refresh.SignedString(s.refreshSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

func (s *TokenService) parse(token string, secret []byte, tokenType string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.TokenType != tokenType || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// jti keeps two tokens issued in the same second distinct.
func registered(subject string, issued, expires time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
}
