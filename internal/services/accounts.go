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
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/storage"
)

// RegisterInput carries the registration form. AvatarPath and CoverPath are
// local temp files written by the upload layer; the service owns them.
type RegisterInput struct {
	Handle     string `json:"username" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	FullName   string `json:"fullName" validate:"required"`
	Password   string `json:"password" validate:"required"`
	AvatarPath string `json:"-"`
	CoverPath  string `json:"-"`
}

// LoginInput identifies an account by handle or email.
type LoginInput struct {
	Handle   string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordInput is the change-password form.
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// AccountDetailsInput is a partial update; empty fields are left unchanged.
type AccountDetailsInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// AccountService implements registration, sessions and profile management.
type AccountService struct {
	accounts repositories.AccountRepository
	tokens   *auth.TokenService
	media    storage.Gateway
	validate *validator.Validate
	now      func() time.Time
}

// NewAccountService wires the account workflow.
func NewAccountService(accounts repositories.AccountRepository, tokens *auth.TokenService, media storage.Gateway) *AccountService {
	return &AccountService{
		accounts: accounts,
		tokens:   tokens,
		media:    media,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Register creates an account. Temp files are removed on every failure
// branch that precedes their upload, and remote assets uploaded before a
// failed insert are deleted again.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (_ models.Account, err error) {
	ctx, span := logging.StartSpan(ctx, "accounts.register")
	defer func() { span.Fail(err) }()

	in.Handle = strings.ToLower(strings.TrimSpace(in.Handle))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if err := s.validate.Struct(in); err != nil {
		storage.RemoveTempFiles(ctx, in.AvatarPath, in.CoverPath)
		return models.Account{}, validationError(err)
	}

	if in.AvatarPath == "" {
		storage.RemoveTempFiles(ctx, in.CoverPath)
		return models.Account{}, apperrors.BadRequest("avatar file is required")
	}

	if _, err := s.accounts.FindByHandleOrEmail(ctx, in.Handle, in.Email); err == nil {
		storage.RemoveTempFiles(ctx, in.AvatarPath, in.CoverPath)
		return models.Account{}, apperrors.Conflict("user with email or username already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		storage.RemoveTempFiles(ctx, in.AvatarPath, in.CoverPath)
		return models.Account{}, apperrors.Internal("check existing account", err)
	}

	avatar, err := s.media.Upload(ctx, in.AvatarPath)
	if err != nil {
		storage.RemoveTempFiles(ctx, in.CoverPath)
		logging.FromContext(ctx).Warn("avatar upload failed", slog.Any("error", err))
		return models.Account{}, apperrors.BadRequest("avatar file upload failed")
	}

	var coverURL string
	if in.CoverPath != "" {
		cover, err := s.media.Upload(ctx, in.CoverPath)
		if err != nil {
			logging.FromContext(ctx).Warn("cover image upload failed", slog.Any("error", err))
		} else {
			coverURL = cover.URL
		}
	}

	id := uuid.NewString()
	err = s.accounts.Create(ctx, models.NewAccount{
		ID:        id,
		Handle:    in.Handle,
		Email:     in.Email,
		FullName:  in.FullName,
		Password:  in.Password,
		AvatarURL: avatar.URL,
		CoverURL:  coverURL,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.deleteRemote(ctx, avatar.URL, coverURL)
		if errors.Is(err, repositories.ErrConflict) {
			return models.Account{}, apperrors.Conflict("user with email or username already exists")
		}
		return models.Account{}, apperrors.Internal("create account", err)
	}

	created, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return models.Account{}, apperrors.Internal("something went wrong while registering the user", err)
	}

	logging.FromContext(ctx).Info("account registered", slog.String("account_id", id))
	return redact(created), nil
}

// Login verifies credentials and issues a fresh token pair.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (_ models.Account, _ models.SessionTokens, err error) {
	ctx, span := logging.StartSpan(ctx, "accounts.login")
	defer func() { span.Fail(err) }()

	handle := strings.ToLower(strings.TrimSpace(in.Handle))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if handle == "" && email == "" {
		return models.Account{}, models.SessionTokens{}, apperrors.BadRequest("username or email is required")
	}
	if in.Password == "" {
		return models.Account{}, models.SessionTokens{}, apperrors.BadRequest("password is required")
	}

	account, err := s.accounts.FindByHandleOrEmail(ctx, handle, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Account{}, models.SessionTokens{}, apperrors.NotFound("user does not exist")
		}
		return models.Account{}, models.SessionTokens{}, apperrors.Internal("find account", err)
	}

	if err := auth.ComparePassword(account.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return models.Account{}, models.SessionTokens{}, apperrors.Unauthorized("invalid user credentials")
		}
		return models.Account{}, models.SessionTokens{}, apperrors.Internal("verify password", err)
	}

	tokens, err := s.tokens.IssuePair(ctx, account)
	if err != nil {
		return models.Account{}, models.SessionTokens{}, apperrors.Internal("something went wrong while generating tokens", err)
	}

	return redact(account), tokens, nil
}

// Logout clears the stored refresh token of the account.
func (s *AccountService) Logout(ctx context.Context, accountID string) error {
	ctx, span := logging.StartSpan(ctx, "accounts.logout")
	defer span.End()

	if err := s.tokens.Revoke(ctx, accountID); err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			return apperrors.Unauthorized("unauthorized request")
		}
		return apperrors.Internal("revoke session", err)
	}
	return nil
}

// Refresh exchanges the currently stored refresh token for a new pair. Stale
// or reused tokens fail closed.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	ctx, span := logging.StartSpan(ctx, "accounts.refresh")
	defer span.End()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return models.SessionTokens{}, apperrors.Unauthorized("unauthorized request")
	}

	accountID, err := s.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, refreshError(ctx, err)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionTokens{}, apperrors.Unauthorized("invalid refresh token")
		}
		return models.SessionTokens{}, apperrors.Internal("find account", err)
	}

	tokens, err := s.tokens.Rotate(ctx, account, refreshToken)
	if err != nil {
		return models.SessionTokens{}, refreshError(ctx, err)
	}
	return tokens, nil
}

func refreshError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrAccountNotFound):
		return apperrors.Unauthorized("invalid refresh token")
	case errors.Is(err, auth.ErrRefreshTokenMismatch):
		logging.FromContext(ctx).Warn("refresh token reuse rejected")
		return apperrors.Unauthorized("refresh token is expired or used")
	default:
		return apperrors.Internal("refresh session", err)
	}
}

// ChangePassword replaces the password after verifying the old one.
func (s *AccountService) ChangePassword(ctx context.Context, accountID string, in ChangePasswordInput) error {
	ctx, span := logging.StartSpan(ctx, "accounts.change_password")
	defer span.End()

	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}

	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if err := auth.ComparePassword(account.PasswordHash, in.OldPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperrors.BadRequest("invalid old password")
		}
		return apperrors.Internal("verify password", err)
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, in.NewPassword); err != nil {
		return apperrors.Internal("update password", err)
	}
	return nil
}

// CurrentAccount returns the authenticated account.
func (s *AccountService) CurrentAccount(ctx context.Context, accountID string) (models.Account, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}
	return redact(account), nil
}

// UpdateAccountDetails changes the display name and/or the email.
func (s *AccountService) UpdateAccountDetails(ctx context.Context, accountID string, in AccountDetailsInput) (models.Account, error) {
	ctx, span := logging.StartSpan(ctx, "accounts.update_details")
	defer span.End()

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FullName == "" && in.Email == "" {
		return models.Account{}, apperrors.BadRequest("fullName or email is required")
	}
	if err := s.validate.Struct(in); err != nil {
		return models.Account{}, validationError(err)
	}

	var details models.AccountDetails
	if in.FullName != "" {
		details.FullName = &in.FullName
	}
	if in.Email != "" {
		details.Email = &in.Email
	}

	updated, err := s.accounts.UpdateDetails(ctx, accountID, details)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			return models.Account{}, apperrors.Conflict("email is already in use")
		case errors.Is(err, repositories.ErrNotFound):
			return models.Account{}, apperrors.NotFound("user does not exist")
		}
		return models.Account{}, apperrors.Internal("update account details", err)
	}
	return redact(updated), nil
}

// UpdateAvatar uploads a new avatar, persists it, and only then deletes the old one.
func (s *AccountService) UpdateAvatar(ctx context.Context, accountID, localPath string) (models.Account, error) {
	ctx, span := logging.StartSpan(ctx, "accounts.update_avatar")
	defer span.End()

	return s.replaceImage(ctx, accountID, localPath, "avatar",
		func(a models.Account) string { return a.AvatarURL },
		s.accounts.UpdateAvatar)
}

// UpdateCoverImage uploads a new cover image, persists it, and only then deletes the old one.
func (s *AccountService) UpdateCoverImage(ctx context.Context, accountID, localPath string) (models.Account, error) {
	ctx, span := logging.StartSpan(ctx, "accounts.update_cover_image")
	defer span.End()

	return s.replaceImage(ctx, accountID, localPath, "cover image",
		func(a models.Account) string { return a.CoverURL },
		s.accounts.UpdateCoverImage)
}

func (s *AccountService) replaceImage(
	ctx context.Context,
	accountID, localPath, label string,
	current func(models.Account) string,
	persist func(ctx context.Context, id, url string) (models.Account, error),
) (models.Account, error) {
	if strings.TrimSpace(localPath) == "" {
		return models.Account{}, apperrors.BadRequest(label + " file is missing")
	}

	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		storage.RemoveTempFile(ctx, localPath)
		return models.Account{}, err
	}
	previous := current(account)

	uploaded, err := s.media.Upload(ctx, localPath)
	if err != nil {
		logging.FromContext(ctx).Warn(label+" upload failed", slog.Any("error", err))
		return models.Account{}, apperrors.BadRequest("error while uploading " + label)
	}

	updated, err := persist(ctx, accountID, uploaded.URL)
	if err != nil {
		s.deleteRemote(ctx, uploaded.URL)
		return models.Account{}, apperrors.Internal("update "+label, err)
	}

	if previous != "" && previous != uploaded.URL {
		s.media.Delete(ctx, previous)
	}
	return redact(updated), nil
}

// GetChannelProfile returns the public profile of the channel named handle
// as seen by viewerID.
func (s *AccountService) GetChannelProfile(ctx context.Context, viewerID, handle string) (models.ChannelProfile, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return models.ChannelProfile{}, apperrors.BadRequest("username is missing")
	}

	profile, err := s.accounts.ChannelProfile(ctx, handle, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ChannelProfile{}, apperrors.BadRequest("channel does not exist")
		}
		return models.ChannelProfile{}, apperrors.Internal("load channel profile", err)
	}
	return profile, nil
}

// GetWatchHistory returns the account's watched videos in history order.
func (s *AccountService) GetWatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error) {
	history, err := s.accounts.WatchHistory(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("user does not exist")
		}
		return nil, apperrors.Internal("load watch history", err)
	}
	return history, nil
}

// ToggleSubscription subscribes the caller to channelID, or unsubscribes if
// already subscribed. It reports whether the caller is now subscribed.
func (s *AccountService) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if _, err := uuid.Parse(channelID); err != nil {
		return false, apperrors.BadRequest("invalid channel id")
	}
	if channelID == subscriberID {
		return false, apperrors.BadRequest("cannot subscribe to your own channel")
	}

	subscribed, err := s.accounts.ToggleSubscription(ctx, subscriberID, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, apperrors.NotFound("channel does not exist")
		}
		return false, apperrors.Internal("toggle subscription", err)
	}
	return subscribed, nil
}

func (s *AccountService) loadAccount(ctx context.Context, accountID string) (models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Account{}, apperrors.NotFound("user does not exist")
		}
		return models.Account{}, apperrors.Internal("find account", err)
	}
	return account, nil
}

func (s *AccountService) deleteRemote(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url != "" {
			s.media.Delete(ctx, url)
		}
	}
}

func redact(account models.Account) models.Account {
	account.PasswordHash = ""
	account.RefreshToken = ""
	return account
}
