package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const accountColumns = `id, handle, email, full_name, password_hash, avatar_url, cover_url,
        COALESCE(refresh_token, ''), watch_history, created_at, updated_at`

// PostgresAccountRepository provides PostgreSQL-backed persistence for accounts.
type PostgresAccountRepository struct {
	pool db.Pool
}

// NewPostgresAccountRepository constructs an account repository backed by PostgreSQL.
func NewPostgresAccountRepository(pool db.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

// Create hashes the password and persists a new account record.
func (r *PostgresAccountRepository) Create(ctx context.Context, account models.NewAccount) error {
	hash, err := auth.HashPassword(account.Password)
	if err != nil {
		return err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	createdAt := account.CreatedAt.UTC()
	_, err = conn.Exec(ctx, `
        INSERT INTO accounts (id, handle, email, full_name, password_hash, avatar_url, cover_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
    `, account.ID, account.Handle, account.Email, account.FullName, hash, account.AvatarURL, account.CoverURL, createdAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// FindByID fetches an account by its identifier.
func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (models.Account, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	account, err := scanAccount(conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return models.Account{}, wrapNotFound(err, "select account by id")
	}
	return account, nil
}

// FindByHandleOrEmail fetches the account matching either the handle or the email.
func (r *PostgresAccountRepository) FindByHandleOrEmail(ctx context.Context, handle, email string) (models.Account, error) {
	if handle == "" && email == "" {
		return models.Account{}, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	account, err := scanAccount(conn.QueryRow(ctx, `
        SELECT `+accountColumns+`
        FROM accounts
        WHERE ($1 <> '' AND handle = $1) OR ($2 <> '' AND email = $2)
        ORDER BY created_at
        LIMIT 1
    `, handle, email))
	if err != nil {
		return models.Account{}, wrapNotFound(err, "select account by handle or email")
	}
	return account, nil
}

// UpdatePassword hashes and stores a new password.
func (r *PostgresAccountRepository) UpdatePassword(ctx context.Context, id, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	return r.exec(ctx, "update password", `
        UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1
    `, id, hash, time.Now().UTC())
}

// UpdateDetails applies the non-nil fields of details.
func (r *PostgresAccountRepository) UpdateDetails(ctx context.Context, id string, details models.AccountDetails) (models.Account, error) {
	return r.updateReturning(ctx, "update account details", `
        UPDATE accounts
        SET full_name = COALESCE($2, full_name),
            email = COALESCE($3, email),
            updated_at = $4
        WHERE id = $1
        RETURNING `+accountColumns, id, details.FullName, details.Email, time.Now().UTC())
}

// UpdateAvatar stores a new avatar URL.
func (r *PostgresAccountRepository) UpdateAvatar(ctx context.Context, id, url string) (models.Account, error) {
	return r.updateReturning(ctx, "update avatar", `
        UPDATE accounts SET avatar_url = $2, updated_at = $3 WHERE id = $1
        RETURNING `+accountColumns, id, url, time.Now().UTC())
}

// UpdateCoverImage stores a new cover image URL.
func (r *PostgresAccountRepository) UpdateCoverImage(ctx context.Context, id, url string) (models.Account, error) {
	return r.updateReturning(ctx, "update cover image", `
        UPDATE accounts SET cover_url = $2, updated_at = $3 WHERE id = $1
        RETURNING `+accountColumns, id, url, time.Now().UTC())
}

// AppendWatchHistory adds videoID to the end of the account's history unless
// it is already present. The check and the append are a single statement.
func (r *PostgresAccountRepository) AppendWatchHistory(ctx context.Context, accountID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        UPDATE accounts
        SET watch_history = array_append(watch_history, $2::TEXT)
        WHERE id = $1 AND NOT ($2::TEXT = ANY(watch_history))
    `, accountID, videoID)
	if err != nil {
		return fmt.Errorf("append watch history: %w", err)
	}
	return nil
}

// WatchHistory returns the watched videos in history order joined with their
// owners. History entries whose video no longer exists are skipped.
func (r *PostgresAccountRepository) WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var history []string
	if err := conn.QueryRow(ctx, `SELECT watch_history FROM accounts WHERE id = $1`, accountID).Scan(&history); err != nil {
		return nil, wrapNotFound(err, "select watch history")
	}
	if len(history) == 0 {
		return []models.WatchedVideo{}, nil
	}

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns("v")+`, o.full_name, o.handle, o.avatar_url
        FROM videos v
        JOIN accounts o ON o.id = v.owner_id
        WHERE v.id = ANY($1)
    `, history)
	if err != nil {
		return nil, fmt.Errorf("query watched videos: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]models.WatchedVideo, len(history))
	for rows.Next() {
		var watched models.WatchedVideo
		dest := append(videoScanTargets(&watched.Video), &watched.Owner.FullName, &watched.Owner.Handle, &watched.Owner.AvatarURL)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan watched video: %w", err)
		}
		byID[watched.ID] = watched
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watched videos: %w", err)
	}

	return orderHistory(history, byID), nil
}

// ChannelProfile aggregates a channel's public fields with its subscription
// counts and whether viewerID subscribes to it.
func (r *PostgresAccountRepository) ChannelProfile(ctx context.Context, handle, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT a.id, a.handle, a.full_name, a.email, a.avatar_url, a.cover_url,
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = a.id),
            (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = a.id),
            EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = a.id AND s.subscriber_id = $2)
        FROM accounts a
        WHERE a.handle = $1
    `, handle, viewerID)

	var profile models.ChannelProfile
	if err := row.Scan(&profile.ID, &profile.Handle, &profile.FullName, &profile.Email, &profile.AvatarURL, &profile.CoverURL,
		&profile.SubscribersCount, &profile.SubscribedToCount, &profile.IsSubscribed); err != nil {
		return models.ChannelProfile{}, wrapNotFound(err, "select channel profile")
	}
	profile.IsOwner = viewerID != "" && profile.ID == viewerID

	return profile, nil
}

// ToggleSubscription subscribes subscriberID to channelID, or removes the
// subscription when it already exists. It reports the resulting state.
func (r *PostgresAccountRepository) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3)
    `, subscriberID, channelID, time.Now().UTC())
	if err != nil {
		switch {
		case isPgError(err, pgForeignKeyViolation):
			return false, ErrNotFound
		case isPgError(err, pgUniqueViolation):
			return true, nil
		}
		return false, fmt.Errorf("insert subscription: %w", err)
	}

	return true, nil
}

// LoadRefreshToken returns the stored refresh token, or an empty string when
// the account has no active session.
func (r *PostgresAccountRepository) LoadRefreshToken(ctx context.Context, accountID string) (string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var token string
	err = conn.QueryRow(ctx, `SELECT COALESCE(refresh_token, '') FROM accounts WHERE id = $1`, accountID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrAccountNotFound
		}
		return "", fmt.Errorf("select refresh token: %w", err)
	}
	return token, nil
}

// SaveRefreshToken overwrites the stored refresh token.
func (r *PostgresAccountRepository) SaveRefreshToken(ctx context.Context, accountID, token string) error {
	return r.setRefreshToken(ctx, accountID, &token)
}

// ClearRefreshToken removes the stored refresh token.
func (r *PostgresAccountRepository) ClearRefreshToken(ctx context.Context, accountID string) error {
	return r.setRefreshToken(ctx, accountID, nil)
}

// SwapRefreshToken replaces previous with next only if previous is still stored.
func (r *PostgresAccountRepository) SwapRefreshToken(ctx context.Context, accountID, previous, next string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts SET refresh_token = $3
        WHERE id = $1 AND refresh_token = $2
    `, accountID, previous, next)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return auth.ErrAccountNotFound
	}
	return auth.ErrRefreshTokenMismatch
}

func (r *PostgresAccountRepository) setRefreshToken(ctx context.Context, accountID string, token *string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE accounts SET refresh_token = $2 WHERE id = $1`, accountID, token)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) exec(ctx context.Context, op, query string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrConflict
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) updateReturning(ctx context.Context, op, query string, args ...any) (models.Account, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	account, err := scanAccount(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return models.Account{}, ErrConflict
		}
		return models.Account{}, wrapNotFound(err, op)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var account models.Account
	err := row.Scan(&account.ID, &account.Handle, &account.Email, &account.FullName, &account.PasswordHash,
		&account.AvatarURL, &account.CoverURL, &account.RefreshToken, &account.WatchHistory,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return models.Account{}, err
	}
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	if account.WatchHistory == nil {
		account.WatchHistory = []string{}
	}
	return account, nil
}

func orderHistory(history []string, byID map[string]models.WatchedVideo) []models.WatchedVideo {
	watched := make([]models.WatchedVideo, 0, len(history))
	for _, id := range history {
		if video, ok := byID[id]; ok {
			watched = append(watched, video)
		}
	}
	return watched
}

func wrapNotFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
