package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/models"
)

var videoSortColumns = map[models.VideoSort]string{
	models.SortCreatedAt: "v.created_at",
	models.SortUpdatedAt: "v.updated_at",
	models.SortTitle:     "v.title",
	models.SortDuration:  "v.duration_seconds",
	models.SortViews:     "v.views",
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url, duration_seconds, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.ThumbnailURL,
		video.DurationSeconds, video.Views, video.IsPublished, video.CreatedAt.UTC(), video.UpdatedAt.UTC())
	if err != nil {
		switch {
		case isPgError(err, pgUniqueViolation):
			return ErrConflict
		case isPgError(err, pgForeignKeyViolation):
			return ErrNotFound
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a video by its identifier.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns("v")+` FROM videos v WHERE v.id = $1`, id))
	if err != nil {
		return models.Video{}, wrapNotFound(err, "select video")
	}
	return video, nil
}

// Update persists the editable fields of a video: title, description and thumbnail.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	updated, err := scanVideo(conn.QueryRow(ctx, `
        UPDATE videos v
        SET title = $2, description = $3, thumbnail_url = $4, updated_at = $5
        WHERE v.id = $1
        RETURNING `+videoColumns("v"),
		video.ID, video.Title, video.Description, video.ThumbnailURL, time.Now().UTC()))
	if err != nil {
		return models.Video{}, wrapNotFound(err, "update video")
	}
	return updated, nil
}

// SetPublished sets the visibility flag of a video.
func (r *PostgresVideoRepository) SetPublished(ctx context.Context, id string, published bool) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	updated, err := scanVideo(conn.QueryRow(ctx, `
        UPDATE videos v
        SET is_published = $2, updated_at = $3
        WHERE v.id = $1
        RETURNING `+videoColumns("v"), id, published, time.Now().UTC()))
	if err != nil {
		return models.Video{}, wrapNotFound(err, "set video published")
	}
	return updated, nil
}

// Delete removes the video and strips it from every watch history in one transaction.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete video: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
        UPDATE accounts
        SET watch_history = array_remove(watch_history, $1::TEXT)
        WHERE $1::TEXT = ANY(watch_history)
    `, id); err != nil {
		return fmt.Errorf("remove video from watch history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete video: %w", err)
	}
	return nil
}

// List returns one page of videos visible to query.ViewerID: every published
// video plus the viewer's own unpublished ones.
func (r *PostgresVideoRepository) List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	search := ""
	if query.Search != "" {
		search = "%" + escapeLike(query.Search) + "%"
	}

	const filter = `
        WHERE (v.is_published OR v.owner_id = $1)
          AND ($2 = '' OR v.owner_id = $2)
          AND ($3 = '' OR v.title ILIKE $3 OR v.description ILIKE $3)`

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos v`+filter, query.ViewerID, query.OwnerID, search).Scan(&total); err != nil {
		return models.VideoPage{}, fmt.Errorf("count videos: %w", err)
	}

	column, ok := videoSortColumns[query.SortBy]
	if !ok {
		column = videoSortColumns[models.SortCreatedAt]
	}
	direction := "DESC"
	if query.Ascending {
		direction = "ASC"
	}

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns("v")+`
        FROM videos v`+filter+`
        ORDER BY `+column+` `+direction+`, v.id `+direction+`
        LIMIT $4 OFFSET $5
    `, query.ViewerID, query.OwnerID, search, query.Limit, (query.Page-1)*query.Limit)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	items := make([]models.Video, 0, query.Limit)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return models.VideoPage{}, fmt.Errorf("scan video: %w", err)
		}
		items = append(items, video)
	}
	if err := rows.Err(); err != nil {
		return models.VideoPage{}, fmt.Errorf("iterate videos: %w", err)
	}

	return newVideoPage(items, query, total), nil
}

func videoColumns(alias string) string {
	p := alias + "."
	return p + "id, " + p + "owner_id, " + p + "title, " + p + "description, " + p + "video_url, " +
		p + "thumbnail_url, " + p + "duration_seconds, " + p + "views, " + p + "is_published, " +
		p + "created_at, " + p + "updated_at"
}

func videoScanTargets(video *models.Video) []any {
	return []any{&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.VideoURL,
		&video.ThumbnailURL, &video.DurationSeconds, &video.Views, &video.IsPublished,
		&video.CreatedAt, &video.UpdatedAt}
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	if err := row.Scan(videoScanTargets(&video)...); err != nil {
		return models.Video{}, err
	}
	video.CreatedAt = video.CreatedAt.UTC()
	video.UpdatedAt = video.UpdatedAt.UTC()
	return video, nil
}

func newVideoPage(items []models.Video, query models.VideoQuery, total int64) models.VideoPage {
	totalPages := 0
	if query.Limit > 0 {
		totalPages = int((total + int64(query.Limit) - 1) / int64(query.Limit))
	}
	return models.VideoPage{
		Items:      items,
		Page:       query.Page,
		Limit:      query.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
