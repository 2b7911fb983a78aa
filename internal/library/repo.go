package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"titletrack/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// ListFilter narrows List. Zero values mean no filter.
type ListFilter struct {
	Status        string
	Type          models.MediaType
	IncludeSecret bool
	Limit         int
	Offset        int
}

// RefreshTarget identifies a record that has a source URL to re-resolve.
type RefreshTarget struct {
	UserID string
	ID     string
}

const titleColumns = `id, user_id, title, type, status, progress, total, score,
	image_url, image_hint, source_url, is_secret, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, rec *models.TitleRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO titles (`+titleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.Title, string(rec.Type), rec.Status, rec.Progress, rec.Total, rec.Score,
		rec.ImageURL, rec.ImageHint, rec.SourceURL, rec.IsSecret, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert title: %w", err)
	}
	return nil
}

// Get returns the record or nil when the user has no such title.
func (r *Repo) Get(ctx context.Context, userID, id string) (*models.TitleRecord, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+titleColumns+`
		FROM titles
		WHERE user_id = ? AND id = ?
	`, userID, id)

	rec, err := scanTitle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get title: %w", err)
	}
	return rec, nil
}

func (r *Repo) List(ctx context.Context, userID string, f ListFilter) ([]models.TitleRecord, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.IncludeSecret {
		where = append(where, "is_secret = 0")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM titles WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+titleColumns+`
		FROM titles
		WHERE `+clause+`
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	out := make([]models.TitleRecord, 0, f.Limit)
	for rows.Next() {
		rec, err := scanTitle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan title row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// Update overwrites the user-editable fields. It reports false when the
// record does not exist.
func (r *Repo) Update(ctx context.Context, rec *models.TitleRecord) (bool, error) {
	rec.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE titles SET
			title = ?, type = ?, status = ?, progress = ?, total = ?, score = ?,
			image_url = ?, image_hint = ?, source_url = ?, is_secret = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`, rec.Title, string(rec.Type), rec.Status, rec.Progress, rec.Total, rec.Score,
		rec.ImageURL, rec.ImageHint, rec.SourceURL, rec.IsSecret, rec.UpdatedAt,
		rec.UserID, rec.ID)
	if err != nil {
		return false, fmt.Errorf("update title: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM titles
		WHERE user_id = ? AND id = ?
	`, userID, id)
	if err != nil {
		return false, fmt.Errorf("delete title: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ApplyRefresh raises the stored total and, when imageURL is non-empty,
// replaces the cover. The WHERE clause keeps totals monotonic even if two
// refreshes race: it reports false when the stored total is already >= total.
func (r *Repo) ApplyRefresh(ctx context.Context, userID, id string, total int, imageURL string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE titles SET
			total = ?,
			image_url = CASE WHEN ? <> '' THEN ? ELSE image_url END,
			updated_at = ?
		WHERE user_id = ? AND id = ? AND total < ?
	`, total, imageURL, imageURL, time.Now().UTC(), userID, id, total)
	if err != nil {
		return false, fmt.Errorf("apply refresh: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListWithSource pages through every record that has a source URL, oldest
// update first.
func (r *Repo) ListWithSource(ctx context.Context, limit, offset int) ([]RefreshTarget, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, id
		FROM titles
		WHERE source_url <> ''
		ORDER BY updated_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list refresh targets: %w", err)
	}
	defer rows.Close()

	var out []RefreshTarget
	for rows.Next() {
		var t RefreshTarget
		if err := rows.Scan(&t.UserID, &t.ID); err != nil {
			return nil, fmt.Errorf("scan refresh target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTitle(s scanner) (*models.TitleRecord, error) {
	var rec models.TitleRecord
	var typ string
	if err := s.Scan(&rec.ID, &rec.UserID, &rec.Title, &typ, &rec.Status, &rec.Progress, &rec.Total, &rec.Score,
		&rec.ImageURL, &rec.ImageHint, &rec.SourceURL, &rec.IsSecret, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Type = models.MediaType(typ)
	return &rec, nil
}
