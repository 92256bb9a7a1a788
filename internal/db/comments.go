package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/comment-archive/internal/logger"
	"github.com/j-veylop/comment-archive/internal/models"
)

// ErrNoComments is returned by EarliestDate when the store is empty.
var ErrNoComments = errors.New("no comments in database")

const commentColumns = `id, remote_id, author, body, url, short_url, created_at`

var timeFormats = []string{
	timeLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700 MST",
}

func parseTimeString(s string) (time.Time, bool) {
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// UpsertComments inserts new comments and refreshes existing ones, matched by
// remote ID. A comment whose URL changed loses its short URL so it gets
// shortened again. It returns how many comments were new.
func (db *DB) UpsertComments(ctx context.Context, comments []models.Comment) (int, error) {
	if len(comments) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var before int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&before); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO comments (remote_id, author, body, url, short_url, created_at, fetched_at)
		VALUES (?, ?, ?, ?, '', ?, ?)
		ON CONFLICT(remote_id) DO UPDATE SET
			author = excluded.author,
			body = excluded.body,
			short_url = CASE WHEN comments.url = excluded.url THEN comments.short_url ELSE '' END,
			url = excluded.url,
			created_at = excluded.created_at,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	fetchedAt := formatTime(time.Now())
	for i := range comments {
		c := &comments[i]
		if c.RemoteID == "" {
			return 0, fmt.Errorf("comment with URL %q has no remote ID", c.URL)
		}
		if c.CreatedAt.IsZero() {
			return 0, fmt.Errorf("comment %s has no creation time", c.RemoteID)
		}
		if _, err := stmt.ExecContext(ctx,
			c.RemoteID, c.Author, c.Body, c.URL, formatTime(c.CreatedAt), fetchedAt,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert comment %s: %w", c.RemoteID, err)
		}
	}

	var after int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&after); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit comments: %w", err)
	}

	return after - before, nil
}

// EarliestDate returns the UTC calendar day of the oldest stored comment.
func (db *DB) EarliestDate(ctx context.Context) (time.Time, error) {
	var created sql.NullString
	err := db.QueryRowContext(ctx, "SELECT MIN(created_at) FROM comments").Scan(&created)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query earliest comment: %w", err)
	}
	if !created.Valid {
		return time.Time{}, ErrNoComments
	}

	t, ok := parseTimeString(created.String)
	if !ok {
		return time.Time{}, fmt.Errorf("failed to parse earliest comment time %q", created.String)
	}
	return models.DayOf(t), nil
}

// LatestCreatedAt returns the creation time of the newest stored comment, or
// the zero time when the store is empty.
func (db *DB) LatestCreatedAt(ctx context.Context) (time.Time, error) {
	var created sql.NullString
	err := db.QueryRowContext(ctx, "SELECT MAX(created_at) FROM comments").Scan(&created)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest comment: %w", err)
	}
	if !created.Valid {
		return time.Time{}, nil
	}

	t, ok := parseTimeString(created.String)
	if !ok {
		return time.Time{}, fmt.Errorf("failed to parse latest comment time %q", created.String)
	}
	return t, nil
}

// CommentsOnDate returns every comment created on the given UTC day, newest
// first.
func (db *DB) CommentsOnDate(ctx context.Context, day time.Time) ([]models.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments
		WHERE created_at LIKE ?
		ORDER BY created_at DESC, id DESC`

	prefix := day.UTC().Format(dayPrefixLayout) + "%"
	return db.queryComments(ctx, "comments on date", query, prefix)
}

// RecentComments returns the limit most recent comments, newest first.
func (db *DB) RecentComments(ctx context.Context, limit int) ([]models.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments
		ORDER BY created_at DESC, id DESC
		LIMIT ?`
	return db.queryComments(ctx, "recent comments", query, limit)
}

// AllComments returns every stored comment, oldest first.
func (db *DB) AllComments(ctx context.Context) ([]models.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments
		ORDER BY created_at ASC, id ASC`
	return db.queryComments(ctx, "all comments", query)
}

// CommentsMissingShortURL returns comments with a URL that have not been
// shortened yet.
func (db *DB) CommentsMissingShortURL(ctx context.Context) ([]models.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments
		WHERE short_url = '' AND url != ''
		ORDER BY id ASC`
	return db.queryComments(ctx, "unshortened comments", query)
}

// SetShortURL records the short URL for a comment.
func (db *DB) SetShortURL(ctx context.Context, id int64, shortURL string) error {
	result, err := db.ExecContext(ctx, "UPDATE comments SET short_url = ? WHERE id = ?", shortURL, id)
	if err != nil {
		return fmt.Errorf("failed to set short URL: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to set short URL: comment %d not found", id)
	}
	return nil
}

// CountComments returns the number of stored comments.
func (db *DB) CountComments(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

func (db *DB) queryComments(ctx context.Context, what, query string, args ...any) ([]models.Comment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var created string
		if err := rows.Scan(&c.ID, &c.RemoteID, &c.Author, &c.Body, &c.URL, &c.ShortURL, &created); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		t, ok := parseTimeString(created)
		if !ok {
			return nil, fmt.Errorf("failed to parse creation time %q of comment %s", created, c.RemoteID)
		}
		c.CreatedAt = t
		comments = append(comments, c)
	}

	return comments, rows.Err()
}
