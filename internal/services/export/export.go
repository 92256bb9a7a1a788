// Package export writes the comment archive as a Parquet file.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/j-veylop/comment-archive/internal/models"
)

// FileName is the name of the export inside the output directory.
const FileName = "comments.parquet"

// Row is one exported comment.
type Row struct {
	RemoteID  string `parquet:"remote_id"`
	Day       string `parquet:"day"`
	Author    string `parquet:"author,optional"`
	Body      string `parquet:"body,optional"`
	URL       string `parquet:"url"`
	ShortURL  string `parquet:"short_url,optional"`
	CreatedAt int64  `parquet:"created_at_ms"`
}

// NewRow converts a comment into an export row.
func NewRow(c models.Comment) Row {
	return Row{
		RemoteID:  c.RemoteID,
		Day:       c.Day().Format(models.DayLayout),
		Author:    c.Author,
		Body:      c.Body,
		URL:       c.URL,
		ShortURL:  c.ShortURL,
		CreatedAt: c.CreatedAt.UnixMilli(),
	}
}

// Exporter writes comments to <dir>/comments.parquet.
type Exporter struct {
	dir string
}

// New creates an exporter writing into dir.
func New(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Path returns where Export writes.
func (e *Exporter) Path() string {
	return filepath.Join(e.dir, FileName)
}

// Export replaces the Parquet file with the given comments and returns its path.
func (e *Exporter) Export(comments []models.Comment) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	rows := make([]Row, len(comments))
	for i, c := range comments {
		rows[i] = NewRow(c)
	}

	path := e.Path()
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return path, nil
}
