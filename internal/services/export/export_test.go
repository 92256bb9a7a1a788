package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/parquet-go/parquet-go"

	"github.com/j-veylop/comment-archive/internal/models"
)

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	exporter := New(dir)

	created := time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC)
	comments := []models.Comment{
		{RemoteID: "1", Author: "ann", Body: "hello", URL: "https://example.com/1", ShortURL: "https://sho.rt/1", CreatedAt: created},
		{RemoteID: "2", URL: "https://example.com/2", CreatedAt: created.Add(time.Hour)},
	}

	path, err := exporter.Export(comments)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if path != filepath.Join(dir, FileName) {
		t.Errorf("Expected path %s, got %s", filepath.Join(dir, FileName), path)
	}

	got, err := parquet.ReadFile[Row](path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	want := []Row{
		{RemoteID: "1", Day: "2024-02-29", Author: "ann", Body: "hello", URL: "https://example.com/1", ShortURL: "https://sho.rt/1", CreatedAt: created.UnixMilli()},
		{RemoteID: "2", Day: "2024-03-01", URL: "https://example.com/2", CreatedAt: created.Add(time.Hour).UnixMilli()},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be removed")
	}
}

func TestExport_Replaces(t *testing.T) {
	exporter := New(t.TempDir())
	one := models.Comment{RemoteID: "1", URL: "https://example.com/1", CreatedAt: time.Now()}

	if _, err := exporter.Export([]models.Comment{one, one}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	path, err := exporter.Export([]models.Comment{one})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	got, err := parquet.ReadFile[Row](path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 row after replace, got %d", len(got))
	}
}
