package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/j-veylop/comment-archive/internal/db"
	"github.com/j-veylop/comment-archive/internal/models"
)

// countingShortener tracks how many requests are in flight at once.
type countingShortener struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *countingShortener) ShortenURL(ctx context.Context, longURL string) (string, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return longURL + "/s", nil
}

func TestShortenAll_BoundedConcurrency(t *testing.T) {
	var comments []models.Comment
	for i := 0; i < 20; i++ {
		comments = append(comments, comment(fmt.Sprintf("c%d", i), time.Date(2024, 1, 1, i, 0, 0, 0, time.UTC)))
	}
	store := newFakeStore(comments...)
	shortener := &countingShortener{}

	b := newTestBuilder(t, Deps{Store: store, Shortener: shortener, Renderer: newRecordingRenderer()}, date(2024, 1, 1))

	n, err := b.shortenAll(context.Background())
	if err != nil {
		t.Fatalf("shortenAll failed: %v", err)
	}
	if n != 20 {
		t.Errorf("Expected 20 shortened, got %d", n)
	}
	if peak := shortener.peak.Load(); peak > 2 {
		t.Errorf("Expected at most 2 concurrent requests, got %d", peak)
	}

	pending, _ := store.CommentsMissingShortURL(context.Background())
	if len(pending) != 0 {
		t.Errorf("Expected no pending comments, got %d", len(pending))
	}
}

func TestShortenAll_SkipsAlreadyShortened(t *testing.T) {
	store := newFakeStore(comment("a", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	shortener := &fakeShortener{}
	b := newTestBuilder(t, Deps{Store: store, Shortener: shortener, Renderer: newRecordingRenderer()}, date(2024, 1, 1))

	for i := 0; i < 2; i++ {
		if _, err := b.shortenAll(context.Background()); err != nil {
			t.Fatalf("shortenAll failed: %v", err)
		}
	}
	if shortener.calls != 1 {
		t.Errorf("Expected 1 shortener call, got %d", shortener.calls)
	}
}

func TestShortenAll_SQLiteStore(t *testing.T) {
	store, err := db.New(filepath.Join(t.TempDir(), "comments.db"))
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	defer store.Close()

	var comments []models.Comment
	for i := 0; i < 300; i++ {
		comments = append(comments, comment(fmt.Sprintf("c%d", i), time.Date(2024, 1, 1, 0, 0, i%60, 0, time.UTC)))
	}
	bare := comment("bare", time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC))
	bare.URL = ""
	comments = append(comments, bare)
	if _, err := store.UpsertComments(context.Background(), comments); err != nil {
		t.Fatalf("UpsertComments failed: %v", err)
	}

	shortener := &fakeShortener{}
	b, err := New(Deps{Store: store, Shortener: shortener, Renderer: newRecordingRenderer()},
		Config{LatestCount: 2, ShortenConcurrency: 8, ActivityDays: 60})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	n, err := b.shortenAll(context.Background())
	if err != nil {
		t.Fatalf("shortenAll failed: %v", err)
	}
	if n != 300 {
		t.Errorf("Expected 300 shortened, got %d", n)
	}
	if shortener.calls != 300 {
		t.Errorf("Expected 300 shortener calls, got %d", shortener.calls)
	}

	pending, err := store.CommentsMissingShortURL(context.Background())
	if err != nil {
		t.Fatalf("CommentsMissingShortURL failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending comments, got %d", len(pending))
	}
}
