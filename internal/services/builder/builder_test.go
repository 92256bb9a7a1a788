package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/j-veylop/comment-archive/internal/config"
	"github.com/j-veylop/comment-archive/internal/db"
	"github.com/j-veylop/comment-archive/internal/models"
	"github.com/j-veylop/comment-archive/internal/render"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func comment(id string, created time.Time) models.Comment {
	return models.Comment{RemoteID: id, URL: "https://example.com/" + id, CreatedAt: created}
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	comments map[string]models.Comment
	err      error
	nextID   int64
	mu       sync.Mutex
}

func newFakeStore(comments ...models.Comment) *fakeStore {
	s := &fakeStore{comments: make(map[string]models.Comment)}
	_, _ = s.UpsertComments(context.Background(), comments)
	return s
}

func (s *fakeStore) sorted() []models.Comment {
	var out []models.Comment
	for _, c := range s.comments {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *fakeStore) UpsertComments(_ context.Context, comments []models.Comment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, c := range comments {
		if existing, ok := s.comments[c.RemoteID]; ok {
			c.ID = existing.ID
			c.ShortURL = existing.ShortURL
		} else {
			s.nextID++
			c.ID = s.nextID
			inserted++
		}
		s.comments[c.RemoteID] = c
	}
	return inserted, nil
}

func (s *fakeStore) LatestCreatedAt(context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted()
	if len(all) == 0 {
		return time.Time{}, nil
	}
	return all[len(all)-1].CreatedAt, nil
}

func (s *fakeStore) EarliestDate(context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted()
	if len(all) == 0 {
		return time.Time{}, db.ErrNoComments
	}
	return all[0].Day(), nil
}

func (s *fakeStore) CommentsOnDate(_ context.Context, day time.Time) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Comment
	all := s.sorted()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Day().Equal(day) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *fakeStore) RecentComments(_ context.Context, limit int) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted()
	var out []models.Comment
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *fakeStore) AllComments(context.Context) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(), nil
}

func (s *fakeStore) CommentsMissingShortURL(context.Context) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Comment
	for _, c := range s.sorted() {
		if c.ShortURL == "" && c.URL != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) SetShortURL(_ context.Context, id int64, shortURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.comments {
		if c.ID == id {
			c.ShortURL = shortURL
			s.comments[key] = c
			return nil
		}
	}
	return errors.New("not found")
}

type fakeFetcher struct {
	err      error
	comments []models.Comment
	since    []time.Time
}

func (f *fakeFetcher) FetchComments(_ context.Context, since time.Time) ([]models.Comment, error) {
	f.since = append(f.since, since)
	return f.comments, f.err
}

type fakeShortener struct {
	failOn string
	mu     sync.Mutex
	calls  int
}

func (f *fakeShortener) ShortenURL(_ context.Context, longURL string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if longURL == f.failOn {
		return "", errors.New("shortener down")
	}
	return "https://sho.rt/" + filepath.Base(longURL), nil
}

// recordingRenderer records every page instead of writing files.
type recordingRenderer struct {
	monthErr  error
	days      map[time.Time]int
	index     []models.DateCount
	latest    []models.Comment
	months    []models.Month
	years     []int
	indexMeta render.IndexMeta
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{days: make(map[time.Time]int)}
}

func (r *recordingRenderer) OutputDir() string { return "out" }

func (r *recordingRenderer) RenderDay(date time.Time, comments []models.Comment) (int, error) {
	r.days[date] = len(comments)
	return len(comments), nil
}

func (r *recordingRenderer) RenderMonth(month models.Month, days []models.DateCount) (int, error) {
	if r.monthErr != nil {
		return 0, r.monthErr
	}
	r.months = append(r.months, month)
	return models.SumDays(days), nil
}

func (r *recordingRenderer) RenderYear(year int, months []models.MonthCount) (int, error) {
	r.years = append(r.years, year)
	return models.SumMonths(months), nil
}

func (r *recordingRenderer) RenderIndex(days []models.DateCount, meta render.IndexMeta) (int, error) {
	r.index = days
	r.indexMeta = meta
	return models.SumDays(days), nil
}

func (r *recordingRenderer) RenderLatest(comments []models.Comment) (int, error) {
	r.latest = comments
	return len(comments), nil
}

type fakeExporter struct {
	got []models.Comment
}

func (e *fakeExporter) Export(comments []models.Comment) (string, error) {
	e.got = comments
	return "out/comments.parquet", nil
}

func newTestBuilder(t *testing.T, deps Deps, now time.Time) *Builder {
	t.Helper()
	b, err := New(deps, Config{LatestCount: 2, ShortenConcurrency: 2, ActivityDays: 60})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b.now = func() time.Time { return now }
	return b
}

func TestBuild(t *testing.T) {
	store := newFakeStore(comment("old", time.Date(2023, 12, 30, 9, 0, 0, 0, time.UTC)))
	fetcher := &fakeFetcher{comments: []models.Comment{
		comment("a", time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)),
		comment("b", time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)),
		comment("c", time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)),
	}}
	renderer := newRecordingRenderer()
	exporter := &fakeExporter{}
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

	b := newTestBuilder(t, Deps{
		Store:     store,
		Fetcher:   fetcher,
		Shortener: &fakeShortener{},
		Renderer:  renderer,
		Exporter:  exporter,
	}, now)

	result, err := b.Build(context.Background(), models.BuildOptions{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	wantResult := &models.BuildResult{
		StartedAt:  now,
		FinishedAt: now,
		FirstDay:   date(2023, 12, 30),
		LastDay:    date(2024, 1, 3),
		OutputDir:  "out",
		ExportPath: "out/comments.parquet",
		Years:      []models.YearCount{{Year: 2023, Count: 2}, {Year: 2024, Count: 2}},
		Fetched:    3,
		Shortened:  4,
		Days:       5,
		Months:     2,
		Total:      4,
		Latest:     2,
	}
	if diff := cmp.Diff(wantResult, result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	// Incremental fetch asks for comments after the newest stored one.
	if want := time.Date(2023, 12, 30, 9, 0, 0, 0, time.UTC); !fetcher.since[0].Equal(want) {
		t.Errorf("Expected since %v, got %v", want, fetcher.since[0])
	}

	wantDays := map[time.Time]int{
		date(2023, 12, 30): 1,
		date(2023, 12, 31): 1,
		date(2024, 1, 1):   0,
		date(2024, 1, 2):   2,
		date(2024, 1, 3):   0,
	}
	if diff := cmp.Diff(wantDays, renderer.days); diff != "" {
		t.Errorf("day pages mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{2023, 2024}, renderer.years); diff != "" {
		t.Errorf("year pages mismatch (-want +got):\n%s", diff)
	}

	if got := renderer.index[0].Date; !got.Equal(date(2024, 1, 3)) {
		t.Errorf("Expected index to start with newest day, got %v", got)
	}
	if !renderer.indexMeta.LastUpdated.Equal(now) {
		t.Errorf("Expected last updated %v, got %v", now, renderer.indexMeta.LastUpdated)
	}

	if len(renderer.latest) != 2 || renderer.latest[0].RemoteID != "c" {
		t.Errorf("Expected latest page to start with c, got %+v", renderer.latest)
	}
	if renderer.latest[0].ShortURL == "" {
		t.Error("Expected latest comments to carry short urls")
	}

	if len(exporter.got) != 4 {
		t.Errorf("Expected 4 exported comments, got %d", len(exporter.got))
	}
}

func TestBuild_Force(t *testing.T) {
	store := newFakeStore(comment("old", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	fetcher := &fakeFetcher{}
	b := newTestBuilder(t, Deps{Store: store, Fetcher: fetcher, Renderer: newRecordingRenderer()}, date(2024, 1, 1))

	if _, err := b.Build(context.Background(), models.BuildOptions{Force: true}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !fetcher.since[0].IsZero() {
		t.Errorf("Expected forced fetch without since, got %v", fetcher.since[0])
	}
}

func TestBuild_SkipFetch(t *testing.T) {
	store := newFakeStore(comment("old", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	fetcher := &fakeFetcher{}
	b := newTestBuilder(t, Deps{Store: store, Fetcher: fetcher, Renderer: newRecordingRenderer()}, date(2024, 1, 1))

	result, err := b.Build(context.Background(), models.BuildOptions{SkipFetch: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(fetcher.since) != 0 {
		t.Error("Expected fetcher not to be called")
	}
	if !result.SkippedFetch {
		t.Error("Expected SkippedFetch to be set")
	}
	if result.Days != 1 || result.Months != 1 || len(result.Years) != 1 {
		t.Errorf("Expected one day, month and year, got %+v", result)
	}
}

func TestBuild_FutureComment(t *testing.T) {
	store := newFakeStore(comment("future", time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)))
	b := newTestBuilder(t, Deps{Store: store, Renderer: newRecordingRenderer()}, date(2024, 1, 3))

	result, err := b.Build(context.Background(), models.BuildOptions{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("Expected the future comment to be counted, got total %d", result.Total)
	}
}

func TestBuild_Errors(t *testing.T) {
	monthErr := errors.New("disk full")
	fetchErr := errors.New("feed down")
	storeErr := errors.New("db locked")
	one := comment("x", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	tests := []struct {
		name   string
		deps   func() Deps
		target error
	}{
		{
			name: "EmptyStore",
			deps: func() Deps {
				return Deps{Store: newFakeStore(), Renderer: newRecordingRenderer()}
			},
			target: db.ErrNoComments,
		},
		{
			name: "FetchError",
			deps: func() Deps {
				return Deps{Store: newFakeStore(one), Fetcher: &fakeFetcher{err: fetchErr}, Renderer: newRecordingRenderer()}
			},
			target: fetchErr,
		},
		{
			name: "ShortenError",
			deps: func() Deps {
				return Deps{Store: newFakeStore(one), Shortener: &fakeShortener{failOn: one.URL}, Renderer: newRecordingRenderer()}
			},
		},
		{
			name: "StoreError",
			deps: func() Deps {
				store := newFakeStore(one)
				store.err = storeErr
				return Deps{Store: store, Renderer: newRecordingRenderer()}
			},
			target: storeErr,
		},
		{
			name: "MonthRenderError",
			deps: func() Deps {
				renderer := newRecordingRenderer()
				renderer.monthErr = monthErr
				return Deps{Store: newFakeStore(one), Renderer: renderer}
			},
			target: monthErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder(t, tt.deps(), date(2024, 1, 2))
			_, err := b.Build(context.Background(), models.BuildOptions{})
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestBuild_Cancelled(t *testing.T) {
	store := newFakeStore(comment("x", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	b := newTestBuilder(t, Deps{Store: store, Renderer: newRecordingRenderer()}, date(2024, 1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Build(ctx, models.BuildOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Renderer: newRecordingRenderer()}, Config{}); err == nil {
		t.Error("Expected error without store")
	}
	if _, err := New(Deps{Store: newFakeStore()}, Config{}); err == nil {
		t.Error("Expected error without renderer")
	}

	b, err := New(Deps{Store: newFakeStore(), Renderer: newRecordingRenderer()}, Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if diff := cmp.Diff(Config{LatestCount: 30, ShortenConcurrency: 5}, b.config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_WritesSite(t *testing.T) {
	store, err := db.New(filepath.Join(t.TempDir(), "comments.db"))
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	defer store.Close()

	out := t.TempDir()
	renderer, err := render.New(out, "", config.DefaultSite())
	if err != nil {
		t.Fatalf("render.New failed: %v", err)
	}

	fetcher := &fakeFetcher{comments: []models.Comment{
		comment("1", time.Date(2023, 12, 31, 22, 0, 0, 0, time.UTC)),
		comment("2", time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)),
	}}

	b := newTestBuilder(t, Deps{Store: store, Fetcher: fetcher, Renderer: renderer}, date(2024, 1, 2))
	result, err := b.Build(context.Background(), models.BuildOptions{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("Expected total 2, got %d", result.Total)
	}

	for _, page := range []string{
		"index.html",
		"latest/index.html",
		"2023/index.html",
		"2023/12/index.html",
		"2023/12/31/index.html",
		"2024/index.html",
		"2024/01/index.html",
		"2024/01/01/index.html",
		"2024/01/02/index.html",
	} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(page))); err != nil {
			t.Errorf("Expected page %s: %v", page, err)
		}
	}

	// A second build over the same store yields the same totals.
	again, err := b.Build(context.Background(), models.BuildOptions{SkipFetch: true})
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	if diff := cmp.Diff(result.Years, again.Years); diff != "" {
		t.Errorf("totals differ between builds (-first +second):\n%s", diff)
	}
}
