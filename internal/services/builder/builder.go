// Package builder runs the static-site build: fetch, shorten, render and
// aggregate.
package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/comment-archive/internal/aggregate"
	"github.com/j-veylop/comment-archive/internal/logger"
	"github.com/j-veylop/comment-archive/internal/models"
	"github.com/j-veylop/comment-archive/internal/render"
)

// Store is the comment storage the builder reads and updates.
type Store interface {
	UpsertComments(ctx context.Context, comments []models.Comment) (int, error)
	LatestCreatedAt(ctx context.Context) (time.Time, error)
	EarliestDate(ctx context.Context) (time.Time, error)
	CommentsOnDate(ctx context.Context, day time.Time) ([]models.Comment, error)
	RecentComments(ctx context.Context, limit int) ([]models.Comment, error)
	AllComments(ctx context.Context) ([]models.Comment, error)
	CommentsMissingShortURL(ctx context.Context) ([]models.Comment, error)
	SetShortURL(ctx context.Context, id int64, shortURL string) error
}

// Fetcher retrieves comments from the remote source.
type Fetcher interface {
	FetchComments(ctx context.Context, since time.Time) ([]models.Comment, error)
}

// Shortener produces short URLs.
type Shortener interface {
	ShortenURL(ctx context.Context, longURL string) (string, error)
}

// Renderer writes pages. Every method returns the number of comments the
// page covers.
type Renderer interface {
	OutputDir() string
	RenderDay(date time.Time, comments []models.Comment) (int, error)
	RenderMonth(month models.Month, days []models.DateCount) (int, error)
	RenderYear(year int, months []models.MonthCount) (int, error)
	RenderIndex(days []models.DateCount, meta render.IndexMeta) (int, error)
	RenderLatest(comments []models.Comment) (int, error)
}

// Exporter writes a dump of all comments and returns its path.
type Exporter interface {
	Export(comments []models.Comment) (string, error)
}

// Deps are the collaborators of a build. Fetcher, Shortener and Exporter
// are optional.
type Deps struct {
	Store     Store
	Fetcher   Fetcher
	Shortener Shortener
	Renderer  Renderer
	Exporter  Exporter
}

// Config holds build settings.
type Config struct {
	LatestCount        int
	ShortenConcurrency int
	ActivityDays       int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LatestCount:        30,
		ShortenConcurrency: 5,
		ActivityDays:       60,
	}
}

// Builder runs builds. It holds no state between builds and is not safe for
// concurrent use.
type Builder struct {
	deps   Deps
	now    func() time.Time
	config Config
}

// New creates a builder.
func New(deps Deps, config Config) (*Builder, error) {
	if deps.Store == nil {
		return nil, errors.New("builder requires a store")
	}
	if deps.Renderer == nil {
		return nil, errors.New("builder requires a renderer")
	}

	defaults := DefaultConfig()
	if config.LatestCount <= 0 {
		config.LatestCount = defaults.LatestCount
	}
	if config.ShortenConcurrency <= 0 {
		config.ShortenConcurrency = defaults.ShortenConcurrency
	}
	if config.ActivityDays < 0 {
		config.ActivityDays = 0
	}

	return &Builder{
		deps:   deps,
		config: config,
		now:    time.Now,
	}, nil
}

// Build runs one complete build. Any failing step aborts the build; pages
// written before the failure are left in place and rewritten by the next build.
func (b *Builder) Build(ctx context.Context, opts models.BuildOptions) (*models.BuildResult, error) {
	log := logger.WithPhase("build")
	result := &models.BuildResult{
		StartedAt: b.now(),
		OutputDir: b.deps.Renderer.OutputDir(),
	}

	log.Info().Bool("force", opts.Force).Bool("skip_fetch", opts.SkipFetch).Msg("build started")

	if err := b.fetch(ctx, opts, result); err != nil {
		return result, err
	}

	if b.deps.Shortener != nil {
		n, err := b.shortenAll(ctx)
		result.Shortened = n
		if err != nil {
			return result, err
		}
	}

	days, err := b.renderDays(ctx, result)
	if err != nil {
		return result, err
	}

	if err := b.renderAggregates(days, result); err != nil {
		return result, err
	}

	if err := b.renderLatest(ctx, result); err != nil {
		return result, err
	}

	if err := b.renderIndex(days); err != nil {
		return result, err
	}

	if b.deps.Exporter != nil {
		if err := b.export(ctx, result); err != nil {
			return result, err
		}
	}

	result.FinishedAt = b.now()
	log.Info().
		Int("days", result.Days).
		Int("months", result.Months).
		Int("total", result.Total).
		Dur("duration", result.Duration()).
		Msg("build completed")

	return result, nil
}

func (b *Builder) fetch(ctx context.Context, opts models.BuildOptions, result *models.BuildResult) error {
	log := logger.WithPhase("fetch")
	if opts.SkipFetch || b.deps.Fetcher == nil {
		result.SkippedFetch = true
		log.Debug().Msg("fetch skipped")
		return nil
	}

	var since time.Time
	if !opts.Force {
		latest, err := b.deps.Store.LatestCreatedAt(ctx)
		if err != nil {
			return fmt.Errorf("failed to read latest comment: %w", err)
		}
		since = latest
	}

	comments, err := b.deps.Fetcher.FetchComments(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to fetch comments: %w", err)
	}

	inserted, err := b.deps.Store.UpsertComments(ctx, comments)
	if err != nil {
		return fmt.Errorf("failed to store comments: %w", err)
	}
	result.Fetched = inserted

	log.Info().
		Time("since", since).
		Int("received", len(comments)).
		Int("new", inserted).
		Msg("fetched comments")
	return nil
}

// buildRange returns the first and last day to render: the earliest
// comment's day through today, extended to the newest comment's day if a
// comment is dated in the future.
func (b *Builder) buildRange(ctx context.Context) (time.Time, time.Time, error) {
	first, err := b.deps.Store.EarliestDate(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to read earliest comment: %w", err)
	}

	last := models.DayOf(b.now())
	latest, err := b.deps.Store.LatestCreatedAt(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to read latest comment: %w", err)
	}
	if day := models.DayOf(latest); day.After(last) {
		last = day
	}

	return first, last, nil
}

func (b *Builder) renderDays(ctx context.Context, result *models.BuildResult) ([]models.DateCount, error) {
	log := logger.WithPhase("days")

	first, last, err := b.buildRange(ctx)
	if err != nil {
		return nil, err
	}
	result.FirstDay, result.LastDay = first, last

	dates := aggregate.DateRange(first, last)
	days := make([]models.DateCount, 0, len(dates))
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		comments, err := b.deps.Store.CommentsOnDate(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("failed to load comments for %s: %w", date.Format(models.DayLayout), err)
		}

		n, err := b.deps.Renderer.RenderDay(date, comments)
		if err != nil {
			return nil, fmt.Errorf("failed to render day %s: %w", date.Format(models.DayLayout), err)
		}
		days = append(days, models.DateCount{Date: date, Count: n})
	}

	result.Days = len(days)
	log.Info().
		Str("first", first.Format(models.DayLayout)).
		Str("last", last.Format(models.DayLayout)).
		Int("days", len(days)).
		Msg("rendered day pages")
	return days, nil
}

func (b *Builder) renderAggregates(days []models.DateCount, result *models.BuildResult) error {
	log := logger.WithPhase("aggregate")

	months := 0
	onMonth := func(month models.Month, days []models.DateCount) (int, error) {
		months++
		return b.deps.Renderer.RenderMonth(month, days)
	}

	var years []models.YearCount
	onYear := func(year int, monthCounts []models.MonthCount) (int, error) {
		n, err := b.deps.Renderer.RenderYear(year, monthCounts)
		if err != nil {
			return 0, err
		}
		years = append(years, models.YearCount{Year: year, Count: n})
		return n, nil
	}

	total, err := aggregate.Days(days, onMonth, onYear)
	if err != nil {
		return fmt.Errorf("failed to aggregate days: %w", err)
	}

	result.Months = months
	result.Years = years
	result.Total = total
	log.Info().Int("months", months).Int("years", len(years)).Int("total", total).Msg("rendered month and year pages")
	return nil
}

func (b *Builder) renderLatest(ctx context.Context, result *models.BuildResult) error {
	comments, err := b.deps.Store.RecentComments(ctx, b.config.LatestCount)
	if err != nil {
		return fmt.Errorf("failed to load recent comments: %w", err)
	}

	n, err := b.deps.Renderer.RenderLatest(comments)
	if err != nil {
		return fmt.Errorf("failed to render latest page: %w", err)
	}
	result.Latest = n
	return nil
}

func (b *Builder) renderIndex(days []models.DateCount) error {
	reversed := make([]models.DateCount, len(days))
	for i, d := range days {
		reversed[len(days)-1-i] = d
	}

	meta := render.IndexMeta{
		LastUpdated:  b.now(),
		ActivityDays: b.config.ActivityDays,
	}
	if _, err := b.deps.Renderer.RenderIndex(reversed, meta); err != nil {
		return fmt.Errorf("failed to render index: %w", err)
	}
	return nil
}

func (b *Builder) export(ctx context.Context, result *models.BuildResult) error {
	comments, err := b.deps.Store.AllComments(ctx)
	if err != nil {
		return fmt.Errorf("failed to load comments for export: %w", err)
	}

	path, err := b.deps.Exporter.Export(comments)
	if err != nil {
		return fmt.Errorf("failed to export comments: %w", err)
	}
	result.ExportPath = path

	log := logger.WithPhase("export")
	log.Info().Str("path", path).Int("comments", len(comments)).Msg("exported comments")
	return nil
}
