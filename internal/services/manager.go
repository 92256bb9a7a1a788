// Package services provides service orchestration for the CLI and the watch TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/comment-archive/internal/aggregate"
	"github.com/j-veylop/comment-archive/internal/config"
	"github.com/j-veylop/comment-archive/internal/db"
	"github.com/j-veylop/comment-archive/internal/logger"
	"github.com/j-veylop/comment-archive/internal/models"
	"github.com/j-veylop/comment-archive/internal/render"
	"github.com/j-veylop/comment-archive/internal/services/builder"
	"github.com/j-veylop/comment-archive/internal/services/export"
	"github.com/j-veylop/comment-archive/internal/services/publish"
	"github.com/j-veylop/comment-archive/internal/services/remote"
	"github.com/j-veylop/comment-archive/internal/services/watcher"
)

type (
	// BuildStartedEvent is emitted when a build begins.
	BuildStartedEvent struct {
		StartedAt time.Time
		Options   models.BuildOptions
	}

	// BuildCompletedEvent is emitted when a build finishes, successfully or not.
	BuildCompletedEvent struct {
		Error  error
		Result *models.BuildResult
		Run    models.BuildRun
	}

	// TemplatesChangedEvent is emitted when a template file changes.
	TemplatesChangedEvent struct {
		Path string
	}

	// PublishedEvent is emitted after the site is uploaded.
	PublishedEvent struct {
		Bucket  string
		Objects int
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Error   error
		Service string
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (BuildStartedEvent) isServiceEvent()     {}
func (BuildCompletedEvent) isServiceEvent()   {}
func (TemplatesChangedEvent) isServiceEvent() {}
func (PublishedEvent) isServiceEvent()        {}
func (ErrorEvent) isServiceEvent()            {}

// ErrClosed is returned by Build after Close.
var ErrClosed = errors.New("manager closed")

// Manager owns the database and remote client, runs builds one at a time
// and routes events to subscribers.
type Manager struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cfg         *config.Config
	database    *db.DB
	remote      *remote.Client
	publisher   *publish.Publisher
	watcher     *watcher.Watcher
	pending     *models.BuildOptions
	notify      func(title, message string) error
	stopChan    chan struct{}
	subscribers []chan ServiceEvent
	wg          sync.WaitGroup
	mu          sync.RWMutex
	buildMu     sync.Mutex
	stateMu     sync.Mutex
	building    bool
	closed      bool
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		stopChan: make(chan struct{}),
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	remoteConfig := remote.DefaultConfig()
	remoteConfig.SourceURLs = cfg.SourceURLs
	remoteConfig.Format = remote.Format(cfg.SourceFormat)
	remoteConfig.ShortenerURL = cfg.ShortenerURL
	remoteConfig.ShortenerToken = cfg.ShortenerToken
	remoteConfig.Timeout = cfg.FetchTimeout
	remoteConfig.Retries = cfg.FetchRetries
	m.remote = remote.New(nil, remoteConfig)

	if cfg.PublishingEnabled() {
		m.publisher, err = publish.New(ctx, cfg.PublishBucket, cfg.PublishPrefix)
		if err != nil {
			_ = m.database.Close()
			cancel()
			return nil, fmt.Errorf("failed to initialize publisher: %w", err)
		}
	}

	return m, nil
}

// newBuilder wires a builder for one build. The renderer is recreated every
// time so template edits are picked up.
func (m *Manager) newBuilder() (*builder.Builder, error) {
	renderer, err := render.New(m.cfg.OutputDir, m.cfg.TemplateDir, m.cfg.Site)
	if err != nil {
		return nil, err
	}

	deps := builder.Deps{
		Store:    m.database,
		Fetcher:  m.remote,
		Renderer: renderer,
	}
	if m.remote.ShorteningEnabled() {
		deps.Shortener = m.remote
	}
	if m.cfg.ExportParquet {
		deps.Exporter = export.New(m.cfg.OutputDir)
	}

	return builder.New(deps, builder.Config{
		LatestCount:        m.cfg.LatestCount,
		ShortenConcurrency: m.cfg.ShortenConcurrency,
		ActivityDays:       60,
	})
}

// Build runs one build and waits for it. Builds never overlap: a call made
// while another build runs waits for it to finish first. When publishing is
// configured a successful build is uploaded.
func (m *Manager) Build(ctx context.Context, opts models.BuildOptions) (*models.BuildResult, error) {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	if m.isClosed() {
		return nil, ErrClosed
	}

	startedAt := time.Now()
	m.broadcast(BuildStartedEvent{StartedAt: startedAt, Options: opts})

	result, err := m.runBuild(ctx, opts)
	if err == nil && m.publisher != nil {
		var n int
		n, err = m.publisher.Publish(ctx, m.cfg.OutputDir)
		if err == nil {
			result.Published = n
			m.broadcast(PublishedEvent{Bucket: m.publisher.Bucket(), Objects: n})
		}
	}

	run := models.RunFromResult(startedAt, result, opts, err)
	if run.Duration == 0 {
		run.Duration = time.Since(startedAt)
	}
	if recErr := m.database.InsertBuildRun(context.WithoutCancel(ctx), &run); recErr != nil {
		logger.Error("failed to record build run", "error", recErr)
	}

	m.broadcast(BuildCompletedEvent{Result: result, Run: run, Error: err})
	m.notifyBuild(result, err)

	return result, err
}

func (m *Manager) runBuild(ctx context.Context, opts models.BuildOptions) (*models.BuildResult, error) {
	b, err := m.newBuilder()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare build: %w", err)
	}
	return b.Build(ctx, opts)
}

// RequestBuild starts a build in the background. Requests made while a
// build is running are merged into a single follow-up build.
func (m *Manager) RequestBuild(opts models.BuildOptions) {
	m.stateMu.Lock()
	if m.closed {
		m.stateMu.Unlock()
		return
	}
	if m.building {
		if m.pending == nil {
			m.pending = &opts
		} else {
			m.pending.Force = m.pending.Force || opts.Force
			m.pending.SkipFetch = m.pending.SkipFetch && opts.SkipFetch
		}
		m.stateMu.Unlock()
		return
	}
	m.building = true
	m.wg.Add(1)
	m.stateMu.Unlock()

	go m.buildLoop(opts)
}

func (m *Manager) buildLoop(opts models.BuildOptions) {
	defer m.wg.Done()

	for {
		if _, err := m.Build(m.ctx, opts); err != nil {
			logger.Warn("background build failed", "error", err)
		}

		m.stateMu.Lock()
		if m.pending == nil || m.closed {
			m.building = false
			m.pending = nil
			m.stateMu.Unlock()
			return
		}
		opts = *m.pending
		m.pending = nil
		m.stateMu.Unlock()
	}
}

// Building reports whether a background build is running.
func (m *Manager) Building() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.building
}

func (m *Manager) isClosed() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.closed
}

// StartWatching watches the template directory (if configured) and polls
// the remote source every REFRESH_INTERVAL until Close.
func (m *Manager) StartWatching() error {
	if m.cfg.TemplateDir != "" {
		w, err := watcher.New(m.cfg.TemplateDir, watcher.DefaultDebounce)
		if err != nil {
			return fmt.Errorf("failed to start template watcher: %w", err)
		}
		m.watcher = w
	}

	m.wg.Add(1)
	go m.routeEvents()
	return nil
}

// routeEvents turns watcher events and poll ticks into builds.
func (m *Manager) routeEvents() {
	defer m.wg.Done()

	var ticks <-chan time.Time
	if m.cfg.RefreshInterval > 0 {
		ticker := time.NewTicker(m.cfg.RefreshInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	var watchEvents <-chan watcher.Event
	if m.watcher != nil {
		watchEvents = m.watcher.Events()
	}

	for {
		select {
		case event := <-watchEvents:
			m.handleWatcherEvent(event)

		case <-ticks:
			logger.Debug("refresh interval elapsed")
			m.RequestBuild(models.BuildOptions{})

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleWatcherEvent(event watcher.Event) {
	switch event.Type {
	case watcher.EventTemplatesChanged:
		logger.Info("templates changed", "path", event.Path)
		m.broadcast(TemplatesChangedEvent{Path: event.Path})
		m.RequestBuild(models.BuildOptions{SkipFetch: true})

	case watcher.EventError:
		m.broadcast(ErrorEvent{
			Service: "watcher",
			Error:   event.Error,
		})
	}
}

func (m *Manager) notifyBuild(result *models.BuildResult, err error) {
	if !m.cfg.Notify || m.notify == nil {
		return
	}

	title := "Comment archive built"
	body := ""
	if err != nil {
		title = "Comment archive build failed"
		body = err.Error()
	} else if result != nil {
		body = fmt.Sprintf("%d comments over %d days (%d new)", result.Total, result.Days, result.Fetched)
	}

	if nErr := m.notify(title, body); nErr != nil {
		logger.Debug("desktop notification failed", "error", nErr)
	}
}

// Publish uploads the current output directory without building.
func (m *Manager) Publish(ctx context.Context) (int, error) {
	if m.publisher == nil {
		return 0, publish.ErrNoBucket
	}

	n, err := m.publisher.Publish(ctx, m.cfg.OutputDir)
	if err != nil {
		m.broadcast(ErrorEvent{Service: "publish", Error: err})
		return n, err
	}
	m.broadcast(PublishedEvent{Bucket: m.publisher.Bucket(), Objects: n})
	return n, nil
}

// Stats summarizes the archive.
type Stats struct {
	First  time.Time
	Last   time.Time
	Years  []models.YearCount
	Months []models.MonthCount
	Recent []models.DateCount
	Runs   []models.BuildRun
	Total  int
}

// Stats returns archive totals, per-day counts for the last recentDays days
// and the most recent build runs.
func (m *Manager) Stats(ctx context.Context, recentDays int) (*Stats, error) {
	total, err := m.database.CountComments(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: total}

	stats.Runs, err = m.database.RecentBuildRuns(ctx, 10)
	if err != nil {
		return nil, err
	}

	first, err := m.database.EarliestDate(ctx)
	if errors.Is(err, db.ErrNoComments) {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}

	last := models.DayOf(time.Now())
	if latest, err := m.database.LatestCreatedAt(ctx); err == nil && models.DayOf(latest).After(last) {
		last = models.DayOf(latest)
	}
	stats.First, stats.Last = first, last

	sparse, err := m.database.DailyCounts(ctx, first)
	if err != nil {
		return nil, err
	}
	days := aggregate.FillDays(sparse, first, last)

	summary, err := aggregate.Summarize(days)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize: %w", err)
	}
	stats.Years = summary.Years
	stats.Months = summary.Months

	if recentDays > 0 && recentDays < len(days) {
		days = days[len(days)-recentDays:]
	}
	stats.Recent = days

	return stats, nil
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return event
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close stops background work, waits for a running build to end and closes
// the database.
func (m *Manager) Close() error {
	m.stateMu.Lock()
	if m.closed {
		m.stateMu.Unlock()
		return nil
	}
	m.closed = true
	m.stateMu.Unlock()

	close(m.stopChan)
	m.cancel()

	var errs []error
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	m.wg.Wait()

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	if err := m.database.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
