package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/j-veylop/comment-archive/internal/logger"
	"github.com/j-veylop/comment-archive/internal/models"
)

type feedComment struct {
	ID        json.RawMessage `json:"id"`
	Author    string          `json:"author"`
	Body      string          `json:"body"`
	URL       string          `json:"url"`
	CreatedAt string          `json:"created_at"`
}

type feedPage struct {
	Next     string        `json:"next"`
	Comments []feedComment `json:"comments"`
}

// FetchComments retrieves comments from the first configured source that
// answers. When since is non-zero only comments created at or after it are kept.
func (c *Client) FetchComments(ctx context.Context, since time.Time) ([]models.Comment, error) {
	if len(c.config.SourceURLs) == 0 {
		return nil, ErrNoSource
	}

	var lastErr error
	for _, source := range c.config.SourceURLs {
		comments, err := c.fetchSource(ctx, source, since)
		if err == nil {
			logger.Debug("fetched comments", "source", source, "count", len(comments))
			return comments, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("comment source failed", "source", source, "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("failed to fetch comments from any source: %w", lastErr)
}

func (c *Client) fetchSource(ctx context.Context, source string, since time.Time) ([]models.Comment, error) {
	pageURL, err := withSince(source, since)
	if err != nil {
		return nil, err
	}

	if c.config.Format == FormatHTML {
		body, err := c.get(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		comments, err := ParseHTML(body, pageURL)
		if err != nil {
			return nil, err
		}
		return filterSince(comments, since), nil
	}

	var comments []models.Comment
	seen := make(map[string]bool)
	for page := 0; pageURL != ""; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("feed %s exceeded %d pages", source, maxPages)
		}
		if seen[pageURL] {
			return nil, fmt.Errorf("feed %s has a pagination loop at %s", source, pageURL)
		}
		seen[pageURL] = true

		body, err := c.get(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		batch, next, err := parseJSONPage(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
		}
		comments = append(comments, batch...)

		pageURL, err = resolve(pageURL, next)
		if err != nil {
			return nil, err
		}
	}

	return filterSince(comments, since), nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		if c.config.Format == FormatHTML {
			req.Header.Set("Accept", "text/html")
		} else {
			req.Header.Set("Accept", "application/json")
		}
		return req, nil
	})
}

func parseJSONPage(body []byte) ([]models.Comment, string, error) {
	var page feedPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", err
	}

	comments := make([]models.Comment, 0, len(page.Comments))
	for _, fc := range page.Comments {
		id := rawID(fc.ID)
		if id == "" {
			return nil, "", fmt.Errorf("comment without id (url %q)", fc.URL)
		}
		created, err := ParseTime(fc.CreatedAt)
		if err != nil {
			return nil, "", fmt.Errorf("comment %s: %w", id, err)
		}
		comments = append(comments, models.Comment{
			RemoteID:  id,
			Author:    fc.Author,
			Body:      fc.Body,
			URL:       fc.URL,
			CreatedAt: created,
		})
	}

	return comments, page.Next, nil
}

// rawID accepts both string and numeric ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime parses a feed timestamp and returns it in UTC. Timestamps
// without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func withSince(source string, since time.Time) (string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("invalid source url %q: %w", source, err)
	}
	if !since.IsZero() {
		q := u.Query()
		q.Set("since", since.UTC().Format(time.RFC3339))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func resolve(base, next string) (string, error) {
	if next == "" {
		return "", nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	n, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("invalid next link %q: %w", next, err)
	}
	return b.ResolveReference(n).String(), nil
}

// filterSince drops comments older than since. Stored timestamps are
// truncated to the second, so comments at exactly since are kept and
// deduplicated on upsert.
func filterSince(comments []models.Comment, since time.Time) []models.Comment {
	if since.IsZero() {
		return comments
	}
	kept := comments[:0]
	for _, c := range comments {
		if !c.CreatedAt.Before(since) {
			kept = append(kept, c)
		}
	}
	return kept
}
