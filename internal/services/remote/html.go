package remote

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/j-veylop/comment-archive/internal/models"
)

// ParseHTML extracts comments from an HTML page. Each comment is an element
// carrying a data-comment-id attribute with a time[datetime] child, an
// a.permalink and optional .author and .body children. Relative permalinks
// are resolved against pageURL.
func ParseHTML(body []byte, pageURL string) ([]models.Comment, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	var comments []models.Comment
	var parseErr error
	doc.Find("[data-comment-id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id := strings.TrimSpace(s.AttrOr("data-comment-id", ""))
		if id == "" {
			return true
		}

		datetime, ok := s.Find("time[datetime]").First().Attr("datetime")
		if !ok {
			parseErr = fmt.Errorf("comment %s has no time element", id)
			return false
		}
		created, err := ParseTime(strings.TrimSpace(datetime))
		if err != nil {
			parseErr = fmt.Errorf("comment %s: %w", id, err)
			return false
		}

		href := strings.TrimSpace(s.Find("a.permalink").First().AttrOr("href", ""))
		if href == "" {
			parseErr = fmt.Errorf("comment %s has no permalink", id)
			return false
		}
		link, err := base.Parse(href)
		if err != nil {
			parseErr = fmt.Errorf("comment %s has invalid permalink %q: %w", id, href, err)
			return false
		}

		comments = append(comments, models.Comment{
			RemoteID:  id,
			Author:    strings.TrimSpace(s.Find(".author").First().Text()),
			Body:      strings.TrimSpace(s.Find(".body").First().Text()),
			URL:       link.String(),
			CreatedAt: created,
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return comments, nil
}
