package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type shortenRequest struct {
	URL string `json:"url"`
}

type shortenResponse struct {
	ShortURL string `json:"short_url"`
}

// ShortenURL asks the configured shortener for a short form of longURL.
func (c *Client) ShortenURL(ctx context.Context, longURL string) (string, error) {
	if !c.ShorteningEnabled() {
		return "", ErrShortenerDisabled
	}
	if longURL == "" {
		return "", fmt.Errorf("url is empty")
	}

	payload, err := json.Marshal(shortenRequest{URL: longURL})
	if err != nil {
		return "", fmt.Errorf("failed to encode shorten request: %w", err)
	}

	body, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.ShortenerURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.ShortenerToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.ShortenerToken)
		}
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to shorten %s: %w", longURL, err)
	}

	var resp shortenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse shorten response: %w", err)
	}
	if resp.ShortURL == "" {
		return "", fmt.Errorf("shortener returned no url for %s", longURL)
	}

	return resp.ShortURL, nil
}
