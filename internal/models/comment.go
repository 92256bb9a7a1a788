// Package models defines data structures and domain types.
package models

import "time"

// Comment is a single archived comment.
type Comment struct {
	CreatedAt time.Time
	RemoteID  string
	Author    string
	Body      string
	URL       string
	ShortURL  string
	ID        int64
}

// DisplayURL returns the short URL when one has been assigned, else the original URL.
func (c Comment) DisplayURL() string {
	if c.ShortURL != "" {
		return c.ShortURL
	}
	return c.URL
}

// Day returns the UTC calendar day the comment was created on.
func (c Comment) Day() time.Time {
	return DayOf(c.CreatedAt)
}
