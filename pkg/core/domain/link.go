package domain

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxTitleLength = 100

// Link is one entry on a principal's public page.
type Link struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Order       int64     `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeTitle trims the title and enforces 1..MaxTitleLength characters.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", invalid("title", "Title must be less than 100 characters.")
	}
	return title, nil
}

// NormalizeURL prefixes https:// when no http(s) scheme was given and
// checks the result is an absolute URL with a host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalid("url", "Please enter valid URL")
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "http://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || strings.ContainsAny(u.Host, " \t") {
		return "", invalid("url", "Please enter valid URL")
	}
	return raw, nil
}
