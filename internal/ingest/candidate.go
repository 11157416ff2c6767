package ingest

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"newsbot/internal/models"
)

// ErrMalformedCandidate marks a scraped record that cannot become an
// article. Such candidates are logged and dropped, never stored.
var ErrMalformedCandidate = errors.New("malformed candidate")

// The article id is the run of digits right before the first "-" of a path
// segment, e.g. /society/2061234-some-title/ -> 2061234.
var articleIDPattern = regexp.MustCompile(`/(\d+)-`)

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
}

// ArticleID extracts the stable article id from an article URL.
func ArticleID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url %q: %w", ErrMalformedCandidate, rawURL, err)
	}
	m := articleIDPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("%w: no article id in %q", ErrMalformedCandidate, rawURL)
	}
	return m[1], nil
}

// ParseCandidate turns a scraped candidate into an article.
func ParseCandidate(c models.Candidate) (models.Article, error) {
	id, err := ArticleID(c.URL)
	if err != nil {
		return models.Article{}, err
	}

	title := strings.TrimSpace(c.Title)
	if title == "" {
		return models.Article{}, fmt.Errorf("%w: article %s has no title", ErrMalformedCandidate, id)
	}

	published, err := parsePublished(c.PublishedAt)
	if err != nil {
		return models.Article{}, fmt.Errorf("%w: article %s: %w", ErrMalformedCandidate, id, err)
	}

	return models.Article{
		ID:          id,
		PublishedAt: published,
		Category:    strings.TrimSpace(c.Category),
		Title:       title,
		URL:         c.URL,
	}, nil
}

func parsePublished(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized publish time %q", s)
}
