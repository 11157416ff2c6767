package models

import "time"

// Article is a news item as persisted in the article store. Articles are
// append-only: once stored they are never edited or deleted.
type Article struct {
	ID          string    `db:"id" json:"id"`
	PublishedAt time.Time `db:"-" json:"published_at"`
	Category    string    `db:"category" json:"category"`
	Title       string    `db:"title" json:"title"`
	URL         string    `db:"url" json:"url"`
}

// Candidate is a raw article record as scraped from the source page, before
// normalization and dedup.
type Candidate struct {
	URL         string
	Category    string
	Title       string
	PublishedAt string
}

// Before reports whether a sorts before b: oldest first, ties broken by
// numeric id order.
func (a Article) Before(b Article) bool {
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.Before(b.PublishedAt)
	}
	if len(a.ID) != len(b.ID) {
		return len(a.ID) < len(b.ID)
	}
	return a.ID < b.ID
}
