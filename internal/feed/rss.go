package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/eduncan911/podcast"
	"newsbot/internal/models"
)

// RecentLimit is the number of articles served in the feed.
const RecentLimit = 50

// GenerateRSS renders articles, newest first, as an RSS 2.0 document.
func GenerateRSS(articles []models.Article, baseURL string) (string, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	var updated time.Time
	if len(articles) > 0 {
		updated = articles[0].PublishedAt
	}

	p := podcast.New(
		"Nur.kz news",
		fmt.Sprintf("%s/rss", baseURL),
		"Latest articles from nur.kz collected by newsbot.",
		&updated, &updated,
	)
	p.Language = "ru"

	for _, a := range articles {
		pub := a.PublishedAt
		description := a.Category
		if description == "" {
			description = a.Title
		}
		item := podcast.Item{
			GUID:        a.ID,
			Title:       a.Title,
			Link:        a.URL,
			Description: description,
			PubDate:     &pub,
		}
		if _, err := p.AddItem(item); err != nil {
			return "", fmt.Errorf("add article %s: %w", a.ID, err)
		}
	}

	return p.String(), nil
}
