// Package events publishes newly stored articles to a NATS JetStream stream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"newsbot/internal/models"
)

const (
	StreamName = "NEWS_ARTICLES"
	// SubjectNew carries one message per newly stored article.
	SubjectNew = "news.articles.new"
)

// JetStream is the publishing side of nats.JetStreamContext.
type JetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// StreamManager is the stream administration side of nats.JetStreamContext.
type StreamManager interface {
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// ArticleEvent is the JSON body of a SubjectNew message.
type ArticleEvent struct {
	ID          string `json:"id"`
	PublishedAt string `json:"published_at"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	URL         string `json:"url"`
}

type Publisher struct {
	js JetStream
}

func NewPublisher(js JetStream) *Publisher {
	return &Publisher{js: js}
}

// SetupStream creates the article stream if it does not exist yet.
func SetupStream(js StreamManager) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"news.articles.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("add stream %s: %w", StreamName, err)
	}

	log.Println("NATS streams configured successfully")
	return nil
}

// PublishArticles sends one event per article, in order. The article id is
// the JetStream message id, so a republished article is deduplicated by the
// server. It stops at the first failure.
func (p *Publisher) PublishArticles(ctx context.Context, articles []models.Article) error {
	for _, a := range articles {
		data, err := json.Marshal(ArticleEvent{
			ID:          a.ID,
			PublishedAt: a.PublishedAt.Format(time.RFC3339),
			Category:    a.Category,
			Title:       a.Title,
			URL:         a.URL,
		})
		if err != nil {
			return fmt.Errorf("marshal article %s: %w", a.ID, err)
		}

		if _, err := p.js.Publish(SubjectNew, data, nats.MsgId(a.ID), nats.Context(ctx)); err != nil {
			return fmt.Errorf("publish article %s: %w", a.ID, err)
		}
	}
	return nil
}
