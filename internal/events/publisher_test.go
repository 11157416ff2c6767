package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"newsbot/internal/models"
)

type published struct {
	subject string
	data    []byte
	opts    int
}

type fakeJetStream struct {
	msgs      []published
	failAfter int
	streams   []*nats.StreamConfig
	addErr    error
}

func (f *fakeJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if f.failAfter > 0 && len(f.msgs) == f.failAfter {
		return nil, nats.ErrNoStreamResponse
	}
	f.msgs = append(f.msgs, published{subject: subj, data: data, opts: len(opts)})
	return &nats.PubAck{Stream: StreamName, Sequence: uint64(len(f.msgs))}, nil
}

func (f *fakeJetStream) AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.streams = append(f.streams, cfg)
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &nats.StreamInfo{Config: *cfg}, nil
}

var articles = []models.Article{
	{ID: "10", PublishedAt: time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC), Category: "Спорт", Title: "A", URL: "https://www.nur.kz/sport/10-a/"},
	{ID: "11", PublishedAt: time.Date(2024, 2, 15, 9, 5, 0, 0, time.UTC), Category: "Спорт", Title: "B", URL: "https://www.nur.kz/sport/11-b/"},
}

func TestPublishArticles(t *testing.T) {
	js := &fakeJetStream{}

	require.NoError(t, NewPublisher(js).PublishArticles(context.Background(), articles))

	require.Len(t, js.msgs, 2)
	for i, m := range js.msgs {
		assert.Equal(t, SubjectNew, m.subject)
		assert.Equal(t, 2, m.opts)

		var ev ArticleEvent
		require.NoError(t, json.Unmarshal(m.data, &ev))
		assert.Equal(t, articles[i].ID, ev.ID)
		assert.Equal(t, articles[i].URL, ev.URL)
	}
}

func TestPublishArticles_StopsOnFailure(t *testing.T) {
	js := &fakeJetStream{failAfter: 1}

	err := NewPublisher(js).PublishArticles(context.Background(), articles)
	assert.ErrorIs(t, err, nats.ErrNoStreamResponse)
	assert.Len(t, js.msgs, 1)
}

func TestSetupStream(t *testing.T) {
	js := &fakeJetStream{}
	require.NoError(t, SetupStream(js))
	require.Len(t, js.streams, 1)
	assert.Equal(t, StreamName, js.streams[0].Name)
	assert.Equal(t, []string{"news.articles.>"}, js.streams[0].Subjects)

	assert.NoError(t, SetupStream(&fakeJetStream{addErr: nats.ErrStreamNameAlreadyInUse}))
	assert.Error(t, SetupStream(&fakeJetStream{addErr: errors.New("no responders")}))
}
