package feed

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"newsbot/internal/models"
)

func TestGenerateRSS(t *testing.T) {
	almaty := time.FixedZone("+05", 5*60*60)
	articles := []models.Article{
		{ID: "2", PublishedAt: time.Date(2024, 2, 15, 10, 0, 0, 0, almaty), Category: "Спорт", Title: "Second", URL: "https://www.nur.kz/sport/2-second/"},
		{ID: "1", PublishedAt: time.Date(2024, 2, 15, 9, 0, 0, 0, almaty), Title: "First", URL: "https://www.nur.kz/society/1-first/"},
	}

	out, err := GenerateRSS(articles, "https://news.example.com/")
	require.NoError(t, err)

	var doc struct {
		Channel struct {
			Link  string `xml:"link"`
			Items []struct {
				GUID        string `xml:"guid"`
				Title       string `xml:"title"`
				Link        string `xml:"link"`
				Description string `xml:"description"`
				PubDate     string `xml:"pubDate"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "https://news.example.com/rss", doc.Channel.Link)
	require.Len(t, doc.Channel.Items, 2)
	assert.Equal(t, "2", doc.Channel.Items[0].GUID)
	assert.Equal(t, "Second", doc.Channel.Items[0].Title)
	assert.Equal(t, "https://www.nur.kz/sport/2-second/", doc.Channel.Items[0].Link)
	assert.Contains(t, doc.Channel.Items[0].Description, "Спорт")
	assert.Contains(t, doc.Channel.Items[1].Description, "First")
	assert.Contains(t, doc.Channel.Items[0].PubDate, "15 Feb 2024 10:00:00 +0500")
}

func TestGenerateRSS_Empty(t *testing.T) {
	out, err := GenerateRSS(nil, "http://localhost:8080")
	require.NoError(t, err)
	assert.Contains(t, out, "<rss")
	assert.NotContains(t, out, "<item>")
}
