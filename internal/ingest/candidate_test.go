package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"newsbot/internal/models"
)

func TestArticleID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "absolute url", url: "https://www.nur.kz/society/2061234-v-almaty-otkryli-park/", want: "2061234"},
		{name: "relative path", url: "/politics/2061230-senat/", want: "2061230"},
		{name: "first match wins", url: "https://www.nur.kz/12-a/2061234-b/", want: "12"},
		{name: "digits without dash", url: "https://www.nur.kz/society/2061234/", wantErr: true},
		{name: "dash without digits", url: "https://www.nur.kz/special/live-translation/", wantErr: true},
		{name: "digits not at segment start", url: "https://www.nur.kz/society/abc123-title/", wantErr: true},
		{name: "digits only in query", url: "https://www.nur.kz/latest/?page=/2-x", wantErr: true},
		{name: "empty", url: "", wantErr: true},
		{name: "unparsable", url: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArticleID(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedCandidate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArticleIDIsStable(t *testing.T) {
	url := "https://www.nur.kz/society/2061234-v-almaty-otkryli-park/"
	first, err := ArticleID(url)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := ArticleID(url)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestParseCandidate(t *testing.T) {
	a, err := ParseCandidate(models.Candidate{
		URL:         "https://www.nur.kz/society/2061234-park/",
		Category:    " Общество ",
		Title:       " В Алматы открыли новый парк ",
		PublishedAt: "2024-02-15T10:30:00+05:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "2061234", a.ID)
	assert.Equal(t, "Общество", a.Category)
	assert.Equal(t, "В Алматы открыли новый парк", a.Title)
	assert.True(t, a.PublishedAt.Equal(time.Date(2024, 2, 15, 5, 30, 0, 0, time.UTC)))
	_, offset := a.PublishedAt.Zone()
	assert.Equal(t, 5*60*60, offset)
}

func TestParseCandidateCompactOffset(t *testing.T) {
	a, err := ParseCandidate(models.Candidate{
		URL:         "https://www.nur.kz/society/1-x/",
		Title:       "x",
		PublishedAt: "2024-02-15T10:30:00+0500",
	})
	require.NoError(t, err)
	assert.True(t, a.PublishedAt.Equal(time.Date(2024, 2, 15, 5, 30, 0, 0, time.UTC)))
}

func TestParseCandidateMalformed(t *testing.T) {
	tests := map[string]models.Candidate{
		"no id":        {URL: "https://www.nur.kz/special/live/", Title: "x", PublishedAt: "2024-02-15T10:30:00+05:00"},
		"no title":     {URL: "https://www.nur.kz/society/1-x/", Title: "  ", PublishedAt: "2024-02-15T10:30:00+05:00"},
		"bad date":     {URL: "https://www.nur.kz/society/1-x/", Title: "x", PublishedAt: "15.02.2024 10:30"},
		"missing date": {URL: "https://www.nur.kz/society/1-x/", Title: "x"},
	}
	for name, c := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCandidate(c)
			assert.ErrorIs(t, err, ErrMalformedCandidate)
		})
	}
}
