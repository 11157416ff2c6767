package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/newsbot")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, BackendSQL, cfg.SubscriberBackend)
	assert.Equal(t, "https://www.nur.kz/latest/", cfg.NewsSourceURL)
	assert.Equal(t, 60*time.Second, cfg.FetchInterval)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 1, cfg.PageSize)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.Equal(t, 25.0, cfg.NotifyRate)
	assert.Equal(t, 5, cfg.CommandBurst)
	assert.Empty(t, cfg.NATSUrl)
	assert.Equal(t, "8080", cfg.Port)
	assert.Error(t, cfg.RequireBotToken())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:news.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SUBSCRIBER_BACKEND", "mongo")
	t.Setenv("FETCH_INTERVAL", "2m")
	t.Setenv("PAGE_SIZE", "5")
	t.Setenv("NOTIFY_RATE", "2.5")
	t.Setenv("NOTIFY_WORKERS", "not-a-number")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, BackendMongo, cfg.SubscriberBackend)
	assert.Equal(t, 2*time.Minute, cfg.FetchInterval)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, 2.5, cfg.NotifyRate)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.NoError(t, cfg.RequireBotToken())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"missing database url": {},
		"unknown driver":       {"DATABASE_URL": "x", "DATABASE_DRIVER": "mysql"},
		"unknown backend":      {"DATABASE_URL": "x", "SUBSCRIBER_BACKEND": "redis"},
		"zero page size":       {"DATABASE_URL": "x", "PAGE_SIZE": "0"},
		"negative interval":    {"DATABASE_URL": "x", "FETCH_INTERVAL": "-1s"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
