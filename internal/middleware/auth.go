package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

type contextKey string

// SubscriberIDContextKey is the key for the authenticated subscriber id in
// the request context.
const SubscriberIDContextKey = contextKey("subscriber_id")

// DefaultInitDataMaxAge bounds how old a Mini App launch may be.
const DefaultInitDataMaxAge = 24 * time.Hour

// Registry records subscribers seen through the HTTP API.
type Registry interface {
	Register(ctx context.Context, id int64, displayName string) error
	Touch(ctx context.Context, id int64, at time.Time) error
}

// Authenticator validates Telegram Mini App initData and registers the
// caller as a subscriber.
type Authenticator struct {
	botToken string
	registry Registry
	maxAge   time.Duration
	now      func() time.Time
}

func NewAuthenticator(botToken string, registry Registry, maxAge time.Duration) *Authenticator {
	return &Authenticator{
		botToken: botToken,
		registry: registry,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// SubscriberID returns the authenticated subscriber id stored by the
// Authenticator.
func SubscriberID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(SubscriberIDContextKey).(int64)
	return id, ok
}

// Middleware expects "Authorization: tma <initData>".
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		scheme, raw, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "tma" || raw == "" {
			http.Error(w, "Authorization header format must be 'tma <initData>'", http.StatusUnauthorized)
			return
		}

		if a.botToken == "" {
			log.Println("TELEGRAM_BOT_TOKEN is not set")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if err := initdata.Validate(raw, a.botToken, a.maxAge); err != nil {
			log.Printf("Invalid init data: %v", err)
			http.Error(w, "Invalid init data", http.StatusUnauthorized)
			return
		}

		data, err := initdata.Parse(raw)
		if err != nil {
			log.Printf("Error parsing init data: %v", err)
			http.Error(w, "Error parsing init data", http.StatusBadRequest)
			return
		}
		if data.User.ID == 0 {
			http.Error(w, "Init data carries no user", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		if err := a.registry.Register(ctx, data.User.ID, data.User.Username); err != nil {
			log.Printf("Error registering subscriber %d: %v", data.User.ID, err)
			http.Error(w, "Failed to authenticate user", http.StatusInternalServerError)
			return
		}
		if err := a.registry.Touch(ctx, data.User.ID, a.now()); err != nil {
			log.Printf("Error touching subscriber %d: %v", data.User.ID, err)
		}

		ctx = context.WithValue(ctx, SubscriberIDContextKey, data.User.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
