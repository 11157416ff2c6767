package middleware

import (
	"log"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterMiddleware holds a token bucket per subscriber. The same
// buckets back both the bot commands and the HTTP API.
type RateLimiterMiddleware struct {
	limiters map[int64]*rate.Limiter
	mu       sync.Mutex
	// Rate is the number of events per second.
	rate rate.Limit
	// Burst is the burst size.
	burst int
}

func NewRateLimiterMiddleware(r rate.Limit, b int) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		limiters: make(map[int64]*rate.Limiter),
		rate:     r,
		burst:    b,
	}
}

// Allow reports whether subscriber id may make a request now.
func (rl *RateLimiterMiddleware) Allow(id int64) bool {
	rl.mu.Lock()
	limiter, exists := rl.limiters[id]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[id] = limiter
	}
	rl.mu.Unlock()

	if !limiter.Allow() {
		log.Printf("RateLimiter: Rate limit exceeded for subscriber %d", id)
		return false
	}
	return true
}

// Middleware must run after the Authenticator.
func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := SubscriberID(r.Context())
		if !ok {
			log.Printf("RateLimiter: No subscriber in context - unauthorized")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if !rl.Allow(id) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
