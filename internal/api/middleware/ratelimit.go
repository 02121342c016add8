package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/elninowatch/elninowatch/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Default limits.
var (
	// ResolveRateLimit guards endpoints that probe the tile server; one
	// request can fan out to lookback x sources HEAD requests.
	ResolveRateLimit = RateLimitConfig{RequestLimit: 20, WindowLength: time.Minute}

	// SessionRateLimit applies per map session to UI events.
	SessionRateLimit = RateLimitConfig{RequestLimit: 120, WindowLength: time.Minute}

	// StandardRateLimit applies to cheap read endpoints.
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits requests per client IP.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(limitExceeded(cfg)),
	)
}

// RateLimitBySession limits requests per map session, falling back to the
// client IP outside session routes.
func RateLimitBySession(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyBySessionOrIP),
		httprate.WithLimitHandler(limitExceeded(cfg)),
	)
}

func keyBySessionOrIP(r *http.Request) (string, error) {
	if id := sessionID(r); id != "" {
		return "session:" + id, nil
	}
	return httprate.KeyByRealIP(r)
}

func limitExceeded(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		writeProblem(w, r, models.NewTooManyRequests(GetRequestID(r.Context()),
			"Rate limit exceeded. Please try again later."))
	}
}
