package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/liamwears/moviestats/internal/metrics"
)

// RateLimiter is a sliding window limiter backed by a Redis sorted set
type RateLimiter struct {
	redis       redis.Cmdable
	maxRequests int
	window      time.Duration
	enabled     bool
	logger      zerolog.Logger
}

// NewRateLimiter creates a new rate limiter. A disabled limiter lets every request through.
func NewRateLimiter(client redis.Cmdable, maxRequests int, window time.Duration, enabled bool, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		redis:       client,
		maxRequests: maxRequests,
		window:      window,
		enabled:     enabled,
		logger:      logger,
	}
}

// Limit returns a middleware that rate limits requests
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.enabled {
			next.ServeHTTP(w, r)
			return
		}

		identifier := clientIdentifier(r)
		allowed, err := rl.allow(r.Context(), identifier)
		if err != nil {
			// Fail open
			rl.logger.Error().Err(err).Str("client", identifier).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			metrics.RateLimited.Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many requests. Please try again later.","code":"RATE_LIMITED"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIdentifier keys the limit by user when authenticated, by IP otherwise
func clientIdentifier(r *http.Request) string {
	if userID, ok := GetUserIDFromContext(r.Context()); ok {
		return "user:" + userID.String()
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return "ip:" + strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (rl *RateLimiter) allow(ctx context.Context, identifier string) (bool, error) {
	key := "moviestats:ratelimit:" + identifier
	now := time.Now()
	windowStart := now.Add(-rl.window).UnixMicro()

	pipe := rl.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	// Unique members so requests within the same instant are all counted
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: fmt.Sprintf("%d-%s", now.UnixMicro(), uuid.NewString()),
	})
	pipe.Expire(ctx, key, rl.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return countCmd.Val() < int64(rl.maxRequests), nil
}
