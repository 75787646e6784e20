package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/todo-tracker/internal/apperror"
)

// KeyFunc builds the Redis counter key for a request.
type KeyFunc func(r *http.Request) string

// KeyByIPAndPath limits each client IP per route. chimiddleware.RealIP
// should run first so RemoteAddr is the client, not the proxy.
func KeyByIPAndPath(r *http.Request) string {
	return "rl:path:" + r.URL.Path + ":ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}

// incrExpire increments the counter and starts its window on the first hit,
// atomically.
var incrExpire = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RateLimit allows limit requests per window for each key, counted in Redis
// so every instance shares the budget. Responses carry X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset (seconds).
//
// A nil client, or a non-positive limit or window, disables the limiter. When
// Redis errors the request is let through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, keyFn KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if rdb == nil || limit <= 0 || window <= 0 || keyFn == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFn(r)
			res, err := incrExpire.Run(r.Context(), rdb, []string{key}, window.Milliseconds()).Int64Slice()
			if err != nil || len(res) != 2 {
				logger.Warn("rate limiter unavailable, allowing request",
					slog.String("key", key),
					slog.Any("error", err),
				)
				next.ServeHTTP(w, r)
				return
			}
			count, ttl := res[0], time.Duration(res[1])*time.Millisecond

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			reset := int64((ttl + time.Second - 1) / time.Second)
			if reset < 0 {
				reset = 0
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

			if count > int64(limit) {
				if reset > 0 {
					h.Set("Retry-After", strconv.FormatInt(reset, 10))
				}
				logger.Warn("rate limit exceeded", slog.String("key", key), slog.Int64("count", count))
				apperror.Write(w, apperror.RateLimited())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
