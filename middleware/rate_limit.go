package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"seo-checkout-api/utils"
)

type RateLimiter struct {
	client     *redis.Client
	trustProxy bool
	now        func() time.Time
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Message  string
}

var defaultConfigs = map[string]RateLimitConfig{
	"/api/payment/result": {
		Requests: 30,
		Window:   time.Minute,
		Message:  "Too many payment status checks. Please wait a minute and try again.",
	},
	"/api/payment/result/retry": {
		Requests: 10,
		Window:   time.Minute,
		Message:  "Too many retries. Please wait a minute and try again.",
	},
	"/api/checkout": {
		Requests: 5,
		Window:   10 * time.Minute,
		Message:  "Too many checkout attempts. Please wait 10 minutes.",
	},
	"default": {
		Requests: 120,
		Window:   time.Minute,
		Message:  "Rate limit exceeded. Please slow down your requests.",
	},
}

// Fixed window counter: INCR the window's key and set its TTL on first hit.
var rateLimitScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
local limit = tonumber(ARGV[1])
if current > limit then
	return {0, 0}
end
return {1, limit - current}
`)

// NewRateLimiter keys clients by socket address unless trustProxy is set, in
// which case the forwarding headers set by the proxy in front are used.
func NewRateLimiter(client *redis.Client, trustProxy bool) *RateLimiter {
	return &RateLimiter{client: client, trustProxy: trustProxy, now: time.Now}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		config := configForPath(r.URL.Path)
		key := rl.key(r)

		allowed, remaining, resetTime, err := rl.check(r.Context(), key, config)
		if err != nil {
			slog.Warn("rate limit check failed, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			slog.Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
			retryAfter := int64(resetTime.Sub(rl.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			utils.SendErrorResponse(w, http.StatusTooManyRequests, config.Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func configForPath(path string) RateLimitConfig {
	if config, ok := defaultConfigs[path]; ok {
		return config
	}
	return defaultConfigs["default"]
}

func (rl *RateLimiter) key(r *http.Request) string {
	return fmt.Sprintf("rate_limit:%s:%s", ClientIP(r, rl.trustProxy), r.URL.Path)
}

func (rl *RateLimiter) check(ctx context.Context, key string, config RateLimitConfig) (bool, int, time.Time, error) {
	now := rl.now()
	windowStart := now.Truncate(config.Window)
	windowEnd := windowStart.Add(config.Window)
	windowKey := fmt.Sprintf("%s:%d", key, windowStart.Unix())

	result, err := rateLimitScript.Run(ctx, rl.client, []string{windowKey},
		config.Requests, config.Window.Milliseconds()).Result()
	if err != nil {
		return false, 0, time.Time{}, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}
	allowed, ok1 := values[0].(int64)
	remaining, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, time.Time{}, fmt.Errorf("failed to parse redis result")
	}

	return allowed == 1, int(remaining), windowEnd, nil
}

// ClientIP returns the caller's address. Proxy headers are client-controlled
// unless a trusted proxy sets them, so they are only read when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
			ips := strings.Split(ip, ",")
			return strings.TrimSpace(ips[0])
		}
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return ip
		}
		if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
