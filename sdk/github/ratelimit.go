package github

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimit is the quota reported by the X-RateLimit-* headers of a response.
type RateLimit struct {
	Limit     int
	Remaining int
	Used      int
	ResetAt   time.Time
	Resource  string
	// Present is false when the response carried no rate-limit headers.
	Present bool
}

func parseRateLimit(h http.Header) RateLimit {
	var rl RateLimit
	if v, ok := parseHeaderInt(h, "X-RateLimit-Limit"); ok {
		rl.Limit = v
		rl.Present = true
	}
	if v, ok := parseHeaderInt(h, "X-RateLimit-Remaining"); ok {
		rl.Remaining = v
		rl.Present = true
	}
	if v, ok := parseHeaderInt(h, "X-RateLimit-Used"); ok {
		rl.Used = v
	}
	if v, ok := parseHeaderInt(h, "X-RateLimit-Reset"); ok && v > 0 {
		rl.ResetAt = time.Unix(int64(v), 0).UTC()
	}
	rl.Resource = strings.TrimSpace(h.Get("X-RateLimit-Resource"))
	return rl
}

func parseHeaderInt(h http.Header, key string) (int, bool) {
	raw := strings.TrimSpace(h.Get(key))
	if raw == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func parseRetryAfter(h http.Header) (time.Duration, bool) {
	raw := strings.TrimSpace(h.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
