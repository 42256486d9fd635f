package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/backend-struk/internal/common"
)

// ByClientIP keys requests by route name and client address.
func ByClientIP(name string) func(*http.Request) string {
	return func(r *http.Request) string {
		return name + ":" + common.ClientIP(r)
	}
}

// Handler enforces a Limiter in front of a route.
type Handler struct {
	Limiter Limiter
	Key     func(*http.Request) string
	// OnError observes limiter failures; the request is let through.
	OnError func(error)
	// OnLimited renders the rejection. Defaults to a 429 in the canonical error shape.
	OnLimited func(w http.ResponseWriter, r *http.Request, retryAfter int)
}

// Middleware wraps next with the limit and sets the X-RateLimit-* headers.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		d, err := h.Limiter.Allow(r.Context(), h.Key(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(d.Limit, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
		if d.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := max(int(time.Until(d.Reset).Seconds()), 0)
		headers.Set("Retry-After", strconv.Itoa(retryAfter))
		if h.OnLimited != nil {
			h.OnLimited(w, r, retryAfter)
			return
		}
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", map[string]int{"retry_after": retryAfter})
	})
}
