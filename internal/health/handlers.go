package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrRedisDisabled marks a deployment without Redis. Readiness treats it as
// healthy because the places cache and rate limits run in-process instead.
var ErrRedisDisabled = errors.New("redis disabled")

// Drain is flipped once the server starts shutting down so load balancers
// stop routing receipt traffic before in-flight exports finish.
type Drain struct {
	draining atomic.Bool
}

// Begin marks the server as draining.
func (d *Drain) Begin() { d.draining.Store(true) }

// Draining reports whether Begin was called. A nil Drain never drains.
func (d *Drain) Draining() bool { return d != nil && d.draining.Load() }

// Checker represents dependencies that can be checked for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// RedisChecker pings a Redis client, returning ErrRedisDisabled for a nil one.
type RedisChecker struct {
	Client redis.UniversalClient
}

// PingRedis implements Checker.
func (c RedisChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.Client == nil {
		return ErrRedisDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Client.Ping(ctx).Err()
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	RedisTimeout time.Duration
	// Templates counts loaded receipt templates. The service cannot render
	// anything with an empty catalog.
	Templates func() int
	Drain     *Drain
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports whether the instance should receive traffic.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Drain.Draining() {
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	if h.Checker == nil {
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unconfigured"})
		return
	}

	healthy := true
	status := map[string]string{"status": "ready", "redis": "ok", "catalog": "ok"}
	switch err := h.Checker.PingRedis(r.Context(), h.redisTimeout()); {
	case errors.Is(err, ErrRedisDisabled):
		status["redis"] = "disabled"
	case err != nil:
		status["redis"] = err.Error()
		healthy = false
	}
	if h.Templates != nil {
		n := h.Templates()
		status["catalog"] = strconv.Itoa(n) + " templates"
		if n == 0 {
			healthy = false
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
		status["status"] = "degraded"
	}
	writeStatus(w, code, status)
}

func writeStatus(w http.ResponseWriter, code int, status map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
