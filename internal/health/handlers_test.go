package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-struk/internal/health"
)

type stubChecker struct {
	redisErr error
}

func (s stubChecker) PingRedis(_ context.Context, _ time.Duration) error {
	return s.redisErr
}

func ready(t *testing.T, h health.Handler) (int, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var status map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	return rr.Code, status
}

func TestLive(t *testing.T) {
	handler := health.Handler{}
	rr := httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReady(t *testing.T) {
	cases := map[string]struct {
		checker health.Checker
		count   int
		code    int
		want    map[string]string
	}{
		"redis and catalog": {stubChecker{}, 2, http.StatusOK, map[string]string{"status": "ready", "redis": "ok", "catalog": "2 templates"}},
		"without redis":     {stubChecker{redisErr: health.ErrRedisDisabled}, 1, http.StatusOK, map[string]string{"status": "ready", "redis": "disabled", "catalog": "1 templates"}},
		"redis down":        {stubChecker{redisErr: errors.New("redis down")}, 2, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": "redis down", "catalog": "2 templates"}},
		"empty catalog":     {stubChecker{}, 0, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": "ok", "catalog": "0 templates"}},
		"no checker":        {nil, 2, http.StatusServiceUnavailable, map[string]string{"status": "unconfigured"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := health.Handler{
				Checker:      tc.checker,
				RedisTimeout: 10 * time.Millisecond,
				Templates:    func() int { return tc.count },
			}
			code, status := ready(t, handler)
			require.Equal(t, tc.code, code)
			require.Equal(t, tc.want, status)
		})
	}
}

func TestRedisChecker(t *testing.T) {
	require.ErrorIs(t, health.RedisChecker{}.PingRedis(context.Background(), time.Second), health.ErrRedisDisabled)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	checker := health.RedisChecker{Client: rdb}
	require.NoError(t, checker.PingRedis(context.Background(), time.Second))

	mr.Close()
	err := checker.PingRedis(context.Background(), 100*time.Millisecond)
	require.Error(t, err)
	require.NotErrorIs(t, err, health.ErrRedisDisabled)
}
