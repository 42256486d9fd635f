package resilience_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-struk/internal/resilience"
)

func TestTransportRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, "payload", string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := &http.Client{Transport: &resilience.Transport{
		Breaker:     resilience.NewBreaker(resilience.BreakerConfig{Target: "places-retry", MinRequests: 10, FailureRatio: 0.9}),
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
	}}
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader("payload"))
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, 2.0, testutil.ToFloat64(resilience.UpstreamAttempts.WithLabelValues("places-retry", "retry")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.UpstreamAttempts.WithLabelValues("places-retry", "ok")))
}

func TestTransportReturnsLastResponseWhenAttemptsExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &resilience.Transport{
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
	}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestTransportStopsWhenBreakerOpen(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(resilience.BreakerConfig{Target: "places-open", MinRequests: 1, OpenFor: time.Minute})
	client := &http.Client{Transport: &resilience.Transport{
		Breaker:     breaker,
		MaxAttempts: 4,
		BaseBackoff: time.Millisecond,
	}}
	_, err := client.Get(srv.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, resilience.ErrOpenCircuit))
	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, resilience.Open, breaker.State())
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.UpstreamAttempts.WithLabelValues("places-open", "refused")))
}

func TestTransportHonoursContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	client := &http.Client{Transport: &resilience.Transport{
		Breaker:     resilience.NewBreaker(resilience.BreakerConfig{Target: "places-cancel", MinRequests: 100, FailureRatio: 1}),
		MaxAttempts: 5,
		BaseBackoff: time.Second,
	}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}
