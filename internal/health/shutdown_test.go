package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-struk/internal/health"
)

func TestReadyReportsDrainingDuringShutdown(t *testing.T) {
	drain := &health.Drain{}
	handler := health.Handler{
		Checker:   stubChecker{},
		Templates: func() int { return 3 },
		Drain:     drain,
	}

	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			drain.Begin()
		}()
	}
	wg.Wait()

	rr = httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	var status map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.Equal(t, map[string]string{"status": "draining"}, status)

	rr = httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code, "liveness survives draining")
}

func TestNilDrainNeverDrains(t *testing.T) {
	var drain *health.Drain
	require.False(t, drain.Draining())
}
