package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func sameOriginHandler(s SameOrigin) http.Handler {
	return s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestSameOriginAllowsMatchingHost(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://struk.local/auth", nil)
	req.Header.Set("Origin", "http://struk.local")
	rr := httptest.NewRecorder()
	sameOriginHandler(SameOrigin{}).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestSameOriginBlocksForeignOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://struk.local/auth", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	sameOriginHandler(SameOrigin{}).ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "http://struk.local/auth/logout", nil)
	req.Header.Set("Referer", "https://evil.example/page")
	rr = httptest.NewRecorder()
	sameOriginHandler(SameOrigin{}).ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSameOriginAllowlistAndSafeMethods(t *testing.T) {
	mw := SameOrigin{Allowed: []string{"https://app.example/"}}

	req := httptest.NewRequest(http.MethodPost, "http://api.example/auth", nil)
	req.Header.Set("Origin", "https://app.example")
	rr := httptest.NewRecorder()
	sameOriginHandler(mw).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "http://api.example/auth", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	sameOriginHandler(mw).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "http://api.example/auth", nil)
	rr = httptest.NewRecorder()
	sameOriginHandler(mw).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
