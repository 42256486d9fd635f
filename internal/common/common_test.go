package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	cases := map[string]string{
		"192.0.2.4:5123":             "192.0.2.4",
		"[2001:db8:1:2:3:4:5:6]:443": "2001:db8:1:2::/64",
		"[::ffff:198.51.100.7]:80":   "198.51.100.7",
		"198.51.100.9":               "198.51.100.9",
		"not-an-address":             "not-an-address",
	}
	for remote, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/places/search", nil)
		req.RemoteAddr = remote
		// Forwarding headers are only honoured through RealIP.
		req.Header.Set("X-Forwarded-For", "203.0.113.1")
		require.Equal(t, want, ClientIP(req), remote)
	}
}

func TestWriteErrorRendersAppError(t *testing.T) {
	cause := errors.New("decimal: exponent out of range")
	err := NewAppError("INVALID_ITEM", "item unit price must be a non-negative number", http.StatusBadRequest, cause).
		WithDetails(map[string]int{"index": 2})
	require.ErrorIs(t, err, cause)
	require.Equal(t, "INVALID_ITEM: decimal: exponent out of range", err.Error())
	require.Equal(t, http.StatusBadRequest, StatusOf(err))
	require.Equal(t, http.StatusInternalServerError, StatusOf(cause))

	rec := httptest.NewRecorder()
	WriteError(rec, err)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":{"code":"INVALID_ITEM","message":"item unit price must be a non-negative number","details":{"index":2}}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteError(rec, cause)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "exponent")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/amounts/decompose", strings.NewReader(`{"total":"10","bogus":1}`))
	var dst struct {
		Total string `json:"total"`
	}
	err := DecodeJSON(req, &dst)
	require.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestSessionContext(t *testing.T) {
	_, ok := Session(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.False(t, ok)
	id, ok := Session(WithSession(t.Context(), "abc"))
	require.True(t, ok)
	require.Equal(t, "abc", id)
}
