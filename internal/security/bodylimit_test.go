package security

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type receiptBody struct {
	Amount string `json:"amount"`
	Items  []struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
}

func receiptPayload(lines int) string {
	items := make([]string, lines)
	for i := range items {
		items[i] = fmt.Sprintf(`{"name":"Kopi Susu %d","quantity":2}`, i)
	}
	return `{"amount":"125000","items":[` + strings.Join(items, ",") + `]}`
}

func exportRoute(t *testing.T, limit int64, seen *receiptBody) http.Handler {
	t.Helper()
	return BodyLimit{Max: limit}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && r.Body != http.NoBody {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.WriteHeader(http.StatusCreated)
	}))
}

func TestBodyLimitPassesReceiptWithinLimit(t *testing.T) {
	payload := receiptPayload(12)
	var seen receiptBody
	handler := exportRoute(t, int64(len(payload)), &seen)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/receipts/export", strings.NewReader(payload)))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "125000", seen.Amount)
	require.Len(t, seen.Items, 12)
	require.Equal(t, "Kopi Susu 11", seen.Items[11].Name)
}

func TestBodyLimitRejectsOversizedReceipt(t *testing.T) {
	payload := receiptPayload(200)
	limit := int64(len(payload) - 1)

	cases := map[string]func(*http.Request){
		"declared length": func(*http.Request) {},
		"chunked":         func(r *http.Request) { r.ContentLength = -1 },
		"understated":     func(r *http.Request) { r.ContentLength = 10 },
	}
	for name, tweak := range cases {
		t.Run(name, func(t *testing.T) {
			var seen receiptBody
			handler := exportRoute(t, limit, &seen)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/export", strings.NewReader(payload))
			tweak(req)

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
			require.Empty(t, seen.Items, "handler must not run")

			var body struct {
				Error struct {
					Code    string         `json:"code"`
					Details map[string]any `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.Equal(t, "PAYLOAD_TOO_LARGE", body.Error.Code)
			require.EqualValues(t, limit, body.Error.Details["max_bytes"])
		})
	}
}

func TestBodyLimitIgnoresBodylessAndUnlimited(t *testing.T) {
	var seen receiptBody
	handler := exportRoute(t, 16, &seen)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	handler = exportRoute(t, 0, &seen)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/receipts/preview", strings.NewReader(receiptPayload(50))))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, seen.Items, 50)
}
