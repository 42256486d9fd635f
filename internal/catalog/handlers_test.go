package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-struk/internal/catalog"
)

type listResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Category    string `json:"category"`
		MaxQuantity int    `json:"max_quantity"`
		ItemCount   int    `json:"item_count"`
	} `json:"data"`
}

type detailResponse struct {
	Data catalog.Template `json:"data"`
}

func TestTemplateHandlers(t *testing.T) {
	svc, err := catalog.NewService(catalog.ServiceConfig{})
	require.NoError(t, err)
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp listResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 6)
		require.Equal(t, "classic", resp.Data[0].ID)
		require.Equal(t, 2, resp.Data[0].MaxQuantity)
		require.Equal(t, 9, resp.Data[0].ItemCount)
	})

	t.Run("detail", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/templates/modern", nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("id", "modern")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
		rec := httptest.NewRecorder()
		handler.Get(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp detailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, catalog.CategoryRetail, resp.Data.Category)
		require.Len(t, resp.Data.Items, 4)
		require.Equal(t, "39.99", resp.Data.Items[1].Min.String())
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/templates/nope", nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("id", "nope")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
		rec := httptest.NewRecorder()
		handler.Get(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
