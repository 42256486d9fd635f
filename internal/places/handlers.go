package places

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-struk/internal/common"
	"github.com/noah-isme/backend-struk/internal/resilience"
)

// Handler serves the merchant lookup endpoint. Error bodies keep the flat
// {"error","details","status"} shape browser clients already parse.
type Handler struct {
	// Service is nil when no provider is configured.
	Service *Service
}

// Search handles GET /api/places/search?query=.
func (h Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSON(w, http.StatusInternalServerError, errorBody{Error: "API key is not configured"})
		return
	}
	query := r.URL.Query().Get("query")
	if Normalize(query) == "" {
		common.JSON(w, http.StatusBadRequest, errorBody{Error: "Query parameter is required"})
		return
	}

	results, err := h.Service.Search(r.Context(), query)
	if err != nil {
		var upstream *UpstreamError
		switch {
		case errors.As(err, &upstream):
			common.JSON(w, upstream.HTTPStatus, errorBody{
				Error:   "Google Places API error",
				Details: detailOrDefault(upstream.Message),
				Status:  upstream.HTTPStatus,
			})
		case errors.Is(err, resilience.ErrOpenCircuit):
			common.JSON(w, http.StatusServiceUnavailable, errorBody{
				Error:   "Google Places API error",
				Details: "upstream temporarily unavailable",
				Status:  http.StatusServiceUnavailable,
			})
		default:
			common.JSON(w, http.StatusInternalServerError, errorBody{
				Error:   "Failed to fetch place data",
				Details: err.Error(),
			})
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"results": results})
}

// RateLimited renders a limiter rejection in the places error shape.
func RateLimited(w http.ResponseWriter, _ *http.Request, _ int) {
	common.JSON(w, http.StatusTooManyRequests, errorBody{
		Error:   "Too many lookups",
		Details: "slow down and retry shortly",
		Status:  http.StatusTooManyRequests,
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"status,omitempty"`
}

func detailOrDefault(msg string) string {
	if msg == "" {
		return "Unknown error"
	}
	return msg
}
