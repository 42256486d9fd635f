package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-struk/internal/common"
)

// Handler exposes template endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

type templateSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Preview     string   `json:"preview"`
	Category    Category `json:"category"`
	MaxQuantity int      `json:"max_quantity"`
	ItemCount   int      `json:"item_count"`
}

// List handles GET /api/v1/templates.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	templates := h.service.Templates()
	rows := make([]templateSummary, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, templateSummary{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Preview:     t.Preview,
			Category:    t.Category,
			MaxQuantity: h.service.MaxQuantity(t.Category),
			ItemCount:   len(t.Items),
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Get handles GET /api/v1/templates/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	t, err := h.service.Template(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}
