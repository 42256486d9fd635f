package receipt

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-struk/internal/common"
	"github.com/noah-isme/backend-struk/internal/obs"
)

// Format renders a receipt into a downloadable document.
type Format struct {
	ContentType string
	Extension   string
	Write       func(w io.Writer, r Receipt) error
}

// Handler exposes the amount, basket and receipt endpoints.
type Handler struct {
	service *Service
	formats map[string]Format
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
	// Formats maps the export query value (png, pdf) to its renderer.
	Formats map[string]Format
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, formats: cfg.Formats}
}

// Decompose handles POST /api/v1/amounts/decompose.
func (h *Handler) Decompose(w http.ResponseWriter, r *http.Request) {
	var req DecomposeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.service.Decompose(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Synthesize handles POST /api/v1/baskets/synthesize.
func (h *Handler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req SynthesizeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.service.Synthesize(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Preview handles POST /api/v1/receipts/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.build(w, r)
	if !ok {
		return
	}
	count(r, rec.Template, "json")
	common.JSON(w, http.StatusOK, map[string]any{"data": rec})
}

// Export handles POST /api/v1/receipts/export?format=png|pdf.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if name == "" {
		name = "png"
	}
	format, ok := h.formats[name]
	if !ok || format.Write == nil {
		common.JSONError(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", "format must be png or pdf", map[string]string{"format": name})
		return
	}
	rec, ok := h.build(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	_, span := obs.StartSpan(r.Context(), "receipt.render",
		attribute.String(obs.AttrReceiptFormat, name),
		attribute.String(obs.AttrReceiptID, rec.ID))
	err := format.Write(&buf, rec)
	span.End()
	if err != nil {
		h.service.logger.Error().Err(err).Str("receipt_id", rec.ID).Str("format", name).Msg("render_receipt")
		common.JSONError(w, http.StatusInternalServerError, "RENDER_FAILED", "could not render receipt", nil)
		return
	}
	count(r, rec.Template, name)

	filename := "receipt-" + slug(rec.Merchant) + "-" + rec.Date + "." + format.Extension
	w.Header().Set("Content-Type", format.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("X-Receipt-ID", rec.ID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) build(w http.ResponseWriter, r *http.Request) (Receipt, bool) {
	var req Request
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return Receipt{}, false
	}
	rec, err := h.service.Build(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return Receipt{}, false
	}
	source := "supplied"
	if rec.Synthesized {
		source = "synthesized"
	}
	obs.Annotate(r.Context(), obs.AttrReceiptID, rec.ID)
	obs.Annotate(r.Context(), obs.AttrBasketSource, source)
	return rec, true
}

func count(r *http.Request, template, format string) {
	obs.Annotate(r.Context(), obs.AttrReceiptTemplate, template)
	obs.Annotate(r.Context(), obs.AttrReceiptFormat, format)
	if obs.ReceiptsGeneratedTotal != nil {
		obs.ReceiptsGeneratedTotal.WithLabelValues(template, format).Inc()
	}
}

// slug keeps letters and digits and folds everything else into single dashes.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "merchant"
	}
	return out
}
