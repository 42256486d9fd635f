package receipt

import (
	"context"
	"errors"
	"html"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-struk/internal/basket"
	"github.com/noah-isme/backend-struk/internal/catalog"
	"github.com/noah-isme/backend-struk/internal/common"
	"github.com/noah-isme/backend-struk/internal/money"
	"github.com/noah-isme/backend-struk/internal/obs"
	"github.com/noah-isme/backend-struk/internal/pricing"
)

var (
	// ErrInvalidAmount is returned when the total cannot be decomposed.
	ErrInvalidAmount = errors.New("receipt: amount must be a non-negative number")
)

// Config wires Service dependencies.
type Config struct {
	Catalog   *catalog.Service
	Validator *validator.Validate
	Logger    zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// Seeds supplies a seed when the request carries none.
	Seeds func() uint64
}

// Service assembles receipts from requests.
type Service struct {
	catalog  *catalog.Service
	validate *validator.Validate
	policy   *bluemonday.Policy
	logger   zerolog.Logger
	now      func() time.Time
	seeds    func() uint64
}

// NewService constructs a receipt service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("receipt: catalog is required")
	}
	v := cfg.Validator
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	seeds := cfg.Seeds
	if seeds == nil {
		seeds = rand.Uint64
	}
	return &Service{
		catalog:  cfg.Catalog,
		validate: v,
		policy:   bluemonday.StrictPolicy(),
		logger:   cfg.Logger,
		now:      now,
		seeds:    seeds,
	}, nil
}

// DecomposeRequest is the body of the decompose endpoint.
type DecomposeRequest struct {
	Total   Input  `json:"total" validate:"required"`
	TaxRate Input  `json:"tax_rate"`
	TipRate Input  `json:"tip_rate"`
	Region  string `json:"region" validate:"omitempty,len=2,alpha"`
	Guests  int    `json:"guests" validate:"omitempty,min=1,max=20"`
}

// DecomposeResult extends the breakdown with the derived receipt figures.
type DecomposeResult struct {
	pricing.Breakdown
	TaxRate    decimal.Decimal  `json:"tax_rate"`
	TipRate    decimal.Decimal  `json:"tip_rate"`
	GrandTotal money.Money      `json:"grand_total"`
	TaxSplit   pricing.TaxSplit `json:"tax_split"`
	PerPerson  *pricing.Share   `json:"per_person,omitempty"`
}

// Decompose splits a tax-inclusive total.
func (s *Service) Decompose(_ context.Context, req DecomposeRequest) (DecomposeResult, error) {
	if err := s.check(req); err != nil {
		return DecomposeResult{}, err
	}
	taxInput := s.taxRateInput(req.TaxRate, req.Region)
	b, ok := pricing.DecomposeInput(req.Total.String(), taxInput, req.TipRate.String())
	if !ok {
		return DecomposeResult{}, invalidAmount()
	}
	taxRate, tipRate := money.Rate(taxInput), money.Rate(req.TipRate.String())
	out := DecomposeResult{
		Breakdown:  b,
		TaxRate:    taxRate,
		TipRate:    tipRate,
		GrandTotal: b.GrandTotal(),
		TaxSplit:   pricing.SplitTax(b.Tax),
	}
	if req.Guests > 0 {
		share := pricing.PerPerson(b, req.Guests)
		out.PerPerson = &share
	}
	return out, nil
}

// SynthesizeRequest is the body of the basket endpoint.
type SynthesizeRequest struct {
	Template    string  `json:"template" validate:"omitempty,max=32"`
	Target      Input   `json:"target" validate:"required"`
	MaxQuantity int     `json:"max_quantity" validate:"omitempty,min=1,max=99"`
	Seed        *uint64 `json:"seed"`
}

// SynthesizeResult is a generated basket.
type SynthesizeResult struct {
	Template string            `json:"template"`
	Target   money.Money       `json:"target"`
	Seed     uint64            `json:"seed"`
	Items    []basket.LineItem `json:"items"`
	Total    money.Money       `json:"total"`
}

// Synthesize builds a basket for a template's catalog.
func (s *Service) Synthesize(ctx context.Context, req SynthesizeRequest) (SynthesizeResult, error) {
	if err := s.check(req); err != nil {
		return SynthesizeResult{}, err
	}
	tmpl, err := s.template(req.Template)
	if err != nil {
		return SynthesizeResult{}, err
	}
	target, ok := money.Parse(req.Target.String())
	if !ok {
		return SynthesizeResult{}, invalidAmount()
	}
	maxQ := req.MaxQuantity
	if maxQ == 0 {
		maxQ = s.catalog.MaxQuantity(tmpl.Category)
	}
	seed := s.seedFor(req.Seed)
	lines := s.basket(ctx, seed, tmpl.Items, target, maxQ)
	return SynthesizeResult{
		Template: tmpl.ID,
		Target:   money.Round2(target),
		Seed:     seed,
		Items:    lines,
		Total:    basket.Total(lines),
	}, nil
}

// Build assembles a complete receipt.
func (s *Service) Build(ctx context.Context, req Request) (Receipt, error) {
	if err := s.check(req); err != nil {
		return Receipt{}, err
	}
	tmpl, err := s.template(req.Template)
	if err != nil {
		return Receipt{}, err
	}
	ctx, span := obs.StartSpan(ctx, "receipt.build", attribute.String(obs.AttrReceiptTemplate, tmpl.ID))
	defer span.End()
	merchant := s.clean(req.Merchant)
	if merchant == "" {
		return Receipt{}, common.NewAppError("VALIDATION_FAILED", "merchant is required", http.StatusBadRequest, nil)
	}

	taxInput := s.taxRateInput(req.TaxRate, req.Region)
	amounts, ok := pricing.DecomposeInput(req.Amount.String(), taxInput, req.TipRate.String())
	if !ok {
		return Receipt{}, invalidAmount()
	}
	taxRate, tipRate := money.Rate(taxInput), money.Rate(req.TipRate.String())

	now := s.now()
	day := now
	if req.Date != "" {
		// validated as YYYY-MM-DD above
		day, _ = time.ParseInLocation("2006-01-02", req.Date, now.Location())
	}
	seed := s.seedFor(req.Seed)
	rng := basket.NewRand(seed)

	var (
		lines       []basket.LineItem
		synthesized bool
	)
	if len(req.Items) > 0 {
		lines, err = s.suppliedLines(tmpl, req.Items)
		if err != nil {
			return Receipt{}, err
		}
	} else {
		lines = s.basket(ctx, seed, tmpl.Items, amounts.Total, s.catalog.MaxQuantity(tmpl.Category))
		synthesized = true
	}

	opts := DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	rec := Receipt{
		ID:           uuid.NewString(),
		Template:     tmpl.ID,
		TemplateName: tmpl.Name,
		Category:     tmpl.Category,
		Merchant:     merchant,
		Address:      s.clean(req.Address),
		Phone:        s.clean(req.Phone),
		Date:         day.Format("2006-01-02"),
		TaxRate:      taxRate,
		TipRate:      tipRate,
		Amounts:      amounts,
		GrandTotal:   amounts.GrandTotal(),
		TaxSplit:     pricing.SplitTax(amounts.Tax),
		Items:        lines,
		ItemsTotal:   basket.Total(lines),
		Synthesized:  synthesized,
		Details:      NewDetails(rng, tmpl.Category, amounts.Total, day, now),
		Payment:      NewPayment(rng, amounts.Total, now),
		Options:      opts,
		Seed:         seed,
		CreatedAt:    now.UTC(),
	}
	if tmpl.Category == catalog.CategoryRestaurant || tmpl.Category == catalog.CategoryPizzeria {
		rec.TipSuggestions = pricing.TipSuggestions(amounts.Subtotal, nil)
	}
	if req.Guests > 0 {
		share := pricing.PerPerson(amounts, req.Guests)
		rec.PerPerson = &share
	}
	s.logger.Debug().Str("receipt_id", rec.ID).Str("template", rec.Template).Int("lines", len(lines)).Msg("receipt_built")
	return rec, nil
}

func (s *Service) basket(ctx context.Context, seed uint64, items []catalog.Item, target money.Money, maxQ int) []basket.LineItem {
	_, span := obs.StartSpan(ctx, "basket.synthesize",
		attribute.Int("basket.catalog_size", len(items)),
		attribute.Int("basket.max_quantity", maxQ))
	defer span.End()
	lines := basket.Synthesize(basket.NewRand(seed^0x5bd1e995), items, target, maxQ)
	span.SetAttributes(attribute.Int("basket.lines", len(lines)))
	if obs.BasketLines != nil {
		obs.BasketLines.Observe(float64(len(lines)))
	}
	if n := len(lines); n > 0 && lines[n-1].Corrective && obs.CorrectiveLinesTotal != nil {
		obs.CorrectiveLinesTotal.Inc()
	}
	return lines
}

// suppliedLines prices caller items. An item without a unit price takes the
// typical price of the template entry with the same name.
func (s *Service) suppliedLines(tmpl catalog.Template, items []ItemInput) ([]basket.LineItem, error) {
	lines := make([]basket.LineItem, 0, len(items))
	for i, in := range items {
		name := s.clean(in.Name)
		unit, source, ok := priceFor(tmpl, name, in.UnitPrice)
		if !ok {
			return nil, common.NewAppError("INVALID_ITEM", "item unit price must be a non-negative number", http.StatusBadRequest, nil).
				WithDetails(map[string]int{"index": i})
		}
		lines = append(lines, basket.LineItem{
			Name:      name,
			Quantity:  in.Quantity,
			UnitPrice: unit,
			LineTotal: money.Round2(unit.Mul(decimal.NewFromInt(int64(in.Quantity)))),
			Source:    source,
		})
	}
	return lines, nil
}

func priceFor(tmpl catalog.Template, name string, raw Input) (money.Money, int, bool) {
	if raw != "" {
		unit, ok := money.Parse(raw.String())
		return money.Round2(unit), -1, ok
	}
	for i, item := range tmpl.Items {
		if strings.EqualFold(item.Name, name) {
			return item.Price(), i, true
		}
	}
	return decimal.Zero, -1, false
}

func (s *Service) template(id string) (catalog.Template, error) {
	if strings.TrimSpace(id) == "" {
		id = s.catalog.DefaultTemplateID()
	}
	return s.catalog.Template(id)
}

// taxRateInput falls back to the region's default when no rate was sent.
func (s *Service) taxRateInput(raw Input, region string) string {
	if raw == "" && region != "" {
		return pricing.DefaultTaxRate(region).String()
	}
	return raw.String()
}

func (s *Service) seedFor(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return s.seeds()
}

// clean strips markup and collapses whitespace in text printed on receipts.
func (s *Service) clean(v string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s.policy.Sanitize(v))), " ")
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Namespace()] = fe.Tag()
			}
			return common.NewAppError("VALIDATION_FAILED", "request validation failed", http.StatusBadRequest, err).
				WithDetails(fields)
		}
		return common.NewAppError("VALIDATION_FAILED", "request validation failed", http.StatusBadRequest, err)
	}
	return nil
}

func invalidAmount() error {
	return common.NewAppError("INVALID_AMOUNT", "amount must be a non-negative number", http.StatusUnprocessableEntity, ErrInvalidAmount)
}
