package receipt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-struk/internal/basket"
	"github.com/noah-isme/backend-struk/internal/catalog"
	"github.com/noah-isme/backend-struk/internal/money"
	"github.com/noah-isme/backend-struk/internal/pricing"
)

// Input accepts a JSON string or number and keeps its literal text so that
// form-style coercion rules apply to both.
type Input string

// UnmarshalJSON implements json.Unmarshaler.
func (v *Input) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = Input(strings.TrimSpace(s))
		return nil
	}
	*v = Input(raw)
	return nil
}

// String returns the literal text.
func (v Input) String() string { return string(v) }

// Options toggles optional receipt sections.
type Options struct {
	HasLogo            bool `json:"has_logo"`
	ShowItems          bool `json:"show_items"`
	ShowPaymentDetails bool `json:"show_payment_details"`
	ShowOrderNumber    bool `json:"show_order_number"`
}

// DefaultOptions shows every section except the logo.
func DefaultOptions() Options {
	return Options{ShowItems: true, ShowPaymentDetails: true, ShowOrderNumber: true}
}

// ItemInput is a caller-supplied line.
type ItemInput struct {
	Name      string `json:"name" validate:"required,max=60"`
	Quantity  int    `json:"quantity" validate:"min=1,max=99"`
	UnitPrice Input  `json:"unit_price"`
}

// Request describes the receipt to build.
type Request struct {
	Template string      `json:"template" validate:"omitempty,max=32"`
	Merchant string      `json:"merchant" validate:"required,max=80"`
	Address  string      `json:"address" validate:"max=160"`
	Phone    string      `json:"phone" validate:"max=32"`
	Date     string      `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Amount   Input       `json:"amount" validate:"required"`
	TaxRate  Input       `json:"tax_rate"`
	TipRate  Input       `json:"tip_rate"`
	Region   string      `json:"region" validate:"omitempty,len=2,alpha"`
	Guests   int         `json:"guests" validate:"omitempty,min=1,max=20"`
	Items    []ItemInput `json:"items" validate:"omitempty,max=50,dive"`
	Options  *Options    `json:"options"`
	Seed     *uint64     `json:"seed"`
}

// Payment is the generated card or wallet block.
type Payment struct {
	Type          string      `json:"type"`
	Method        string      `json:"method"`
	EntryMethod   string      `json:"entry_method"`
	CardNumber    string      `json:"card_number"`
	AuthCode      string      `json:"auth_code"`
	ApprovalCode  string      `json:"approval_code"`
	TransactionID string      `json:"transaction_id"`
	Status        string      `json:"status"`
	ProcessingFee money.Money `json:"processing_fee"`
}

// Details carries the generated transaction metadata. Category specific
// fields are empty when they do not apply.
type Details struct {
	OrderNumber    string `json:"order_number"`
	Terminal       string `json:"terminal"`
	StaffID        string `json:"staff_id"`
	Time           string `json:"time"`
	RushHour       bool   `json:"rush_hour"`
	Barcode        string `json:"barcode"`
	TableNumber    int    `json:"table_number,omitempty"`
	Server         string `json:"server,omitempty"`
	GuestCount     int    `json:"guest_count,omitempty"`
	Barista        string `json:"barista,omitempty"`
	OrderType      string `json:"order_type,omitempty"`
	Ticket         string `json:"ticket,omitempty"`
	Cashier        string `json:"cashier,omitempty"`
	MembershipTier string `json:"membership_tier,omitempty"`
	RewardsEarned  int64  `json:"rewards_earned,omitempty"`
	Provider       string `json:"provider,omitempty"`
	AppointmentID  string `json:"appointment_id,omitempty"`
}

// Receipt is a fully assembled receipt ready for rendering.
type Receipt struct {
	ID             string                  `json:"id"`
	Template       string                  `json:"template"`
	TemplateName   string                  `json:"template_name"`
	Category       catalog.Category        `json:"category"`
	Merchant       string                  `json:"merchant"`
	Address        string                  `json:"address"`
	Phone          string                  `json:"phone"`
	Date           string                  `json:"date"`
	TaxRate        decimal.Decimal         `json:"tax_rate"`
	TipRate        decimal.Decimal         `json:"tip_rate"`
	Amounts        pricing.Breakdown       `json:"amounts"`
	GrandTotal     money.Money             `json:"grand_total"`
	TaxSplit       pricing.TaxSplit        `json:"tax_split"`
	TipSuggestions []pricing.TipSuggestion `json:"tip_suggestions,omitempty"`
	PerPerson      *pricing.Share          `json:"per_person,omitempty"`
	Items          []basket.LineItem       `json:"items"`
	ItemsTotal     money.Money             `json:"items_total"`
	Synthesized    bool                    `json:"synthesized"`
	Details        Details                 `json:"details"`
	Payment        Payment                 `json:"payment"`
	Options        Options                 `json:"options"`
	Seed           uint64                  `json:"seed"`
	CreatedAt      time.Time               `json:"created_at"`
}
