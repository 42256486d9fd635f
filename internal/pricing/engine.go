package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-struk/internal/money"
)

// Breakdown aggregates the components of a tax-inclusive total.
type Breakdown struct {
	Subtotal money.Money `json:"subtotal"`
	Tax      money.Money `json:"tax"`
	Tip      money.Money `json:"tip"`
	Total    money.Money `json:"total"`
}

// Decompose splits a tax-inclusive total into subtotal, tax and tip. It reports
// false when total is negative; negative rates are treated as zero.
//
// The tax is the residual total - subtotal so the two always reconcile to the
// rounded total.
func Decompose(total, taxRate, tipRate decimal.Decimal) (Breakdown, bool) {
	if total.IsNegative() {
		return Breakdown{}, false
	}
	taxRate = money.ClampRate(taxRate)
	tipRate = money.ClampRate(tipRate)

	total = money.Round2(total)
	subtotal := money.Round2(total.Div(money.Multiplier(taxRate)))
	tax := money.Round2(total.Sub(subtotal))
	tip := money.Round2(money.Percent(subtotal, tipRate))

	return Breakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Tip:      tip,
		Total:    total,
	}, true
}

// DecomposeInput is the form-facing variant of Decompose. An unparseable total
// yields no breakdown; unparseable rates count as zero.
func DecomposeInput(total, taxRate, tipRate string) (Breakdown, bool) {
	amount, ok := money.Parse(total)
	if !ok {
		return Breakdown{}, false
	}
	return Decompose(amount, money.Rate(taxRate), money.Rate(tipRate))
}

// GrandTotal returns total plus tip, the amount charged to the card.
func (b Breakdown) GrandTotal() money.Money {
	return money.Round2(b.Total.Add(b.Tip))
}

// TaxSplit separates a tax amount into state and local portions.
type TaxSplit struct {
	State money.Money `json:"state"`
	Local money.Money `json:"local"`
}

var stateShare = decimal.RequireFromString("0.7")

// SplitTax attributes 70% of the tax to the state and the remainder to the
// locality so the parts always sum to the tax.
func SplitTax(tax money.Money) TaxSplit {
	state := money.Round2(tax.Mul(stateShare))
	return TaxSplit{State: state, Local: money.Round2(tax.Sub(state))}
}

// TipSuggestion is a pre-computed tip option printed on restaurant receipts.
type TipSuggestion struct {
	Rate   decimal.Decimal `json:"rate"`
	Amount money.Money     `json:"amount"`
}

// DefaultTipRates lists the suggested tip percentages.
var DefaultTipRates = []decimal.Decimal{
	decimal.NewFromInt(15),
	decimal.NewFromInt(18),
	decimal.NewFromInt(20),
}

// TipSuggestions computes tip amounts for each rate against base.
func TipSuggestions(base money.Money, rates []decimal.Decimal) []TipSuggestion {
	if len(rates) == 0 {
		rates = DefaultTipRates
	}
	out := make([]TipSuggestion, 0, len(rates))
	for _, rate := range rates {
		rate = money.ClampRate(rate)
		out = append(out, TipSuggestion{Rate: rate, Amount: money.Round2(money.Percent(base, rate))})
	}
	return out
}

// Share is one guest's portion of a bill.
type Share struct {
	Guests int         `json:"guests"`
	Tip    money.Money `json:"tip"`
	Total  money.Money `json:"total"`
}

// PerPerson divides the tip and grand total evenly between guests. Fewer than
// one guest is treated as one.
func PerPerson(b Breakdown, guests int) Share {
	if guests < 1 {
		guests = 1
	}
	n := decimal.NewFromInt(int64(guests))
	return Share{
		Guests: guests,
		Tip:    money.Round2(b.Tip.Div(n)),
		Total:  money.Round2(b.GrandTotal().Div(n)),
	}
}

var regionTaxRates = map[string]decimal.Decimal{
	"NY": decimal.RequireFromString("8.875"),
	"CA": decimal.RequireFromString("7.25"),
	"TX": decimal.RequireFromString("6.25"),
	"FL": decimal.RequireFromString("6.0"),
}

var fallbackTaxRate = decimal.NewFromInt(8)

// DefaultTaxRate returns the sales tax percentage for a US state code.
func DefaultTaxRate(region string) decimal.Decimal {
	if rate, ok := regionTaxRates[strings.ToUpper(strings.TrimSpace(region))]; ok {
		return rate
	}
	return fallbackTaxRate
}
