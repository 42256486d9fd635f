package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/backend-struk/internal/money"
	"github.com/noah-isme/backend-struk/internal/receipt"
)

// Width is the receipt column width in characters.
const Width = 40

// Align positions a line inside the column.
type Align int

const (
	Left Align = iota
	Center
)

// Line is one row of the laid-out receipt.
type Line struct {
	Text  string
	Align Align
	Bold  bool
}

func usd(m money.Money) string { return money.Format("$", m) }

// Lines lays a receipt out as fixed-width text rows shared by every output format.
func Lines(r receipt.Receipt) []Line {
	var out []Line
	add := func(text string) { out = append(out, Line{Text: clip(text)}) }
	center := func(text string, bold bool) {
		if text != "" {
			out = append(out, Line{Text: clip(text), Align: Center, Bold: bold})
		}
	}
	rule := func() { add(strings.Repeat("-", Width)) }
	pair := func(left, right string) { add(columns(left, right)) }

	if r.Options.HasLogo {
		center("[ "+initials(r.Merchant)+" ]", true)
	}
	center(strings.ToUpper(r.Merchant), true)
	center(r.Address, false)
	center(r.Phone, false)
	add("")

	d := r.Details
	pair("Date: "+r.Date, "Time: "+d.Time)
	if r.Options.ShowOrderNumber {
		pair("Order: "+d.OrderNumber, "Term: "+d.Terminal)
	}
	for _, row := range categoryRows(d) {
		add(row)
	}
	rule()

	if r.Options.ShowItems && len(r.Items) > 0 {
		for _, item := range r.Items {
			pair(fmt.Sprintf("%d x %s", item.Quantity, item.Name), usd(item.LineTotal))
			if item.Quantity > 1 {
				add("    @ " + usd(item.UnitPrice))
			}
		}
		rule()
	}

	pair("Subtotal", usd(r.Amounts.Subtotal))
	pair("Tax ("+r.TaxRate.String()+"%)", usd(r.Amounts.Tax))
	pair("TOTAL", usd(r.Amounts.Total))
	if r.Amounts.Tip.IsPositive() {
		pair("Tip ("+r.TipRate.String()+"%)", usd(r.Amounts.Tip))
		pair("GRAND TOTAL", usd(r.GrandTotal))
	}
	if r.PerPerson != nil {
		pair(fmt.Sprintf("Per guest (%d)", r.PerPerson.Guests), usd(r.PerPerson.Total))
	}
	if len(r.TipSuggestions) > 0 {
		add("")
		center("Suggested gratuity", false)
		for _, s := range r.TipSuggestions {
			pair("  "+s.Rate.String()+"%", usd(s.Amount))
		}
	}

	if r.Options.ShowPaymentDetails {
		rule()
		p := r.Payment
		pair(p.Method, p.EntryMethod)
		add(p.CardNumber)
		pair("Auth: "+p.AuthCode, p.Status)
		add("Ref: " + p.TransactionID)
	}
	rule()
	center(d.Barcode, false)
	add("")
	center("Thank you for your visit!", false)
	return out
}

func categoryRows(d receipt.Details) []string {
	var rows []string
	if d.TableNumber > 0 {
		rows = append(rows, columns(fmt.Sprintf("Table: %d", d.TableNumber), fmt.Sprintf("Guests: %d", d.GuestCount)))
	}
	for _, v := range []string{d.Server, d.Barista, d.Cashier, d.Provider} {
		if v != "" {
			rows = append(rows, v)
		}
	}
	if d.OrderType != "" {
		rows = append(rows, columns(d.OrderType, d.Ticket))
	}
	if d.AppointmentID != "" {
		rows = append(rows, "Appt: "+d.AppointmentID)
	}
	if d.MembershipTier != "" {
		rows = append(rows, columns("Member: "+d.MembershipTier, fmt.Sprintf("Pts +%d", d.RewardsEarned)))
	}
	return rows
}

// columns left-aligns left and right-aligns right, truncating left when both
// do not fit.
func columns(left, right string) string {
	gap := Width - utf8.RuneCountInString(right) - 1
	if gap < 0 {
		return clip(right)
	}
	l := []rune(left)
	if len(l) > gap {
		l = l[:gap]
	}
	return string(l) + strings.Repeat(" ", Width-len(l)-utf8.RuneCountInString(right)) + right
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= Width {
		return s
	}
	return string([]rune(s)[:Width])
}

func initials(name string) string {
	var b strings.Builder
	for _, w := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(r)
		if b.Len() >= 3 {
			break
		}
	}
	return strings.ToUpper(b.String())
}
