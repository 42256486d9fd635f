package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-struk/internal/basket"
	"github.com/noah-isme/backend-struk/internal/catalog"
	"github.com/noah-isme/backend-struk/internal/money"
)

const alphanumerics = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// OrderNumber formats YYMMDD-NNNN for the given day.
func OrderNumber(rng basket.Rand, day time.Time) string {
	return fmt.Sprintf("%s-%04d", day.Format("060102"), rng.IntN(9999))
}

// TerminalID formats a store and lane pair such as 4821-3.
func TerminalID(rng basket.Rand) string {
	return fmt.Sprintf("%d-%d", 1000+rng.IntN(9000), 1+rng.IntN(9))
}

// StaffID is a role letter (server, waiter, manager) and four digits.
func StaffID(rng basket.Rand) string {
	return fmt.Sprintf("%c%d", "SWM"[rng.IntN(3)], 1000+rng.IntN(9000))
}

// AuthCode returns six upper-case alphanumerics.
func AuthCode(rng basket.Rand) string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(alphanumerics[rng.IntN(len(alphanumerics))])
	}
	return b.String()
}

// LastFour returns four card digits that never start with zero.
func LastFour(rng basket.Rand) string {
	return fmt.Sprintf("%d", 1000+rng.IntN(9000))
}

// Barcode returns twelve random digits.
func Barcode(rng basket.Rand) string {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteByte(byte('0' + rng.IntN(10)))
	}
	return b.String()
}

// ReceiptTime keeps now when the merchant is open and otherwise picks a
// random minute inside the opening hours.
func ReceiptTime(rng basket.Rand, hours catalog.Hours, now time.Time) (string, bool) {
	t := now
	if h := now.Hour(); h < hours.Open || h > hours.Close {
		span := hours.Close - hours.Open
		if span < 1 {
			span = 1
		}
		hour := hours.Open + rng.IntN(span)
		t = time.Date(now.Year(), now.Month(), now.Day(), hour, rng.IntN(60), 0, 0, now.Location())
	}
	h := t.Hour()
	rush := (h >= 11 && h <= 14) || (h >= 17 && h <= 19)
	return t.Format("03:04 PM"), rush
}

type paymentKind struct {
	name    string
	methods []string
	entries []string
	prefix  string
}

var (
	creditKind = paymentKind{"CREDIT", []string{"VISA", "MASTERCARD", "AMEX", "DISCOVER"}, []string{"CHIP", "SWIPE", "TAP", "MANUAL"}, "xxxx-xxxx-xxxx-"}
	debitKind  = paymentKind{"DEBIT", []string{"VISA DEBIT", "MASTERCARD DEBIT", "INTERAC"}, []string{"CHIP", "SWIPE", "TAP"}, "xxxx-xxxx-xxxx-"}
	mobileKind = paymentKind{"MOBILE", []string{"APPLE PAY", "GOOGLE PAY", "SAMSUNG PAY"}, []string{"TAP", "QR"}, "MOBILE-"}

	feeRate = decimal.RequireFromString("0.029")
	feeBase = decimal.RequireFromString("0.30")
)

// NewPayment draws a payment block: credit 70% of the time, the rest split
// between debit and mobile wallets.
func NewPayment(rng basket.Rand, total money.Money, now time.Time) Payment {
	kind := creditKind
	if rng.Float64() <= 0.3 {
		if rng.Float64() > 0.5 {
			kind = debitKind
		} else {
			kind = mobileKind
		}
	}
	card := kind.prefix + LastFour(rng)
	if kind.name == mobileKind.name {
		card = kind.prefix + AuthCode(rng)
	}
	return Payment{
		Type:          kind.name,
		Method:        kind.methods[rng.IntN(len(kind.methods))],
		EntryMethod:   kind.entries[rng.IntN(len(kind.entries))],
		CardNumber:    card,
		AuthCode:      AuthCode(rng),
		ApprovalCode:  AuthCode(rng),
		TransactionID: fmt.Sprintf("TXN%d%03d", now.UnixMilli(), rng.IntN(1000)),
		Status:        "APPROVED",
		ProcessingFee: money.Round2(total.Mul(feeRate).Add(feeBase)),
	}
}

// NewDetails generates the order metadata, including the fields specific to
// the merchant category.
func NewDetails(rng basket.Rand, category catalog.Category, total money.Money, day, now time.Time) Details {
	clock, rush := ReceiptTime(rng, catalog.BusinessHours(category), now)
	d := Details{
		OrderNumber: OrderNumber(rng, day),
		Terminal:    TerminalID(rng),
		StaffID:     StaffID(rng),
		Time:        clock,
		RushHour:    rush,
		Barcode:     Barcode(rng),
	}
	switch category {
	case catalog.CategoryRestaurant, catalog.CategoryPizzeria:
		d.TableNumber = 1 + rng.IntN(30)
		d.Server = "Server #" + StaffID(rng)
		d.GuestCount = 1 + rng.IntN(4)
	case catalog.CategoryCafe:
		d.Barista = "Barista #" + StaffID(rng)
		d.OrderType = "To Go"
		if rng.Float64() > 0.5 {
			d.OrderType = "Dine In"
		}
	case catalog.CategoryFastfood:
		d.OrderType = "Counter"
		if rng.Float64() > 0.7 {
			d.OrderType = "Drive Thru"
		}
		d.Ticket = fmt.Sprintf("#%d", rng.IntN(100))
	case catalog.CategoryRetail:
		d.Cashier = "Cashier #" + StaffID(rng)
		d.MembershipTier = "REGULAR"
		if rng.Float64() > 0.7 {
			d.MembershipTier = "GOLD"
		}
		d.RewardsEarned = total.Mul(decimal.NewFromInt(10)).Floor().IntPart()
	case catalog.CategoryService:
		d.Provider = "Provider #" + StaffID(rng)
		d.AppointmentID = "APT-" + AuthCode(rng)
	}
	return d
}
