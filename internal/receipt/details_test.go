package receipt

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-struk/internal/basket"
	"github.com/noah-isme/backend-struk/internal/catalog"
)

func TestGeneratorFormats(t *testing.T) {
	day := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	for seed := uint64(0); seed < 200; seed++ {
		rng := basket.NewRand(seed)
		require.Regexp(t, `^260307-\d{4}$`, OrderNumber(rng, day))
		require.Regexp(t, `^[1-9]\d{3}-[1-9]$`, TerminalID(rng))
		require.Regexp(t, `^[SWM][1-9]\d{3}$`, StaffID(rng))
		require.Regexp(t, `^[0-9A-Z]{6}$`, AuthCode(rng))
		require.Regexp(t, `^[1-9]\d{3}$`, LastFour(rng))
		require.Regexp(t, `^\d{12}$`, Barcode(rng))
	}
}

func TestReceiptTimeWithinHours(t *testing.T) {
	hours := catalog.Hours{Open: 11, Close: 23}
	clock := regexp.MustCompile(`^(\d{2}):(\d{2}) (AM|PM)$`)

	open := time.Date(2026, 3, 7, 15, 42, 0, 0, time.UTC)
	got, rush := ReceiptTime(basket.NewRand(1), hours, open)
	require.Equal(t, "03:42 PM", got)
	require.False(t, rush)

	closed := time.Date(2026, 3, 7, 4, 10, 0, 0, time.UTC)
	for seed := uint64(0); seed < 100; seed++ {
		got, _ := ReceiptTime(basket.NewRand(seed), hours, closed)
		require.Regexp(t, clock, got)
		parsed, err := time.Parse("03:04 PM", got)
		require.NoError(t, err)
		require.GreaterOrEqual(t, parsed.Hour(), hours.Open)
		require.Less(t, parsed.Hour(), hours.Close)
	}
}

func TestNewPaymentShapes(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for seed := uint64(0); seed < 300; seed++ {
		p := NewPayment(basket.NewRand(seed), decimal.RequireFromString("100.00"), now)
		seen[p.Type] = true
		require.Equal(t, "APPROVED", p.Status)
		require.Equal(t, "3.2", p.ProcessingFee.String())
		switch p.Type {
		case "CREDIT", "DEBIT":
			require.Regexp(t, `^xxxx-xxxx-xxxx-\d{4}$`, p.CardNumber)
		case "MOBILE":
			require.Regexp(t, `^MOBILE-[0-9A-Z]{6}$`, p.CardNumber)
		default:
			t.Fatalf("unexpected payment type %q", p.Type)
		}
	}
	require.True(t, seen["CREDIT"] && seen["DEBIT"] && seen["MOBILE"])
}

func TestNewDetailsPerCategory(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	total := decimal.RequireFromString("42.50")

	d := NewDetails(basket.NewRand(3), catalog.CategoryRestaurant, total, now, now)
	require.GreaterOrEqual(t, d.TableNumber, 1)
	require.LessOrEqual(t, d.TableNumber, 30)
	require.Regexp(t, `^Server #[SWM]\d{4}$`, d.Server)
	require.GreaterOrEqual(t, d.GuestCount, 1)
	require.True(t, d.RushHour)

	d = NewDetails(basket.NewRand(3), catalog.CategoryCafe, total, now, now)
	require.Contains(t, []string{"Dine In", "To Go"}, d.OrderType)
	require.NotEmpty(t, d.Barista)

	d = NewDetails(basket.NewRand(3), catalog.CategoryFastfood, total, now, now)
	require.Contains(t, []string{"Drive Thru", "Counter"}, d.OrderType)
	require.Regexp(t, `^#\d{1,2}$`, d.Ticket)

	d = NewDetails(basket.NewRand(3), catalog.CategoryRetail, total, now, now)
	require.EqualValues(t, 425, d.RewardsEarned)
	require.Contains(t, []string{"GOLD", "REGULAR"}, d.MembershipTier)

	d = NewDetails(basket.NewRand(3), catalog.CategoryService, total, now, now)
	require.Regexp(t, `^APT-[0-9A-Z]{6}$`, d.AppointmentID)
	require.Zero(t, d.TableNumber)
}
