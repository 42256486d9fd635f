package receipt_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-struk/internal/basket"
	"github.com/noah-isme/backend-struk/internal/catalog"
	"github.com/noah-isme/backend-struk/internal/common"
	"github.com/noah-isme/backend-struk/internal/receipt"
)

var fixedNow = time.Date(2026, 3, 7, 13, 5, 0, 0, time.UTC)

func newService(t *testing.T) *receipt.Service {
	t.Helper()
	cat, err := catalog.NewService(catalog.ServiceConfig{})
	require.NoError(t, err)
	svc, err := receipt.NewService(receipt.Config{
		Catalog: cat,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return fixedNow },
		Seeds:   func() uint64 { return 99 },
	})
	require.NoError(t, err)
	return svc
}

func seed(v uint64) *uint64 { return &v }

func appCode(t *testing.T, err error) (string, int) {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code, appErr.HTTPStatus
}

func TestBuildSynthesizesBasketForTotal(t *testing.T) {
	svc := newService(t)
	rec, err := svc.Build(context.Background(), receipt.Request{
		Template: "classic",
		Merchant: "Joe's Diner",
		Address:  "123 Main St",
		Date:     "2026-03-01",
		Amount:   "107.00",
		TaxRate:  "7",
		TipRate:  "15",
		Seed:     seed(42),
	})
	require.NoError(t, err)

	require.Equal(t, "100", rec.Amounts.Subtotal.String())
	require.Equal(t, "7", rec.Amounts.Tax.String())
	require.Equal(t, "15", rec.Amounts.Tip.String())
	require.Equal(t, "122", rec.GrandTotal.String())
	require.True(t, rec.Synthesized)
	require.NotEmpty(t, rec.Items)
	require.True(t, rec.ItemsTotal.Equal(rec.Amounts.Total))
	for _, line := range rec.Items {
		require.LessOrEqual(t, line.Quantity, catalog.MaxQuantity(catalog.CategoryRestaurant))
	}
	require.Len(t, rec.TipSuggestions, 3)
	require.Equal(t, "2026-03-01", rec.Date)
	require.Regexp(t, `^260301-\d{4}$`, rec.Details.OrderNumber)
	require.NotZero(t, rec.Details.TableNumber)
	require.Equal(t, receipt.DefaultOptions(), rec.Options)
	require.EqualValues(t, 42, rec.Seed)
	require.NotEmpty(t, rec.ID)
}

func TestBuildIsReproducibleForSeed(t *testing.T) {
	svc := newService(t)
	req := receipt.Request{Template: "modern", Merchant: "Shop", Amount: "250.55", TaxRate: "8.875", Seed: seed(7)}

	a, err := svc.Build(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.Build(context.Background(), req)
	require.NoError(t, err)

	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, a.Items, b.Items)
	require.Equal(t, a.Details, b.Details)
	require.Equal(t, a.Payment, b.Payment)
}

func TestBuildUsesSuppliedItems(t *testing.T) {
	svc := newService(t)
	rec, err := svc.Build(context.Background(), receipt.Request{
		Merchant: "Cafe",
		Amount:   "20",
		Items: []receipt.ItemInput{
			{Name: "Latte", Quantity: 2, UnitPrice: "4.255"},
			{Name: "<b>Scone</b>", Quantity: 1, UnitPrice: "3"},
		},
	})
	require.NoError(t, err)
	require.False(t, rec.Synthesized)
	require.Len(t, rec.Items, 2)
	require.Equal(t, "4.26", rec.Items[0].UnitPrice.String())
	require.Equal(t, "8.52", rec.Items[0].LineTotal.String())
	require.Equal(t, "Scone", rec.Items[1].Name)
	require.Equal(t, "11.52", rec.ItemsTotal.String())
	require.Equal(t, "classic", rec.Template)
	require.EqualValues(t, 99, rec.Seed)
}

func TestBuildPricesItemsFromTemplate(t *testing.T) {
	svc := newService(t)
	rec, err := svc.Build(context.Background(), receipt.Request{
		Merchant: "Diner",
		Amount:   "20",
		Items:    []receipt.ItemInput{{Name: "coffee", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, rec.Items, 1)
	require.Equal(t, "3.99", rec.Items[0].UnitPrice.String())
	require.Equal(t, "7.98", rec.Items[0].LineTotal.String())
	require.Zero(t, rec.Items[0].Source)

	_, err = svc.Build(context.Background(), receipt.Request{
		Merchant: "Diner",
		Amount:   "20",
		Items:    []receipt.ItemInput{{Name: "Lobster", Quantity: 1}},
	})
	code, _ := appCode(t, err)
	require.Equal(t, "INVALID_ITEM", code)
}

func TestBuildSanitisesMerchantText(t *testing.T) {
	svc := newService(t)
	rec, err := svc.Build(context.Background(), receipt.Request{
		Merchant: `Joe's <script>alert(1)</script>  Diner`,
		Phone:    "(212)   555-0134",
		Amount:   "10",
	})
	require.NoError(t, err)
	require.Equal(t, "Joe's Diner", rec.Merchant)
	require.Equal(t, "(212) 555-0134", rec.Phone)

	_, err = svc.Build(context.Background(), receipt.Request{Merchant: "<i></i>", Amount: "10"})
	code, status := appCode(t, err)
	require.Equal(t, "VALIDATION_FAILED", code)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestBuildRegionTaxFallback(t *testing.T) {
	svc := newService(t)
	rec, err := svc.Build(context.Background(), receipt.Request{Merchant: "Austin BBQ", Amount: "106.25", Region: "TX", Guests: 2})
	require.NoError(t, err)
	require.Equal(t, "6.25", rec.TaxRate.String())
	require.Equal(t, "100", rec.Amounts.Subtotal.String())
	require.NotNil(t, rec.PerPerson)
	require.Equal(t, 2, rec.PerPerson.Guests)
}

func TestBuildErrors(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Build(ctx, receipt.Request{Merchant: "x", Amount: "-5"})
	code, status := appCode(t, err)
	require.Equal(t, "INVALID_AMOUNT", code)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	_, err = svc.Build(ctx, receipt.Request{Merchant: "x", Amount: "1e999999999"})
	code, status = appCode(t, err)
	require.Equal(t, "INVALID_AMOUNT", code)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	_, err = svc.Build(ctx, receipt.Request{Merchant: "x", Amount: "10", Template: "gone"})
	_, status = appCode(t, err)
	require.Equal(t, http.StatusNotFound, status)

	_, err = svc.Build(ctx, receipt.Request{Amount: "10", Date: "03/07/2026"})
	code, _ = appCode(t, err)
	require.Equal(t, "VALIDATION_FAILED", code)

	_, err = svc.Build(ctx, receipt.Request{Merchant: "x", Amount: "10", Items: []receipt.ItemInput{{Name: "a", Quantity: 1, UnitPrice: "free"}}})
	code, _ = appCode(t, err)
	require.Equal(t, "INVALID_ITEM", code)
}

func TestBuildZeroTotal(t *testing.T) {
	svc := newService(t)
	rec, err := svc.Build(context.Background(), receipt.Request{Merchant: "x", Amount: "0", TaxRate: "8.875", TipRate: "15"})
	require.NoError(t, err)
	require.True(t, rec.Amounts.Total.IsZero())
	require.True(t, rec.Amounts.Tip.IsZero())
	require.Empty(t, rec.Items)
}

func TestDecomposeCoercesRates(t *testing.T) {
	svc := newService(t)
	out, err := svc.Decompose(context.Background(), receipt.DecomposeRequest{Total: "107.00", TaxRate: "7.0", TipRate: "abc", Guests: 2})
	require.NoError(t, err)
	require.Equal(t, "100", out.Subtotal.String())
	require.True(t, out.Tip.IsZero())
	require.True(t, out.TipRate.IsZero())
	require.Equal(t, "4.9", out.TaxSplit.State.String())
	require.Equal(t, "2.1", out.TaxSplit.Local.String())
	require.Equal(t, "53.5", out.PerPerson.Total.String())
}

func TestSynthesizeEndpointSemantics(t *testing.T) {
	svc := newService(t)
	out, err := svc.Synthesize(context.Background(), receipt.SynthesizeRequest{Template: "fastfood", Target: "33.33", Seed: seed(5)})
	require.NoError(t, err)
	require.Equal(t, "fastfood", out.Template)
	require.True(t, out.Total.Equal(out.Target))
	require.Equal(t, "33.33", basket.Total(out.Items).String())
	for _, l := range out.Items {
		require.LessOrEqual(t, l.Quantity, 4)
	}

	capped, err := svc.Synthesize(context.Background(), receipt.SynthesizeRequest{Template: "fastfood", Target: "60", MaxQuantity: 1, Seed: seed(5)})
	require.NoError(t, err)
	for _, l := range capped.Items {
		require.Equal(t, 1, l.Quantity)
	}

	_, err = svc.Synthesize(context.Background(), receipt.SynthesizeRequest{Target: "nan"})
	code, _ := appCode(t, err)
	require.Equal(t, "INVALID_AMOUNT", code)
}
