package basket

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-struk/internal/catalog"
	"github.com/noah-isme/backend-struk/internal/money"
)

// LineItem is one row of a synthesized basket.
type LineItem struct {
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Money `json:"unit_price"`
	LineTotal money.Money `json:"line_total"`
	// Source is the index of the catalog entry the line was drawn from.
	Source int `json:"-"`
	// Corrective marks the final line that absorbs the gap to the target.
	Corrective bool `json:"corrective,omitempty"`
}

const defaultMaxDraws = 3

var defaultThreshold = decimal.NewFromInt(5)

type settings struct {
	threshold decimal.Decimal
	maxDraws  int
}

// Option tunes the synthesis loop.
type Option func(*settings)

// WithThreshold sets the remaining amount below which no further catalog draws
// are made and the corrective line takes over.
func WithThreshold(v decimal.Decimal) Option {
	return func(s *settings) {
		if !v.IsNegative() {
			s.threshold = v
		}
	}
}

// WithMaxDraws bounds how many price draws an item gets before it is retired.
func WithMaxDraws(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxDraws = n
		}
	}
}

// Synthesize builds a randomized basket from items whose line totals sum to
// round2(target). Each catalog entry backs at most one regular line; the final
// corrective line reuses a random entry's name at whatever price closes the gap.
// maxQuantity caps every line's quantity and is treated as 1 when lower.
func Synthesize(rng Rand, items []catalog.Item, target decimal.Decimal, maxQuantity int, opts ...Option) []LineItem {
	target = money.Round2(target)
	if len(items) == 0 || !target.IsPositive() {
		return []LineItem{}
	}
	if rng == nil {
		rng = DefaultRand
	}
	if maxQuantity < 1 {
		maxQuantity = 1
	}
	cfg := settings{threshold: defaultThreshold, maxDraws: defaultMaxDraws}
	for _, opt := range opts {
		opt(&cfg)
	}

	pool := newPool(len(items))
	draws := make([]int, len(items))
	committed := make([]bool, len(items))
	remaining := target
	result := make([]LineItem, 0, len(items)+1)

	for remaining.GreaterThan(cfg.threshold) && pool.len() > 0 {
		slot := rng.IntN(pool.len())
		idx := pool.at(slot)
		item := items[idx]
		draws[idx]++

		unit := drawPrice(rng, item)
		if !unit.IsPositive() {
			retireIfSpent(pool, slot, draws[idx], cfg.maxDraws)
			continue
		}
		qty := quantityFor(remaining, unit, maxQuantity)
		lineTotal := money.Round2(unit.Mul(decimal.NewFromInt(int64(qty))))
		if lineTotal.GreaterThan(remaining) {
			retireIfSpent(pool, slot, draws[idx], cfg.maxDraws)
			continue
		}

		result = append(result, LineItem{
			Name:      item.Name,
			Quantity:  qty,
			UnitPrice: unit,
			LineTotal: lineTotal,
			Source:    idx,
		})
		pool.remove(slot)
		committed[idx] = true
		remaining = remaining.Sub(lineTotal)
	}

	if remaining.IsPositive() {
		idx := pickCorrective(rng, committed)
		price := money.Round2(remaining)
		result = append(result, LineItem{
			Name:       items[idx].Name,
			Quantity:   1,
			UnitPrice:  price,
			LineTotal:  price,
			Source:     idx,
			Corrective: true,
		})
	}
	return result
}

// Total sums the line totals of a basket.
func Total(lines []LineItem) money.Money {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// pickCorrective prefers a catalog entry that has no line yet and falls back to
// any entry once every one has been used.
func pickCorrective(rng Rand, committed []bool) int {
	unused := make([]int, 0, len(committed))
	for i, used := range committed {
		if !used {
			unused = append(unused, i)
		}
	}
	if len(unused) == 0 {
		return rng.IntN(len(committed))
	}
	return unused[rng.IntN(len(unused))]
}

func drawPrice(rng Rand, item catalog.Item) money.Money {
	spread := item.Max.Sub(item.Min)
	if !spread.IsPositive() {
		return money.Round2(item.Min)
	}
	return money.Round2(item.Min.Add(spread.Mul(decimal.NewFromFloat(rng.Float64()))))
}

func quantityFor(remaining, unit money.Money, maxQuantity int) int {
	fit := remaining.Div(unit).Floor().IntPart()
	qty := int64(maxQuantity)
	if fit < qty {
		qty = fit
	}
	if qty < 1 {
		qty = 1
	}
	return int(qty)
}

func retireIfSpent(p *pool, slot, draws, maxDraws int) {
	if draws >= maxDraws {
		p.remove(slot)
	}
}

// pool tracks the catalog indices still eligible for a draw.
type pool struct {
	idx []int
}

func newPool(n int) *pool {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return &pool{idx: idx}
}

func (p *pool) len() int { return len(p.idx) }

func (p *pool) at(slot int) int { return p.idx[slot] }

func (p *pool) remove(slot int) {
	p.idx = append(p.idx[:slot], p.idx[slot+1:]...)
}
