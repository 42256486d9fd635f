package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-struk/internal/money"
)

// Category identifies the kind of merchant a template mimics.
type Category string

const (
	CategoryRestaurant Category = "restaurant"
	CategoryRetail     Category = "retail"
	CategoryService    Category = "service"
	CategoryCafe       Category = "cafe"
	CategoryPizzeria   Category = "pizzeria"
	CategoryFastfood   Category = "fastfood"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryRestaurant, CategoryRetail, CategoryService, CategoryCafe, CategoryPizzeria, CategoryFastfood:
		return true
	default:
		return false
	}
}

// Extra is a priced add-on offered with an item.
type Extra struct {
	Name  string      `json:"name"`
	Price money.Money `json:"price"`
}

// Item is a purchasable catalog entry with its plausible price range.
type Item struct {
	Name     string       `json:"name"`
	Min      money.Money  `json:"min_price"`
	Max      money.Money  `json:"max_price"`
	Typical  *money.Money `json:"typical_price,omitempty"`
	Options  []string     `json:"options,omitempty"`
	Extras   []Extra      `json:"extras,omitempty"`
	Includes []string     `json:"includes,omitempty"`
}

// Template describes a receipt layout and the catalog used to fill it.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Preview     string   `json:"preview"`
	Category    Category `json:"category"`
	Items       []Item   `json:"items"`
}

// Hours is a merchant's opening window in whole hours of the day.
type Hours struct {
	Open  int `json:"open"`
	Close int `json:"close"`
}

var defaultMaxQuantity = map[Category]int{
	CategoryRestaurant: 2,
	CategoryRetail:     3,
}

const fallbackMaxQuantity = 4

// MaxQuantity returns the default per-line quantity cap for a category.
func MaxQuantity(c Category) int {
	if q, ok := defaultMaxQuantity[c]; ok {
		return q
	}
	return fallbackMaxQuantity
}

var businessHours = map[Category]Hours{
	CategoryRestaurant: {Open: 11, Close: 23},
	CategoryRetail:     {Open: 9, Close: 18},
	CategoryService:    {Open: 9, Close: 18},
	CategoryCafe:       {Open: 6, Close: 21},
	CategoryPizzeria:   {Open: 11, Close: 23},
	CategoryFastfood:   {Open: 10, Close: 22},
}

// BusinessHours returns the opening hours used to place generated receipt times.
func BusinessHours(c Category) Hours {
	if h, ok := businessHours[c]; ok {
		return h
	}
	return Hours{Open: 9, Close: 21}
}

// Price returns the typical price when set, otherwise the midpoint of the range.
func (i Item) Price() money.Money {
	if i.Typical != nil {
		return *i.Typical
	}
	return money.Round2(i.Min.Add(i.Max).Div(decimal.NewFromInt(2)))
}
