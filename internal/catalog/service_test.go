package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinTemplatesParse(t *testing.T) {
	svc, err := NewService(ServiceConfig{})
	require.NoError(t, err)

	templates := svc.Templates()
	require.NotEmpty(t, templates)
	require.Equal(t, "classic", svc.DefaultTemplateID())

	for _, tmpl := range templates {
		require.True(t, tmpl.Category.Valid(), tmpl.ID)
		require.NotEmpty(t, tmpl.Items, tmpl.ID)
		for _, item := range tmpl.Items {
			require.False(t, item.Min.IsNegative(), item.Name)
			require.True(t, item.Max.GreaterThanOrEqual(item.Min), item.Name)
		}
	}

	classic, err := svc.Template("Classic")
	require.NoError(t, err)
	require.Equal(t, CategoryRestaurant, classic.Category)
	require.Equal(t, "Coffee", classic.Items[0].Name)
	require.Equal(t, "2.99", classic.Items[0].Min.String())
	require.Len(t, classic.Items[0].Extras, 2)

	cafe, err := svc.Template("cafe")
	require.NoError(t, err)
	require.NotNil(t, cafe.Items[0].Typical)
	require.Equal(t, "5.25", cafe.Items[0].Price().String())
}

func TestTemplateNotFound(t *testing.T) {
	svc, err := NewService(ServiceConfig{})
	require.NoError(t, err)
	_, err = svc.Template("missing")
	require.Error(t, err)
}

func TestMaxQuantityPolicy(t *testing.T) {
	require.Equal(t, 2, MaxQuantity(CategoryRestaurant))
	require.Equal(t, 3, MaxQuantity(CategoryRetail))
	require.Equal(t, 4, MaxQuantity(CategoryService))
	require.Equal(t, 4, MaxQuantity(Category("unknown")))

	svc, err := NewService(ServiceConfig{MaxQuantity: map[Category]int{CategoryRetail: 5, CategoryCafe: 0}})
	require.NoError(t, err)
	require.Equal(t, 5, svc.MaxQuantity(CategoryRetail))
	require.Equal(t, 4, svc.MaxQuantity(CategoryCafe))
	require.Equal(t, 2, svc.MaxQuantity(CategoryRestaurant))
}

func TestBusinessHours(t *testing.T) {
	require.Equal(t, Hours{Open: 6, Close: 21}, BusinessHours(CategoryCafe))
	require.Equal(t, Hours{Open: 9, Close: 21}, BusinessHours(Category("other")))
}

func TestParseRejectsBadDefinitions(t *testing.T) {
	cases := map[string]string{
		"empty":        `templates: []`,
		"category":     "templates:\n  - id: x\n    category: spaceship\n    items: []\n",
		"range":        "templates:\n  - id: x\n    category: retail\n    items:\n      - {name: A, price_range: [5, 1]}\n",
		"range length": "templates:\n  - id: x\n    category: retail\n    items:\n      - {name: A, price_range: [5]}\n",
		"duplicate":    "templates:\n  - {id: x, category: retail}\n  - {id: x, category: retail}\n",
		"nameless":     "templates:\n  - id: x\n    category: retail\n    items:\n      - {price_range: [1, 2]}\n",
	}
	for name, src := range cases {
		_, err := Parse([]byte(src))
		require.Error(t, err, name)
	}
}

func TestItemPriceMidpoint(t *testing.T) {
	items, err := Parse([]byte("templates:\n  - id: x\n    category: retail\n    items:\n      - {name: A, price_range: [1.00, 2.01]}\n"))
	require.NoError(t, err)
	require.Equal(t, "1.51", items[0].Items[0].Price().String())
}
