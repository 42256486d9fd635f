package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var builtinTemplates []byte

type rawFile struct {
	Templates []rawTemplate `yaml:"templates"`
}

type rawTemplate struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Preview     string    `yaml:"preview"`
	Category    string    `yaml:"category"`
	Items       []rawItem `yaml:"items"`
}

type rawItem struct {
	Name       string     `yaml:"name"`
	PriceRange []float64  `yaml:"price_range"`
	Typical    *float64   `yaml:"typical"`
	Options    []string   `yaml:"options"`
	Extras     []rawExtra `yaml:"extras"`
	Includes   []string   `yaml:"includes"`
}

type rawExtra struct {
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price"`
}

// Parse decodes YAML template definitions and validates each catalog entry.
func Parse(data []byte) ([]Template, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	if len(raw.Templates) == 0 {
		return nil, errors.New("catalog: no templates defined")
	}
	seen := make(map[string]struct{}, len(raw.Templates))
	out := make([]Template, 0, len(raw.Templates))
	for _, rt := range raw.Templates {
		id := strings.TrimSpace(rt.ID)
		if id == "" {
			return nil, errors.New("catalog: template id is required")
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate template %q", id)
		}
		seen[id] = struct{}{}
		category := Category(strings.ToLower(strings.TrimSpace(rt.Category)))
		if !category.Valid() {
			return nil, fmt.Errorf("catalog: template %q has unknown category %q", id, rt.Category)
		}
		items := make([]Item, 0, len(rt.Items))
		for _, ri := range rt.Items {
			item, err := ri.toItem()
			if err != nil {
				return nil, fmt.Errorf("catalog: template %q: %w", id, err)
			}
			items = append(items, item)
		}
		out = append(out, Template{
			ID:          id,
			Name:        rt.Name,
			Description: rt.Description,
			Preview:     rt.Preview,
			Category:    category,
			Items:       items,
		})
	}
	return out, nil
}

func (ri rawItem) toItem() (Item, error) {
	name := strings.TrimSpace(ri.Name)
	if name == "" {
		return Item{}, errors.New("item name is required")
	}
	if len(ri.PriceRange) != 2 {
		return Item{}, fmt.Errorf("item %q: price_range needs [min, max]", name)
	}
	lo := decimal.NewFromFloat(ri.PriceRange[0])
	hi := decimal.NewFromFloat(ri.PriceRange[1])
	if lo.IsNegative() || hi.LessThan(lo) {
		return Item{}, fmt.Errorf("item %q: invalid price range %s-%s", name, lo, hi)
	}
	item := Item{
		Name:     name,
		Min:      lo,
		Max:      hi,
		Options:  ri.Options,
		Includes: ri.Includes,
	}
	if ri.Typical != nil {
		typical := decimal.NewFromFloat(*ri.Typical)
		item.Typical = &typical
	}
	for _, re := range ri.Extras {
		item.Extras = append(item.Extras, Extra{Name: re.Name, Price: decimal.NewFromFloat(re.Price)})
	}
	return item, nil
}
