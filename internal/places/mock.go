package places

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MockClient answers lookups from a fixed directory so the service can run
// without a Google API key.
type MockClient struct{}

var directory = []Place{
	{PlaceID: "mock-joes-diner", Name: "Joe's Diner", FormattedAddress: "123 Main St, New York, NY 10001, USA", FormattedPhoneNumber: "(212) 555-0134", Types: []string{"restaurant"}},
	{PlaceID: "mock-blue-bottle", Name: "Blue Bottle Coffee", FormattedAddress: "66 Mint St, San Francisco, CA 94103, USA", FormattedPhoneNumber: "(415) 555-0199", Types: []string{"cafe"}},
	{PlaceID: "mock-tonys-pizza", Name: "Tony's Pizza Napoletana", FormattedAddress: "1570 Stockton St, San Francisco, CA 94133, USA", FormattedPhoneNumber: "(415) 555-0112", Types: []string{"restaurant"}},
	{PlaceID: "mock-lone-star-bbq", Name: "Lone Star BBQ", FormattedAddress: "900 Congress Ave, Austin, TX 78701, USA", FormattedPhoneNumber: "(512) 555-0177", Types: []string{"restaurant"}},
}

// Search returns the first directory entry whose name contains the query, or
// a stable invented place otherwise.
func (MockClient) Search(_ context.Context, query string) ([]Place, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, ErrQueryRequired
	}
	for _, p := range directory {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return []Place{p}, nil
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(needle))
	n := h.Sum32()
	return []Place{{
		PlaceID:              fmt.Sprintf("mock-%08x", n),
		Name:                 titleCase(needle),
		FormattedAddress:     fmt.Sprintf("%d Broadway, New York, NY 100%02d, USA", 100+n%900, n%40),
		FormattedPhoneNumber: fmt.Sprintf("(212) 555-%04d", n%10000),
		Types:                []string{"restaurant"},
	}}, nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
