package places

import (
	"context"
	"errors"
	"fmt"
)

// Place is a merchant resolved from a free-text query.
type Place struct {
	PlaceID              string   `json:"place_id"`
	Name                 string   `json:"name"`
	FormattedAddress     string   `json:"formatted_address"`
	FormattedPhoneNumber string   `json:"formatted_phone_number,omitempty"`
	Types                []string `json:"types,omitempty"`
	Rating               float32  `json:"rating,omitempty"`
}

// Client looks merchants up by name.
type Client interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

// ErrQueryRequired is returned for blank queries.
var ErrQueryRequired = errors.New("places: query is required")

// UpstreamError carries a non-OK status reported by the places provider.
type UpstreamError struct {
	HTTPStatus int
	Status     string
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("places upstream: %s", e.Status)
	}
	return fmt.Sprintf("places upstream: %s - %s", e.Status, e.Message)
}
