package places

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"googlemaps.github.io/maps"
)

// GoogleConfig configures the Google Places client.
type GoogleConfig struct {
	APIKey     string
	HTTPClient *http.Client
	// BaseURL overrides the API host; used by tests.
	BaseURL  string
	Language string
}

// GoogleClient resolves merchants with a text search followed by a details
// lookup of the best match.
type GoogleClient struct {
	maps     *maps.Client
	language string
}

// NewGoogleClient builds a client over googlemaps.github.io/maps.
func NewGoogleClient(cfg GoogleConfig) (*GoogleClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("places: api key is required")
	}
	opts := []maps.ClientOption{maps.WithAPIKey(cfg.APIKey)}
	if cfg.HTTPClient != nil {
		opts = append(opts, maps.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	return &GoogleClient{maps: client, language: lang}, nil
}

var detailFields = []maps.PlaceDetailsFieldMask{
	maps.PlaceDetailsFieldMaskName,
	maps.PlaceDetailsFieldMaskFormattedAddress,
	maps.PlaceDetailsFieldMaskFormattedPhoneNumber,
	maps.PlaceDetailsFieldMaskPlaceID,
}

// Search returns at most one place: the first text search hit merged with its details.
func (c *GoogleClient) Search(ctx context.Context, query string) ([]Place, error) {
	found, err := c.maps.TextSearch(ctx, &maps.TextSearchRequest{
		Query:    query,
		Type:     maps.PlaceTypeRestaurant,
		Language: c.language,
	})
	if err != nil {
		if isZeroResults(err) {
			return []Place{}, nil
		}
		return nil, translate(err)
	}
	if len(found.Results) == 0 {
		return []Place{}, nil
	}
	first := found.Results[0]
	place := Place{
		PlaceID:          first.PlaceID,
		Name:             first.Name,
		FormattedAddress: first.FormattedAddress,
		Types:            first.Types,
		Rating:           first.Rating,
	}

	details, err := c.maps.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID:  first.PlaceID,
		Language: c.language,
		Fields:   detailFields,
	})
	if err != nil {
		return nil, translate(err)
	}
	if details.Name != "" {
		place.Name = details.Name
	}
	if details.FormattedAddress != "" {
		place.FormattedAddress = details.FormattedAddress
	}
	if details.PlaceID != "" {
		place.PlaceID = details.PlaceID
	}
	place.FormattedPhoneNumber = details.FormattedPhoneNumber
	return []Place{place}, nil
}

func isZeroResults(err error) bool {
	return strings.Contains(err.Error(), "ZERO_RESULTS")
}

// translate maps the "maps: STATUS - message" errors of the client library
// onto UpstreamError; transport failures pass through unchanged.
func translate(err error) error {
	msg := err.Error()
	rest, ok := strings.CutPrefix(msg, "maps: ")
	if !ok {
		return err
	}
	status, detail, _ := strings.Cut(rest, " - ")
	status = strings.TrimSpace(status)
	code, known := statusCodes[status]
	if !known {
		return err
	}
	return &UpstreamError{HTTPStatus: code, Status: status, Message: strings.TrimSpace(detail)}
}

var statusCodes = map[string]int{
	"INVALID_REQUEST":  http.StatusBadRequest,
	"REQUEST_DENIED":   http.StatusForbidden,
	"OVER_QUERY_LIMIT": http.StatusTooManyRequests,
	"NOT_FOUND":        http.StatusNotFound,
	"UNKNOWN_ERROR":    http.StatusBadGateway,
}
