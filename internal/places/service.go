package places

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-struk/internal/cache"
	"github.com/noah-isme/backend-struk/internal/obs"
)

const (
	maxQueryRunes = 120
	fillLockTTL   = 10 * time.Second
)

// Locker serialises cache fills for the same query across replicas.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service normalises queries and caches provider answers.
type Service struct {
	client Client
	cache  *cache.JSON
	locker Locker
	logger zerolog.Logger
}

// ServiceConfig wires the dependencies of Service.
type ServiceConfig struct {
	Client Client
	Cache  *cache.JSON
	// Locker is optional; without it concurrent misses each hit the provider.
	Locker Locker
	Logger zerolog.Logger
}

// NewService constructs a places service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{client: cfg.Client, cache: cfg.Cache, locker: cfg.Locker, logger: cfg.Logger}
}

// Normalize collapses whitespace and truncates overly long queries.
func Normalize(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if utf8.RuneCountInString(q) > maxQueryRunes {
		q = string([]rune(q)[:maxQueryRunes])
	}
	return q
}

// Search resolves a merchant name. Cache failures degrade to a live lookup.
func (s *Service) Search(ctx context.Context, query string) ([]Place, error) {
	q := Normalize(query)
	if q == "" {
		return nil, ErrQueryRequired
	}
	ctx, span := obs.StartSpan(ctx, "places.search")
	defer span.End()
	key := s.cache.Key("places", strings.ToLower(q))

	var cached []Place
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("places_cache_read")
	}
	if hit {
		record(ctx, "cache_hit")
		return cached, nil
	}

	if s.locker == nil {
		return s.fetch(ctx, q, key)
	}
	var (
		results []Place
		ran     bool
	)
	err = s.locker.WithLock(ctx, key, fillLockTTL, func(ctx context.Context) error {
		ran = true
		// Another replica may have filled the entry while we waited.
		if hit, _ := s.cache.Get(ctx, key, &results); hit {
			record(ctx, "cache_hit")
			return nil
		}
		var ferr error
		results, ferr = s.fetch(ctx, q, key)
		return ferr
	})
	if err != nil && !ran && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn().Err(err).Str("key", key).Msg("places_fill_lock")
		return s.fetch(ctx, q, key)
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) fetch(ctx context.Context, q, key string) ([]Place, error) {
	results, err := s.client.Search(ctx, q)
	if err != nil {
		record(ctx, "error")
		return nil, err
	}
	if results == nil {
		results = []Place{}
	}
	if len(results) == 0 {
		record(ctx, "empty")
	} else {
		record(ctx, "found")
	}
	if err := s.cache.Set(ctx, key, results); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("places_cache_write")
	}
	return results, nil
}

func record(ctx context.Context, result string) {
	obs.Annotate(ctx, obs.AttrPlacesResult, result)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String(obs.AttrPlacesResult, result))
	if obs.PlacesLookupTotal != nil {
		obs.PlacesLookupTotal.WithLabelValues(result).Inc()
	}
}
