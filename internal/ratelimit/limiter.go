package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Decision is the outcome of registering one request against a limit.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts requests per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// New returns a Redis sliding window limiter when rdb is set and a per-process
// fixed window otherwise. A non-positive window or max disables limiting.
func New(rdb redis.UniversalClient, prefix string, window time.Duration, max int) Limiter {
	if rdb == nil && max > 0 && window > 0 {
		return NewMemory(prefix, window, max)
	}
	return Sliding{Client: rdb, Prefix: prefix, Window: window, Max: max}
}

// Memory keeps fixed window counters in process memory. Each replica counts
// on its own.
type Memory struct {
	lim *limiter.Limiter
}

// NewMemory builds a Memory limiter allowing max requests per window.
func NewMemory(prefix string, window time.Duration, max int) *Memory {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
	return &Memory{lim: limiter.New(store, limiter.Rate{Period: window, Limit: int64(max)})}
}

// Allow implements Limiter.
func (m *Memory) Allow(ctx context.Context, key string) (Decision, error) {
	c, err := m.lim.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: memory store: %w", err)
	}
	return Decision{
		Allowed:   !c.Reached,
		Limit:     int(c.Limit),
		Remaining: int(c.Remaining),
		Reset:     time.Unix(c.Reset, 0),
	}, nil
}
