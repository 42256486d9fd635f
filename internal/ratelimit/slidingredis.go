package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Sliding counts requests in a Redis sorted set per key so the limit holds
// across replicas. A nil Client disables limiting.
type Sliding struct {
	Client redis.UniversalClient
	Prefix string
	Window time.Duration
	Max    int
}

// Allow implements Limiter. Members older than the window are trimmed before
// the new request is counted, and the key expires with the window.
func (s Sliding) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	d := Decision{Allowed: true, Limit: s.Max, Remaining: s.Max, Reset: now.Add(s.Window)}
	if s.Client == nil || s.Max <= 0 || s.Window <= 0 {
		return d, nil
	}

	redisKey := s.Prefix + key
	pipe := s.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%d", now.Add(-s.Window).UnixNano()))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	card := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, s.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis window: %w", err)
	}

	seen := int(card.Val())
	d.Allowed = seen <= s.Max
	d.Remaining = max(s.Max-seen, 0)
	return d, nil
}
