package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Journal persists admission timestamps.
type Journal interface {
	// Load returns the recorded admissions at or after since, oldest first.
	Load(ctx context.Context, since time.Time) ([]time.Time, error)
	// Record appends one admission.
	Record(ctx context.Context, at time.Time) error
}

// RedisJournal stores admissions in a Redis sorted set scored by unix
// milliseconds. Members carry the exact unix-nanosecond timestamp.
type RedisJournal struct {
	client redis.Cmdable
	key    string
}

// NewRedisJournal returns a journal writing to key.
func NewRedisJournal(client redis.Cmdable, key string) *RedisJournal {
	if key == "" {
		key = "finx:ratelimit:calls"
	}
	return &RedisJournal{client: client, key: key}
}

func (r *RedisJournal) Load(ctx context.Context, since time.Time) ([]time.Time, error) {
	members, err := r.client.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", r.key, err)
	}
	out := make([]time.Time, 0, len(members))
	for _, m := range members {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		t := time.Unix(0, n)
		if t.Before(since) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *RedisJournal) Record(ctx context.Context, at time.Time) error {
	cutoff := at.Add(-dayWindow).UnixMilli()

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, r.key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: strconv.FormatInt(at.UnixNano(), 10),
	})
	pipe.ZRemRangeByScore(ctx, r.key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	pipe.Expire(ctx, r.key, dayWindow+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record %s: %w", r.key, err)
	}
	return nil
}
