package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sales-arena/shared/models"

	"github.com/redis/go-redis/v9"
)

const (
	leaderboardIndex      = "leaderboard:index"
	leaderboardGeneration = "leaderboard:gen"
)

// RankingCache keeps computed leaderboards in a sorted set scored by rank, with each
// entry's JSON in a companion hash. Keys carry the cache generation, which Invalidate
// bumps, so a leaderboard computed before an invalidation is never read afterwards.
// Every written key is tracked in an index set so Invalidate can drop them all.
type RankingCache struct {
	client *Client
	ttl    time.Duration
}

func NewRankingCache(client *Client, ttl time.Duration) *RankingCache {
	return &RankingCache{client: client, ttl: ttl}
}

func leaderboardKey(gen int64, key string) string {
	return fmt.Sprintf("leaderboard:%d:%s", gen, key)
}

func leaderboardEntriesKey(gen int64, key string) string {
	return fmt.Sprintf("leaderboard:%d:%s:entries", gen, key)
}

// Generation returns the current cache generation, 0 before the first invalidation.
func (c *RankingCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.rdb.Get(ctx, leaderboardGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RankingCache) Get(ctx context.Context, gen int64, key string) ([]models.LeaderboardEntry, bool, error) {
	rdb := c.client.rdb

	members, err := rdb.ZRange(ctx, leaderboardKey(gen, key), 0, -1).Result()
	if err != nil {
		return nil, false, err
	}
	if len(members) == 0 {
		return nil, false, nil
	}

	values, err := rdb.HMGet(ctx, leaderboardEntriesKey(gen, key), members...).Result()
	if err != nil {
		return nil, false, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// The hash expired under the sorted set; treat as a miss.
			return nil, false, nil
		}
		var entry models.LeaderboardEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, false, fmt.Errorf("corrupt leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, true, nil
}

// Set stores a leaderboard computed at generation gen. A write for a generation that
// has since been invalidated lands on keys no reader asks for and expires with the TTL.
func (c *RankingCache) Set(ctx context.Context, gen int64, key string, entries []models.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}

	zset, hash := leaderboardKey(gen, key), leaderboardEntriesKey(gen, key)
	members := make([]redis.Z, 0, len(entries))
	fields := make([]any, 0, 2*len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		id := entry.SellerID.String()
		members = append(members, redis.Z{Score: float64(entry.Rank), Member: id})
		fields = append(fields, id, data)
	}

	_, err := c.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, zset, hash)
		pipe.ZAdd(ctx, zset, members...)
		pipe.HSet(ctx, hash, fields...)
		if c.ttl > 0 {
			pipe.Expire(ctx, zset, c.ttl)
			pipe.Expire(ctx, hash, c.ttl)
		}
		pipe.SAdd(ctx, leaderboardIndex, zset, hash)
		return nil
	})
	return err
}

// Invalidate moves to a new generation and drops every cached leaderboard.
func (c *RankingCache) Invalidate(ctx context.Context) error {
	rdb := c.client.rdb

	if err := rdb.Incr(ctx, leaderboardGeneration).Err(); err != nil {
		return err
	}
	keys, err := rdb.SMembers(ctx, leaderboardIndex).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys = append(keys, leaderboardIndex)
	return rdb.Del(ctx, keys...).Err()
}
