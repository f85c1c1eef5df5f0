// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/paper-picker/pkg/types"
)

// Redis key layout:
//
//	<prefix>ids           set of stored ids
//	<prefix>processed     sorted set of ids scored by processed_at (unix ns)
//	<prefix>paper:<id>    hash with the paper JSON under "data"
const defaultRedisPrefix = "paper-picker:"

// Redis stores papers in a redis instance.
type Redis struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects with a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	if url == "" {
		return nil, fmt.Errorf("redis store: empty url")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedis(client, defaultRedisPrefix), nil
}

// NewRedis wraps an existing client. Keys are namespaced by prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) idsKey() string            { return r.prefix + "ids" }
func (r *Redis) processedKey() string      { return r.prefix + "processed" }
func (r *Redis) paperKey(id string) string { return r.prefix + "paper:" + id }

// ExistingIDs checks every id with one SMISMEMBER.
func (r *Redis) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	ids = uniqueIDs(ids)
	found := make(map[string]bool)
	if len(ids) == 0 {
		return found, nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	hits, err := r.client.SMIsMember(ctx, r.idsKey(), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("looking up ids: %w", err)
	}
	for i, hit := range hits {
		if hit {
			found[ids[i]] = true
		}
	}
	return found, nil
}

// Save writes papers in one MULTI/EXEC transaction.
func (r *Redis) Save(ctx context.Context, papers []types.StoredPaper) error {
	if len(papers) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range papers {
			if p.ID == "" {
				return fmt.Errorf("saving paper %q: empty id", p.Title)
			}
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encoding paper %s: %w", p.ID, err)
			}
			pipe.SAdd(ctx, r.idsKey(), p.ID)
			pipe.HSet(ctx, r.paperKey(p.ID), "data", data, "processed_at", p.ProcessedAt.UTC().Format(time.RFC3339))
			pipe.ZAdd(ctx, r.processedKey(), redis.Z{Score: float64(p.ProcessedAt.UnixNano()), Member: p.ID})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving papers: %w", err)
	}
	return nil
}

// Recent lists papers processed at or after since, newest first.
func (r *Redis) Recent(ctx context.Context, since time.Time, limit int) ([]types.StoredPaper, error) {
	by := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if !since.IsZero() {
		by.Min = strconv.FormatInt(since.UnixNano(), 10)
	}
	if limit > 0 {
		by.Count = int64(limit)
	}
	ids, err := r.client.ZRevRangeByScore(ctx, r.processedKey(), by).Result()
	if err != nil {
		return nil, fmt.Errorf("querying recent papers: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGet(ctx, r.paperKey(id), "data")
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("loading recent papers: %w", err)
	}

	out := make([]types.StoredPaper, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading paper %s: %w", ids[i], err)
		}
		var p types.StoredPaper
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding paper %s: %w", ids[i], err)
		}
		out = append(out, p)
	}
	return out, nil
}

// IDs returns every stored id.
func (r *Redis) IDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing ids: %w", err)
	}
	return ids, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
