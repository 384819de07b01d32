package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
)

const keyPrefix = "translit"

// CandidateCache stores per-word candidate lists in Redis as JSON strings.
// Entries are namespaced by beam width so a config change never serves
// lists of the wrong length.
type CandidateCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func New(client goredis.Cmdable, ttl time.Duration) *CandidateCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CandidateCache{client: client, ttl: ttl}
}

func (c *CandidateCache) GetMany(ctx context.Context, nHyps int, words []string) (map[string]domain.CandidateList, error) {
	out := make(map[string]domain.CandidateList, len(words))
	if len(words) == 0 {
		return out, nil
	}

	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = cacheKey(nHyps, w)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	for i, raw := range values {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		list, err := decodeList(s)
		if err != nil {
			// A corrupt entry is treated as a miss and overwritten later.
			continue
		}
		out[words[i]] = list
	}
	return out, nil
}

func (c *CandidateCache) PutMany(ctx context.Context, nHyps int, entries map[string]domain.CandidateList) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := c.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for word, list := range entries {
			payload, err := encodeList(list)
			if err != nil {
				return err
			}
			pipe.Set(ctx, cacheKey(nHyps, word), payload, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis pipeline set: %w", err)
	}
	return nil
}

func cacheKey(nHyps int, word string) string {
	return keyPrefix + ":" + strconv.Itoa(nHyps) + ":" + word
}

func encodeList(list domain.CandidateList) (string, error) {
	raw, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode candidate list: %w", err)
	}
	return string(raw), nil
}

func decodeList(raw string) (domain.CandidateList, error) {
	var list domain.CandidateList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode candidate list: %w", err)
	}
	return list, nil
}
