// Package draftcache provides persistence for counting session drafts.
package draftcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	"stocktake/internal/domain/counting"
)

// Payload prefixes distinguish raw JSON from compressed drafts.
const (
	encodingJSON byte = 'J'
	encodingZstd byte = 'Z'
)

// defaultCompressThreshold is the payload size above which drafts are
// zstd-compressed. A typical shop-floor count has a few hundred
// observations, which stays below this; warehouse-wide counts do not.
const defaultCompressThreshold = 4 * 1024

// RedisStore keeps drafts in Redis with native TTL expiry.
type RedisStore struct {
	client            *redis.Client
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewRedisStore creates a Redis-backed draft store.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &RedisStore{
		client:            client,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Save writes a draft under key with the given TTL.
func (s *RedisStore) Save(ctx context.Context, key string, draft *counting.Draft, ttl time.Duration) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	payload := make([]byte, 1, len(data)+1)
	if len(data) > s.compressThreshold {
		payload[0] = encodingZstd
		payload = s.encoder.EncodeAll(data, payload)
	} else {
		payload[0] = encodingJSON
		payload = append(payload, data...)
	}

	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save draft %s: %w", key, err)
	}

	return nil
}

// Load reads a draft. Returns nil draft (no error) when absent.
func (s *RedisStore) Load(ctx context.Context, key string) (*counting.Draft, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", key, err)
	}

	if len(payload) < 2 {
		return nil, fmt.Errorf("load draft %s: truncated payload", key)
	}

	data := payload[1:]
	if payload[0] == encodingZstd {
		data, err = s.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress draft %s: %w", key, err)
		}
	}

	var draft counting.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft %s: %w", key, err)
	}

	return &draft, nil
}

// Delete removes a draft. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete draft %s: %w", key, err)
	}
	return nil
}

// DeleteStale is a no-op: Redis expires drafts through the key TTL.
func (s *RedisStore) DeleteStale(ctx context.Context) (int, error) {
	return 0, nil
}

var _ counting.DraftStore = (*RedisStore)(nil)
