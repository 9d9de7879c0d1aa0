// Package results caches terminal orchestration results in Redis so async
// callers can re-read them. The pipeline never depends on this store: a
// failed save is logged and swallowed upstream.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

const (
	defaultKeyPrefix = "agentrun:result:"
	defaultTTL       = time.Hour
)

// StoreOption customizes a RedisStore.
type StoreOption func(*RedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *RedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// RedisStore keeps recent OrchestrationResults under a TTL'd key per request.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ contractx.ResultStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(redisURL string, opts ...StoreOption) (*RedisStore, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	store := &RedisStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       defaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *RedisStore) Save(ctx context.Context, result *contractx.OrchestrationResult) error {
	if result == nil {
		return errors.New("nil result")
	}
	if strings.TrimSpace(result.RequestID) == "" {
		return errors.New("result has no request id")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.client.Set(ctx, s.key(result.RequestID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, requestID string) (*contractx.OrchestrationResult, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, contractx.ErrResultNotFound
	}

	raw, err := s.client.Get(ctx, s.key(requestID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, contractx.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}

	var result contractx.OrchestrationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(requestID string) string {
	return s.keyPrefix + requestID
}
