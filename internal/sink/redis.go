package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/yourorg/token-features/internal/model"
)

// RedisSink stores each record under <prefix><token id> without expiry.
type RedisSink struct {
	client *redis.Client
	prefix string
}

// NewRedisSink connects to a Redis server.
func NewRedisSink(addr, password string, db int, prefix string) *RedisSink {
	return &RedisSink{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		prefix: prefix,
	}
}

// Write overwrites the key of tokenID with the record JSON.
func (s *RedisSink) Write(ctx context.Context, tokenID string, record model.FeatureRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return persistErr(s.Name(), err)
	}
	if err := s.client.Set(ctx, s.prefix+tokenID, data, 0).Err(); err != nil {
		return persistErr(s.Name(), err)
	}
	return nil
}

// Read loads the stored record of tokenID.
func (s *RedisSink) Read(ctx context.Context, tokenID string) (model.FeatureRecord, error) {
	var record model.FeatureRecord
	data, err := s.client.Get(ctx, s.prefix+tokenID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return record, ErrNotFound
		}
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("decode snapshot: %w", err)
	}
	return record, nil
}

// Close releases the client connections.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

func (s *RedisSink) Name() string {
	return "redis"
}
