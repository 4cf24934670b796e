package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps the latest encoded point per device and a bounded
// track history list.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	history int64
}

func NewRedisStore() *RedisStore {
	return &RedisStore{}
}

// Init connects using the sink parameters: addr, password, db, prefix
// and history (list length, 0 disables trimming).
func (s *RedisStore) Init(params map[string]string) error {
	db, err := strconv.Atoi(paramOr(params, "db", "0"))
	if err != nil {
		return fmt.Errorf("invalid redis db parameter: %w", err)
	}
	s.history, err = strconv.ParseInt(paramOr(params, "history", "1000"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid redis history parameter: %w", err)
	}
	s.prefix = paramOr(params, "prefix", "gpsbridge")

	s.client = redis.NewClient(&redis.Options{
		Addr:     paramOr(params, "addr", "127.0.0.1:6379"),
		Password: params["password"],
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.client.Close()
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Save(rec Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	latestKey := fmt.Sprintf("%s:%s:latest", s.prefix, rec.Point.DeviceID)
	trackKey := fmt.Sprintf("%s:%s:track", s.prefix, rec.Point.DeviceID)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, latestKey, rec.Payload, 0)
	pipe.LPush(ctx, trackKey, rec.Payload)
	if s.history > 0 {
		pipe.LTrim(ctx, trackKey, 0, s.history-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
