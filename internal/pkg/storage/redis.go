package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/sportsfeed/internal/pkg/config"
)

// DefaultRedisTTL bounds how long a game's snapshot outlives its last poll.
const DefaultRedisTTL = 24 * time.Hour

var _ ScoreSnapshotStorage = (*RedisScoreSnapshotStorage)(nil)

type RedisScoreSnapshotStorage struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisScoreSnapshotStorage(cfg *config.RedisConfig) (*RedisScoreSnapshotStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisScoreSnapshotStorage{client: client, ttl: ttl}, nil
}

func (r *RedisScoreSnapshotStorage) StoreScoreSnapshot(ctx context.Context, snap ScoreSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal score snapshot: %w", err)
	}
	return r.client.Set(ctx, snapshotKey(snap.Feed, snap.GameID), data, r.ttl).Err()
}

func (r *RedisScoreSnapshotStorage) GetLastScoreSnapshot(ctx context.Context, feed, gameID string) (*ScoreSnapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey(feed, gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score snapshot: %w", err)
	}

	var snap ScoreSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal score snapshot: %w", err)
	}
	return &snap, nil
}

func (r *RedisScoreSnapshotStorage) Close() error {
	return r.client.Close()
}
