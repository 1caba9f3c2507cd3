package storage

import (
	"fmt"

	"github.com/Vodeneev/sportsfeed/internal/pkg/config"
)

// New opens the snapshot storage selected by watch.storage.
func New(cfg *config.Config) (ScoreSnapshotStorage, error) {
	switch cfg.Watch.Storage {
	case "", "memory":
		return NewMemoryScoreSnapshotStorage(), nil
	case "postgres":
		return NewPostgresScoreSnapshotStorage(&cfg.Postgres)
	case "redis":
		return NewRedisScoreSnapshotStorage(&cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown snapshot storage %q", cfg.Watch.Storage)
	}
}
