package storage

import (
	"context"
	"time"
)

// ScoreSnapshot is the last seen state of one scoreboard game.
type ScoreSnapshot struct {
	// Feed identifies the scoreboard, e.g. "football/nfl".
	Feed       string    `json:"feed"`
	GameID     string    `json:"game_id"`
	Line       string    `json:"line"`
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Changed reports whether next differs from s in line or status.
func (s *ScoreSnapshot) Changed(next ScoreSnapshot) bool {
	return s.Line != next.Line || s.Status != next.Status
}

// ScoreSnapshotStorage keeps one snapshot per (feed, game) so the watcher can
// detect score and status changes between polls.
type ScoreSnapshotStorage interface {
	// StoreScoreSnapshot upserts the snapshot for (feed, game_id).
	StoreScoreSnapshot(ctx context.Context, snap ScoreSnapshot) error
	// GetLastScoreSnapshot returns nil, nil when nothing was stored yet.
	GetLastScoreSnapshot(ctx context.Context, feed, gameID string) (*ScoreSnapshot, error)
	Close() error
}

// Pruner is implemented by storages without native expiry. Redis expires
// keys by TTL and does not implement it.
type Pruner interface {
	// CleanRecordedBefore deletes snapshots last recorded before cutoff and
	// returns how many were removed.
	CleanRecordedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
