package storage

import (
	"context"
	"sync"
	"time"
)

var (
	_ ScoreSnapshotStorage = (*MemoryScoreSnapshotStorage)(nil)
	_ Pruner               = (*MemoryScoreSnapshotStorage)(nil)
)

// MemoryScoreSnapshotStorage keeps snapshots in process memory; they are lost
// on restart, so the first poll after a restart never notifies.
type MemoryScoreSnapshotStorage struct {
	mu    sync.RWMutex
	snaps map[string]ScoreSnapshot
}

func NewMemoryScoreSnapshotStorage() *MemoryScoreSnapshotStorage {
	return &MemoryScoreSnapshotStorage{snaps: make(map[string]ScoreSnapshot)}
}

func (m *MemoryScoreSnapshotStorage) StoreScoreSnapshot(_ context.Context, snap ScoreSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snapshotKey(snap.Feed, snap.GameID)] = snap
	return nil
}

func (m *MemoryScoreSnapshotStorage) GetLastScoreSnapshot(_ context.Context, feed, gameID string) (*ScoreSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[snapshotKey(feed, gameID)]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *MemoryScoreSnapshotStorage) CleanRecordedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for key, snap := range m.snaps {
		if snap.RecordedAt.Before(cutoff) {
			delete(m.snaps, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryScoreSnapshotStorage) Close() error { return nil }

// snapshotKey is shared with the Redis storage.
func snapshotKey(feed, gameID string) string {
	return "score:" + feed + ":" + gameID
}
