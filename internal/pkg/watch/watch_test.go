package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/sportsfeed/internal/pkg/models"
	"github.com/Vodeneev/sportsfeed/internal/pkg/notify"
	"github.com/Vodeneev/sportsfeed/internal/pkg/resolver"
	"github.com/Vodeneev/sportsfeed/internal/pkg/storage"
)

type scriptedLoader struct {
	mu    sync.Mutex
	polls [][]models.Game
	err   error
	calls int
}

func (l *scriptedLoader) Scores(context.Context, string, string) ([]models.Game, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	if len(l.polls) == 0 {
		return nil, nil
	}
	games := l.polls[0]
	if len(l.polls) > 1 {
		l.polls = l.polls[1:]
	}
	return games, nil
}

func (l *scriptedLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []notify.ScoreChange
}

func (r *recordingNotifier) NotifyScoreChange(_ context.Context, c notify.ScoreChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return nil
}

func (r *recordingNotifier) Stop() {}

func TestPoll_NotifiesOnlyChanges(t *testing.T) {
	loader := &scriptedLoader{polls: [][]models.Game{
		{{ID: "1", Line: "A 0 vs B 0", Status: "Q1"}, {ID: "2", Line: "C 0 vs D 0"}},
		{{ID: "1", Line: "A 7 vs B 0", Status: "Q1"}, {ID: "2", Line: "C 0 vs D 0"}},
		{{ID: "1", Line: "A 7 vs B 0", Status: "Final"}, {ID: "2", Line: "C 0 vs D 0"}, {ID: "3", Line: "E vs F"}},
	}}
	n := &recordingNotifier{}
	w := New(loader, storage.NewMemoryScoreSnapshotStorage(), n, Options{Sport: "football", League: "football/nfl"})

	ctx := context.Background()
	changes, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, changes)

	changes, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changes)

	changes, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changes)

	require.Len(t, n.changes, 2)
	assert.Equal(t, "A 0 vs B 0", n.changes[0].Previous.Line)
	assert.Equal(t, "A 7 vs B 0", n.changes[0].Current.Line)
	assert.Equal(t, "football/nfl", n.changes[0].Current.Feed)
	assert.Equal(t, "Final", n.changes[1].Current.Status)
}

func TestPoll_LoaderError(t *testing.T) {
	loader := &scriptedLoader{err: resolver.ErrFetchFailed}
	w := New(loader, storage.NewMemoryScoreSnapshotStorage(), &recordingNotifier{}, Options{Sport: "soccer"})

	_, err := w.Poll(context.Background())
	assert.ErrorIs(t, err, resolver.ErrFetchFailed)
	assert.Equal(t, "soccer", w.Feed())
}

type failingStore struct {
	storage.ScoreSnapshotStorage
}

func (failingStore) GetLastScoreSnapshot(context.Context, string, string) (*storage.ScoreSnapshot, error) {
	return nil, errors.New("connection refused")
}

func TestPoll_StorageErrorsAreJoined(t *testing.T) {
	loader := &scriptedLoader{polls: [][]models.Game{{{ID: "1"}, {ID: "2"}, {Line: "no id"}}}}
	w := New(loader, failingStore{}, &recordingNotifier{}, Options{Sport: "hockey"})

	_, err := w.Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "game 1: connection refused")
	assert.Contains(t, err.Error(), "game 2: connection refused")
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	loader := &scriptedLoader{}
	w := New(loader, storage.NewMemoryScoreSnapshotStorage(), &recordingNotifier{}, Options{Sport: "football", Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return loader.callCount() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRun_RejectsZeroInterval(t *testing.T) {
	w := New(&scriptedLoader{}, storage.NewMemoryScoreSnapshotStorage(), &recordingNotifier{}, Options{Sport: "football"})
	assert.Error(t, w.Run(context.Background()))
}

func TestPoll_PrunesStaleSnapshots(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryScoreSnapshotStorage()
	loader := &scriptedLoader{polls: [][]models.Game{
		{{ID: "1", Line: "A 0 vs B 0"}, {ID: "2", Line: "C 0 vs D 0"}},
		{{ID: "1", Line: "A 0 vs B 0"}},
	}}
	w := New(loader, store, &recordingNotifier{}, Options{Sport: "football", Retention: time.Hour})

	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return start }
	_, err := w.Poll(ctx)
	require.NoError(t, err)

	w.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = w.Poll(ctx)
	require.NoError(t, err)

	kept, err := store.GetLastScoreSnapshot(ctx, "football", "1")
	require.NoError(t, err)
	assert.NotNil(t, kept)
	gone, err := store.GetLastScoreSnapshot(ctx, "football", "2")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestPoll_NoRetentionKeepsSnapshots(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryScoreSnapshotStorage()
	loader := &scriptedLoader{polls: [][]models.Game{{{ID: "2"}}, {}}}
	w := New(loader, store, &recordingNotifier{}, Options{Sport: "football"})

	start := time.Now()
	w.now = func() time.Time { return start }
	_, err := w.Poll(ctx)
	require.NoError(t, err)
	w.now = func() time.Time { return start.Add(48 * time.Hour) }
	_, err = w.Poll(ctx)
	require.NoError(t, err)

	snap, err := store.GetLastScoreSnapshot(ctx, "football", "2")
	require.NoError(t, err)
	assert.NotNil(t, snap)
}
