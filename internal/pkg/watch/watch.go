// Package watch polls one scoreboard on an interval and raises an alert for
// every game whose line or status changed since the previous poll.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vodeneev/sportsfeed/internal/pkg/models"
	"github.com/Vodeneev/sportsfeed/internal/pkg/notify"
	"github.com/Vodeneev/sportsfeed/internal/pkg/storage"
)

// ScoreLoader is satisfied by *espn.Client.
type ScoreLoader interface {
	Scores(ctx context.Context, sport, league string) ([]models.Game, error)
}

type Options struct {
	Sport  string
	League string
	// Interval between polls; a new cycle also starts on Trigger.
	Interval time.Duration
	// CycleTimeout bounds a single poll; zero means unlimited.
	CycleTimeout time.Duration
	// Retention prunes snapshots not seen for this long after every poll,
	// when the storage supports it. Zero keeps everything.
	Retention time.Duration
}

type Watcher struct {
	loader   ScoreLoader
	store    storage.ScoreSnapshotStorage
	notifier notify.Notifier
	opts     Options
	trigger  chan struct{}
	now      func() time.Time
}

func New(loader ScoreLoader, store storage.ScoreSnapshotStorage, notifier notify.Notifier, opts Options) *Watcher {
	return &Watcher{
		loader:   loader,
		store:    store,
		notifier: notifier,
		opts:     opts,
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Feed is the storage key of the watched scoreboard.
func (w *Watcher) Feed() string {
	if w.opts.League != "" {
		return w.opts.League
	}
	return w.opts.Sport
}

// Trigger requests an immediate poll. Triggers coalesce while one is pending.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
		slog.Debug("Poll already triggered, skipping duplicate trigger", "feed", w.Feed())
	}
}

// Run polls immediately and then on every tick or trigger until ctx is done.
// A failed poll is logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	if w.opts.Interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", w.opts.Interval)
	}
	slog.Info("Score watch started", "feed", w.Feed(), "interval", w.opts.Interval)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	cycles := 0
	w.Trigger()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Score watch stopped", "feed", w.Feed(), "total_cycles", cycles)
			return nil
		case <-ticker.C:
		case <-w.trigger:
		}

		cycles++
		start := time.Now()
		changes, err := w.runCycle(ctx)
		if err != nil && ctx.Err() == nil {
			slog.Error("Score poll failed", "feed", w.Feed(), "cycle_id", cycles, "error", err)
			continue
		}
		slog.Info("Score poll finished", "feed", w.Feed(), "cycle_id", cycles, "changes", changes, "duration", time.Since(start))
	}
}

func (w *Watcher) runCycle(ctx context.Context) (int, error) {
	if w.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.CycleTimeout)
		defer cancel()
	}
	return w.Poll(ctx)
}

// Poll loads the scoreboard once, stores a snapshot per game and notifies
// about games whose stored snapshot differs. Games seen for the first time
// are stored silently. It returns the number of changes notified.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	games, err := w.loader.Scores(ctx, w.opts.Sport, w.opts.League)
	if err != nil {
		return 0, fmt.Errorf("load scoreboard: %w", err)
	}

	feed := w.Feed()
	now := w.now()
	changes := 0
	var errs []error
	for _, g := range games {
		if g.ID == "" {
			continue
		}
		snap := storage.ScoreSnapshot{Feed: feed, GameID: g.ID, Line: g.Line, Status: g.Status, RecordedAt: now}

		prev, err := w.store.GetLastScoreSnapshot(ctx, feed, g.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("game %s: %w", g.ID, err))
			continue
		}
		if err := w.store.StoreScoreSnapshot(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("game %s: %w", g.ID, err))
			continue
		}
		if prev == nil || !prev.Changed(snap) {
			continue
		}

		changes++
		if err := w.notifier.NotifyScoreChange(ctx, notify.ScoreChange{Previous: prev, Current: snap}); err != nil {
			slog.Warn("Failed to queue score alert", "feed", feed, "game_id", g.ID, "error", err)
		}
	}

	if err := w.prune(ctx, now); err != nil {
		errs = append(errs, err)
	}
	return changes, errors.Join(errs...)
}

func (w *Watcher) prune(ctx context.Context, now time.Time) error {
	p, ok := w.store.(storage.Pruner)
	if !ok || w.opts.Retention <= 0 {
		return nil
	}
	removed, err := p.CleanRecordedBefore(ctx, now.Add(-w.opts.Retention))
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	if removed > 0 {
		slog.Info("Cleaned stale score snapshots", "feed", w.Feed(), "rows_deleted", removed)
	}
	return nil
}
