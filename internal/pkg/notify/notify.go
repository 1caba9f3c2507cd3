// Package notify delivers scoreboard change alerts.
package notify

import (
	"context"
	"log/slog"

	"github.com/Vodeneev/sportsfeed/internal/pkg/storage"
)

// ScoreChange describes a game whose line or status moved between polls.
type ScoreChange struct {
	// Previous is nil when the game had no stored snapshot.
	Previous *storage.ScoreSnapshot
	Current  storage.ScoreSnapshot
}

type Notifier interface {
	NotifyScoreChange(ctx context.Context, change ScoreChange) error
	// Stop flushes pending alerts and releases resources.
	Stop()
}

// LogNotifier writes alerts to the default logger; used when no Telegram
// token is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyScoreChange(_ context.Context, change ScoreChange) error {
	args := []any{
		"feed", change.Current.Feed,
		"game_id", change.Current.GameID,
		"line", change.Current.Line,
		"status", change.Current.Status,
	}
	if change.Previous != nil {
		args = append(args, "previous_line", change.Previous.Line, "previous_status", change.Previous.Status)
	}
	slog.Info("Score changed", args...)
	return nil
}

func (LogNotifier) Stop() {}
