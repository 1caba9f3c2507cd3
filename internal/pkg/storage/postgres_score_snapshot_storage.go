package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Vodeneev/sportsfeed/internal/pkg/config"
)

var (
	_ ScoreSnapshotStorage = (*PostgresScoreSnapshotStorage)(nil)
	_ Pruner               = (*PostgresScoreSnapshotStorage)(nil)
)

// PostgresScoreSnapshotStorage stores the last seen line and status per game.
type PostgresScoreSnapshotStorage struct {
	db *sql.DB
}

func NewPostgresScoreSnapshotStorage(cfg *config.PostgresConfig) (*PostgresScoreSnapshotStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := newPostgresScoreSnapshotStorage(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("PostgreSQL score snapshot storage initialized")
	return s, nil
}

func newPostgresScoreSnapshotStorage(ctx context.Context, db *sql.DB) (*PostgresScoreSnapshotStorage, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	s := &PostgresScoreSnapshotStorage{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresScoreSnapshotStorage) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS score_snapshots (
		feed VARCHAR(200) NOT NULL,
		game_id VARCHAR(200) NOT NULL,
		line TEXT NOT NULL DEFAULT '',
		status VARCHAR(200) NOT NULL DEFAULT '',
		recorded_at TIMESTAMP NOT NULL,
		PRIMARY KEY (feed, game_id)
	);

	CREATE INDEX IF NOT EXISTS idx_score_snapshots_recorded_at ON score_snapshots(recorded_at);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *PostgresScoreSnapshotStorage) StoreScoreSnapshot(ctx context.Context, snap ScoreSnapshot) error {
	query := `
	INSERT INTO score_snapshots (feed, game_id, line, status, recorded_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (feed, game_id) DO UPDATE SET
		line = EXCLUDED.line,
		status = EXCLUDED.status,
		recorded_at = EXCLUDED.recorded_at
	`
	if _, err := s.db.ExecContext(ctx, query, snap.Feed, snap.GameID, snap.Line, snap.Status, snap.RecordedAt); err != nil {
		return fmt.Errorf("failed to store score snapshot: %w", err)
	}
	return nil
}

func (s *PostgresScoreSnapshotStorage) GetLastScoreSnapshot(ctx context.Context, feed, gameID string) (*ScoreSnapshot, error) {
	query := `
	SELECT line, status, recorded_at FROM score_snapshots
	WHERE feed = $1 AND game_id = $2
	`
	snap := ScoreSnapshot{Feed: feed, GameID: gameID}
	err := s.db.QueryRowContext(ctx, query, feed, gameID).Scan(&snap.Line, &snap.Status, &snap.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score snapshot: %w", err)
	}
	return &snap, nil
}

func (s *PostgresScoreSnapshotStorage) CleanRecordedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM score_snapshots WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean score_snapshots: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

func (s *PostgresScoreSnapshotStorage) Close() error {
	return s.db.Close()
}
