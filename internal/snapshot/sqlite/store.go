// Package sqlite stores saved games in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloister/internal/ports"
	"cloister/internal/snapshot/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed snapshot persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save inserts or replaces a saved game.
func (s *Store) Save(ctx context.Context, save ports.SavedGame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	save.ID = strings.TrimSpace(save.ID)
	save.GameID = strings.TrimSpace(save.GameID)
	if save.ID == "" {
		return fmt.Errorf("save id is required")
	}
	if save.GameID == "" {
		return fmt.Errorf("game id is required")
	}
	if len(save.Snapshot) == 0 {
		return fmt.Errorf("snapshot is required")
	}
	if save.CreatedAt.IsZero() {
		save.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO saved_games (id, game_id, name, snapshot, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	game_id = excluded.game_id,
	name = excluded.name,
	snapshot = excluded.snapshot,
	created_at = excluded.created_at
`,
		save.ID,
		save.GameID,
		save.Name,
		save.Snapshot,
		save.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

// Load returns one saved game.
func (s *Store) Load(ctx context.Context, id string) (ports.SavedGame, error) {
	if err := ctx.Err(); err != nil {
		return ports.SavedGame{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, game_id, name, snapshot, created_at
FROM saved_games
WHERE id = ?
`, id)
	save, err := scanSave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.SavedGame{}, fmt.Errorf("%w: %s", ports.ErrSaveNotFound, id)
	}
	if err != nil {
		return ports.SavedGame{}, fmt.Errorf("load game: %w", err)
	}
	return save, nil
}

// List returns the newest saves first.
func (s *Store) List(ctx context.Context, limit int) ([]ports.SavedGame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, game_id, name, snapshot, created_at
FROM saved_games
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	saves := make([]ports.SavedGame, 0, limit)
	for rows.Next() {
		save, err := scanSave(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		saves = append(saves, save)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return saves, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSave(row scanner) (ports.SavedGame, error) {
	var save ports.SavedGame
	var createdAt int64
	if err := row.Scan(&save.ID, &save.GameID, &save.Name, &save.Snapshot, &createdAt); err != nil {
		return ports.SavedGame{}, err
	}
	save.CreatedAt = time.UnixMilli(createdAt).UTC()
	return save, nil
}

var _ ports.SnapshotStore = (*Store)(nil)
