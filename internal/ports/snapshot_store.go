package ports

import (
	"context"
	"errors"
	"time"
)

// ErrSaveNotFound is returned when a saved game id is unknown.
var ErrSaveNotFound = errors.New("saved game not found")

// SavedGame is a persisted snapshot.
type SavedGame struct {
	ID        string
	GameID    string
	Name      string
	Snapshot  []byte
	CreatedAt time.Time
}

// SnapshotStore persists game snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, save SavedGame) error
	Load(ctx context.Context, id string) (SavedGame, error)
	// List returns the most recent saves first.
	List(ctx context.Context, limit int) ([]SavedGame, error)
}
