package ports

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound is returned by Load when no snapshot exists for a lobby.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore persists serialized lobbies so games survive restarts.
type SnapshotStore interface {
	// Save writes the snapshot for code, replacing any previous one.
	Save(ctx context.Context, code string, snapshot []byte) error

	// Load returns the latest snapshot for code or ErrSnapshotNotFound.
	Load(ctx context.Context, code string) ([]byte, error)

	// Delete removes the snapshot for code. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, code string) error

	// List returns the codes of every stored lobby.
	List(ctx context.Context) ([]string, error)
}
