package checkpoint

import (
	"context"
	"errors"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
)

// ErrNotFound is returned when no checkpoint is stored for a session
var ErrNotFound = errors.New("checkpoint not found")

// Store persists import checkpoints between batches
type Store interface {
	// Get retrieves the checkpoint of a session
	Get(ctx context.Context, sessionID string) (*domain.ImportCheckpoint, error)

	// Save stores the checkpoint under its SessionID
	Save(ctx context.Context, cp *domain.ImportCheckpoint) error

	// Delete removes the checkpoint of a session
	Delete(ctx context.Context, sessionID string) error

	// List returns all stored checkpoints
	List(ctx context.Context) ([]domain.ImportCheckpoint, error)

	// Close closes the store
	Close() error
}
