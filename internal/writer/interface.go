package writer

import (
	"context"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
)

// ProgressWriter mirrors batch progress to external monitoring.
// Checkpoints in BoltDB stay the source of truth; the mirror is write-only.
type ProgressWriter interface {
	// WriteProgress writes one progress record
	WriteProgress(ctx context.Context, progress *domain.ImportProgress) error

	// Close releases the writer
	Close() error
}

// NopWriter discards all progress records
type NopWriter struct{}

// WriteProgress implements ProgressWriter
func (NopWriter) WriteProgress(ctx context.Context, progress *domain.ImportProgress) error {
	return nil
}

// Close implements ProgressWriter
func (NopWriter) Close() error {
	return nil
}
