package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/rs/zerolog/log"
)

// ClickHouse DateTime64 valid range: 1925-01-01 to 2283-11-11
var (
	minClickHouseDateTime = time.Date(1925, 1, 1, 0, 0, 0, 0, time.UTC)
	maxClickHouseDateTime = time.Date(2283, 11, 11, 23, 59, 59, 999999999, time.UTC)
)

// ensureValidDateTime ensures the time value is within ClickHouse DateTime64 range
// Returns the input time if valid, or minClickHouseDateTime if out of range or zero
func ensureValidDateTime(t time.Time) time.Time {
	if t.IsZero() || t.Before(minClickHouseDateTime) || t.After(maxClickHouseDateTime) {
		return minClickHouseDateTime
	}
	return t
}

const progressTableDDL = `CREATE TABLE IF NOT EXISTS %s.import_progress (
    timestamp DateTime64(3),
    session_id String,
    file_path String,
    file_name String,
    status LowCardinality(String),
    offset_bytes UInt64,
    file_size_bytes UInt64,
    line_number UInt64,
    percent Float64,
    statements_total UInt64,
    errors_total UInt64,
    batch_lines UInt64,
    batch_statements UInt64,
    batch_errors UInt64,
    batch_non_fatal UInt64,
    batch_duration_ms UInt64
) ENGINE = MergeTree
ORDER BY (session_id, timestamp)`

// ClickHouseProgressWriter appends one row per batch to <database>.import_progress
type ClickHouseProgressWriter struct {
	conn     clickhouse.Conn
	database string
}

// NewClickHouseProgressWriter creates a progress writer
func NewClickHouseProgressWriter(conn clickhouse.Conn, database string) *ClickHouseProgressWriter {
	return &ClickHouseProgressWriter{conn: conn, database: database}
}

// EnsureSchema creates the progress table if it does not exist
func (w *ClickHouseProgressWriter) EnsureSchema(ctx context.Context) error {
	if err := w.conn.Exec(ctx, fmt.Sprintf(progressTableDDL, w.database)); err != nil {
		return fmt.Errorf("failed to create import_progress table: %w", err)
	}
	return nil
}

// WriteProgress writes one progress record
func (w *ClickHouseProgressWriter) WriteProgress(ctx context.Context, progress *domain.ImportProgress) error {
	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.import_progress", w.database))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	if err := batch.Append(progressRow(progress)...); err != nil {
		return fmt.Errorf("failed to append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Debug().
		Str("session_id", progress.SessionID).
		Str("status", progress.Status).
		Uint64("offset", progress.OffsetBytes).
		Float64("percent", progress.Percent).
		Msg("Import progress written to ClickHouse")

	return nil
}

// Close is a no-op; the connection is owned by the ClickHouse client
func (w *ClickHouseProgressWriter) Close() error {
	return nil
}

// progressRow orders the record fields as the table columns
func progressRow(p *domain.ImportProgress) []any {
	return []any{
		ensureValidDateTime(p.Timestamp),
		p.SessionID,
		p.FilePath,
		p.FileName,
		p.Status,
		p.OffsetBytes,
		p.FileSizeBytes,
		p.LineNumber,
		p.Percent,
		p.StatementsTotal,
		p.ErrorsTotal,
		p.BatchLines,
		p.BatchStatements,
		p.BatchErrors,
		p.BatchNonFatal,
		p.BatchDurationMs,
	}
}
