package domain

import "time"

// DefaultDelimiter is the statement delimiter every session starts with
const DefaultDelimiter = ";"

// ImportCheckpoint is the complete resumable state of an import session.
// It is passed into every batch and a new value is returned from it;
// no engine state survives outside of it.
type ImportCheckpoint struct {
	SessionID string `json:"session_id,omitempty"`
	FilePath  string `json:"file_path"`
	LogFile   string `json:"log_file,omitempty"`

	// ByteOffset is the resume position in the raw (decompressed for gzip) stream
	ByteOffset int64 `json:"byte_offset"`
	// LineNumber counts consumed lines, independent of statement boundaries
	LineNumber int64 `json:"line_number"`

	TotalStatements int64 `json:"total_queries"`
	TotalErrors     int64 `json:"total_errors"`

	// Delimiter is the active statement delimiter at ByteOffset
	Delimiter string `json:"delimiter,omitempty"`

	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ActiveDelimiter returns the checkpoint delimiter, defaulting to ";"
func (c ImportCheckpoint) ActiveDelimiter() string {
	if c.Delimiter == "" {
		return DefaultDelimiter
	}
	return c.Delimiter
}

// AtStart reports whether the checkpoint points at the very beginning of the dump
func (c ImportCheckpoint) AtStart() bool {
	return c.ByteOffset == 0 && c.LineNumber == 0
}
