package importer

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// SessionLog is the append-only log file of one import session.
// Every record is a single line.
type SessionLog struct {
	file   io.Closer
	logger zerolog.Logger
}

// OpenSessionLog opens (or creates) the session log for appending
func OpenSessionLog(path string) (*SessionLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	return &SessionLog{
		file:   file,
		logger: newSessionLogger(file),
	}, nil
}

// NewSessionLog writes session records to w
func NewSessionLog(w io.Writer) *SessionLog {
	return &SessionLog{logger: newSessionLogger(w)}
}

// NopSessionLog discards all records
func NopSessionLog() *SessionLog {
	return &SessionLog{logger: zerolog.Nop()}
}

func newSessionLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
	}).With().Timestamp().Logger()
}

// Logger returns the zerolog logger behind the session log
func (l *SessionLog) Logger() *zerolog.Logger {
	return &l.logger
}

// Close closes the underlying file, if any
func (l *SessionLog) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
