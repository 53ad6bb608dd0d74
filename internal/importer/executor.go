package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/SteelMorgan/sqldump-importer/internal/normalizer"
	"github.com/go-sql-driver/mysql"
)

const (
	snippetLength    = 150
	diagnosticLength = 50
)

// Execer is the write side of a database session
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Executor runs statements, classifies failures and keeps the batch tallies.
// A failing statement never stops the batch.
type Executor struct {
	db         Execer
	file       string
	policy     ErrorPolicy
	collations *normalizer.CollationNormalizer
	messages   *normalizer.ErrorNormalizer
	sessionLog *SessionLog

	executed    int64
	failed      int64
	nonFatal    int64
	diagnostics []string
}

// NewExecutor creates an executor bound to one database session.
// dumpPath names the dump in every session log record.
func NewExecutor(db Execer, dumpPath string, policy ErrorPolicy, collations *normalizer.CollationNormalizer, sessionLog *SessionLog) *Executor {
	if policy == nil {
		policy = NewCodeSetPolicy()
	}
	if sessionLog == nil {
		sessionLog = NopSessionLog()
	}
	return &Executor{
		db:         db,
		file:       filepath.Base(dumpPath),
		policy:     policy,
		collations: collations,
		messages:   normalizer.NewErrorNormalizer(),
		sessionLog: sessionLog,
	}
}

// Execute runs one statement and records its outcome
func (x *Executor) Execute(ctx context.Context, stmt Statement) {
	query := x.collations.Normalize(stmt.SQL)

	_, err := x.db.ExecContext(ctx, query)
	if err == nil {
		x.executed++
		return
	}

	code, message := errorCode(err)
	message = flatten(message)
	logger := x.sessionLog.Logger()

	if x.policy.Classify(code) == NonFatal {
		x.nonFatal++
		logger.Warn().
			Str("file", x.file).
			Msgf("Table: %s | Line: %d | Skipped (%d): %s", stmt.Table, stmt.EndLine, code, message)
		return
	}

	x.failed++
	logger.Error().
		Str("file", x.file).
		Str("snippet", truncate(query, snippetLength)).
		Str("pattern", x.messages.NormalizeMessage(message)).
		Msgf("Table: %s | Line: %d | Error (%d): %s", stmt.Table, stmt.EndLine, code, message)

	x.diagnostics = append(x.diagnostics,
		fmt.Sprintf("Error in [%s]: %s...", stmt.Table, truncate(message, diagnosticLength)))
}

// ReportTruncated records a statement that never met its delimiter
func (x *Executor) ReportTruncated(stmt Statement) {
	x.failed++
	x.sessionLog.Logger().Error().
		Str("file", x.file).
		Str("snippet", truncate(stmt.SQL, snippetLength)).
		Msgf("Table: %s | Line: %d | Truncated statement at end of dump", stmt.Table, stmt.StartLine)

	x.diagnostics = append(x.diagnostics,
		fmt.Sprintf("Truncated statement in [%s] at line %d", stmt.Table, stmt.StartLine))
}

// Executed returns the number of successful statements
func (x *Executor) Executed() int64 { return x.executed }

// Failed returns the number of fatal failures
func (x *Executor) Failed() int64 { return x.failed }

// NonFatal returns the number of tolerated failures
func (x *Executor) NonFatal() int64 { return x.nonFatal }

// Diagnostics returns the interactive messages in the order they were produced
func (x *Executor) Diagnostics() []string {
	return x.diagnostics
}

// errorCode extracts the server error number; other errors get code 0
func errorCode(err error) (uint16, string) {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number, mysqlErr.Message
	}
	return 0, err.Error()
}

// flatten collapses line breaks and runs of whitespace so a record stays on one line
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes, flattening line breaks
func truncate(s string, n int) string {
	s = flatten(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
