package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/SteelMorgan/sqldump-importer/internal/linesource"
	"github.com/SteelMorgan/sqldump-importer/internal/normalizer"
	"github.com/SteelMorgan/sqldump-importer/internal/observability"
	"github.com/rs/zerolog/log"
)

const bom = "\xEF\xBB\xBF"

// Session-fatal error kinds. A batch that hits one of them returns a
// *SessionError and no checkpoint.
var (
	ErrOpenDump = errors.New("could not open dump file")
	ErrConnect  = errors.New("database connection failed")
	ErrReadDump = errors.New("could not read dump file")
)

// SessionError aborts a batch before it can emit a checkpoint
type SessionError struct {
	Kind error
	Err  error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is
func (e *SessionError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Session is one database connection used for a whole batch
type Session interface {
	Execer
	Querier
	Close() error
}

// Connector opens the database session of a batch
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// ConnectFunc adapts a function to Connector
type ConnectFunc func(ctx context.Context) (Session, error)

// Connect implements Connector
func (f ConnectFunc) Connect(ctx context.Context) (Session, error) {
	return f(ctx)
}

// Options tune the engine
type Options struct {
	LineBudget          int
	TimeBudget          time.Duration
	BufferSize          int
	Truncated           TruncatedPolicy
	CollectStats        bool
	SkipVersionComments bool
	Policy              ErrorPolicy
	Collations          *normalizer.CollationNormalizer
	Clock               func() time.Time
}

// DefaultOptions returns the stock batch budgets and policies
func DefaultOptions() Options {
	return Options{
		LineBudget:   3000,
		TimeBudget:   25 * time.Second,
		BufferSize:   linesource.DefaultBufferSize,
		Truncated:    TruncatedReport,
		CollectStats: true,
		Policy:       NewCodeSetPolicy(),
		Collations:   normalizer.NewCollationNormalizer(normalizer.DefaultCollationSubstitutions()),
		Clock:        time.Now,
	}
}

// Engine runs bounded import batches. It keeps no state between batches:
// everything needed to resume travels in the checkpoint.
type Engine struct {
	connector Connector
	opts      Options
}

// NewEngine creates an engine
func NewEngine(connector Connector, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Policy == nil {
		opts.Policy = NewCodeSetPolicy()
	}
	return &Engine{connector: connector, opts: opts}
}

// RunBatch resumes the dump at the checkpoint, executes statements until a
// budget is spent or the stream ends, and returns the next checkpoint.
// Budgets are only checked between statements, so a statement is never
// split across batches. Cancelling ctx stops the batch at the next
// statement boundary; the statement in flight is allowed to finish.
func (e *Engine) RunBatch(ctx context.Context, cp domain.ImportCheckpoint) (result *domain.BatchResult, err error) {
	ctx, span := observability.StartSpan(ctx, "importer.RunBatch",
		observability.AttrSessionID.String(cp.SessionID),
		observability.AttrDumpFile.String(cp.FilePath),
		observability.AttrByteOffset.Int64(cp.ByteOffset),
		observability.AttrLineNumber.Int64(cp.LineNumber),
		observability.AttrDelimiter.String(cp.ActiveDelimiter()),
	)
	defer func() {
		if result != nil {
			span.SetAttributes(
				observability.AttrStatus.String(result.Status().String()),
				observability.AttrLinesRead.Int64(result.LinesRead),
				observability.AttrStatements.Int64(result.StatementsExecuted),
				observability.AttrErrors.Int64(result.ErrorsThisBatch),
				observability.AttrNonFatal.Int64(result.NonFatalThisBatch),
			)
		}
		observability.EndSpan(span, err, "batch completed")
	}()

	started := e.opts.Clock()

	src, err := linesource.Open(cp.FilePath, e.opts.BufferSize)
	if err != nil {
		return nil, &SessionError{Kind: ErrOpenDump, Err: err}
	}
	defer src.Close()

	if err := src.Seek(cp.ByteOffset); err != nil {
		return nil, &SessionError{Kind: ErrReadDump, Err: err}
	}

	db, err := e.connector.Connect(ctx)
	if err != nil {
		return nil, &SessionError{Kind: ErrConnect, Err: err}
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("Failed to close database session")
		}
	}()

	sessionLog := e.openSessionLog(cp)
	defer sessionLog.Close()

	asm := NewAssembler(cp.ActiveDelimiter(), e.opts.SkipVersionComments)
	sched := NewScheduler(e.opts.LineBudget, e.opts.TimeBudget, e.opts.Clock)
	exec := NewExecutor(db, cp.FilePath, e.opts.Policy, e.opts.Collations, sessionLog)

	// Statements run to completion even after ctx is cancelled
	execCtx := context.WithoutCancel(ctx)

	reachedEnd := false
	for {
		if asm.Empty() && (sched.Exhausted() || ctx.Err() != nil) {
			break
		}

		line, err := src.ReadLine()
		if errors.Is(err, io.EOF) {
			reachedEnd = true
			break
		}
		if err != nil {
			return nil, &SessionError{Kind: ErrReadDump, Err: err}
		}

		if cp.AtStart() && sched.Lines() == 0 {
			line = strings.TrimPrefix(line, bom)
		}

		sched.Consume()
		lineNo := cp.LineNumber + int64(sched.Lines())

		if stmt, ok := asm.Feed(line, lineNo); ok {
			exec.Execute(execCtx, stmt)
		}
	}

	next := cp
	next.ByteOffset = src.Position()
	next.LineNumber = cp.LineNumber + int64(sched.Lines())
	next.Status = domain.StatusContinue

	if reachedEnd {
		if stmt, ok := asm.Drain(); ok {
			if e.opts.Truncated == TruncatedReport {
				exec.ReportTruncated(stmt)
			}
			log.Warn().
				Str("session_id", cp.SessionID).
				Str("table", stmt.Table).
				Int64("line", stmt.StartLine).
				Msg("Dump ended inside an unterminated statement")
		}
		if proof, ok := asm.settle(); ok {
			finish(&next, proof)
		}
	}

	next.Delimiter = asm.Delimiter()
	next.TotalStatements += exec.Executed()
	next.TotalErrors += exec.Failed()
	next.UpdatedAt = e.opts.Clock()

	result = &domain.BatchResult{
		Checkpoint:         next,
		Percent:            Percent(next.ByteOffset, src.Size(), next.Status),
		Log:                exec.Diagnostics(),
		LinesRead:          int64(sched.Lines()),
		StatementsExecuted: exec.Executed(),
		ErrorsThisBatch:    exec.Failed(),
		NonFatalThisBatch:  exec.NonFatal(),
	}
	if cp.LogFile != "" {
		result.LogFile = filepath.Base(cp.LogFile)
	}

	if next.Status == domain.StatusFinished && e.opts.CollectStats {
		stats, err := CollectTableStats(execCtx, db)
		if err != nil {
			log.Warn().Err(err).Str("session_id", cp.SessionID).Msg("Could not fetch final table stats")
			sessionLog.Logger().Warn().Msg("Warning: Could not fetch final table stats.")
		} else {
			result.TableStats = stats
		}
	}

	result.Duration = e.opts.Clock().Sub(started)

	log.Info().
		Str("session_id", cp.SessionID).
		Str("status", next.Status.String()).
		Int64("offset", next.ByteOffset).
		Int64("line", next.LineNumber).
		Int64("statements", result.StatementsExecuted).
		Int64("errors", result.ErrorsThisBatch).
		Int64("non_fatal", result.NonFatalThisBatch).
		Float64("percent", result.Percent).
		Dur("duration", result.Duration).
		Msg("Batch completed")

	return result, nil
}

// finish marks the checkpoint terminal; the proof shows nothing is left buffered
func finish(cp *domain.ImportCheckpoint, _ emptyBuffer) {
	cp.Status = domain.StatusFinished
}

func (e *Engine) openSessionLog(cp domain.ImportCheckpoint) *SessionLog {
	if cp.LogFile == "" {
		return NopSessionLog()
	}
	sessionLog, err := OpenSessionLog(cp.LogFile)
	if err != nil {
		log.Warn().Err(err).Str("log_file", cp.LogFile).Msg("Session log unavailable, records are dropped")
		return NopSessionLog()
	}
	return sessionLog
}
