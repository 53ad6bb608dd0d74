package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SteelMorgan/sqldump-importer/internal/checkpoint"
	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/SteelMorgan/sqldump-importer/internal/linesource"
	"github.com/SteelMorgan/sqldump-importer/internal/writer"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultLogFile is the session log used by stateless batches that name none
const DefaultLogFile = "import_error_log.txt"

var (
	ErrSessionNotFound = errors.New("import session not found")
	ErrSessionFinished = errors.New("import session already finished")
	ErrBatchInProgress = errors.New("a batch is already running for this session")
	ErrDumpNotFound    = errors.New("dump file not found")
	ErrInvalidFileName = errors.New("invalid dump file name")
)

// BatchRunner runs one bounded batch from a checkpoint
type BatchRunner interface {
	RunBatch(ctx context.Context, cp domain.ImportCheckpoint) (*domain.BatchResult, error)
}

// Deps are the collaborators of the import service
type Deps struct {
	Runner    BatchRunner
	Store     checkpoint.Store
	Progress  writer.ProgressWriter
	ImportDir string
	LogDir    string
	Clock     func() time.Time
}

// ImportService manages import sessions: it owns checkpoint persistence
// and makes sure a session runs at most one batch at a time
type ImportService struct {
	runner    BatchRunner
	store     checkpoint.Store
	mirror    *ProgressMirror
	importDir string
	logDir    string
	now       func() time.Time
	closers   []func() error

	mu      sync.Mutex
	running map[string]struct{}
}

// NewImportService creates a service from its collaborators
func NewImportService(deps Deps) (*ImportService, error) {
	if deps.Runner == nil {
		return nil, fmt.Errorf("batch runner is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if deps.Progress == nil {
		deps.Progress = writer.NopWriter{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.LogDir == "" {
		deps.LogDir = deps.ImportDir
	}

	return &ImportService{
		runner:    deps.Runner,
		store:     deps.Store,
		mirror:    NewProgressMirror(deps.Progress, 64),
		importDir: deps.ImportDir,
		logDir:    deps.LogDir,
		now:       deps.Clock,
		running:   make(map[string]struct{}),
	}, nil
}

// StartSession creates a new session for a dump file in the import directory
func (s *ImportService) StartSession(ctx context.Context, file string) (*domain.ImportCheckpoint, error) {
	path, err := s.resolveDump(file)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cp := &domain.ImportCheckpoint{
		SessionID: uuid.NewString(),
		FilePath:  path,
		LogFile:   filepath.Join(s.logDir, "import_log_"+now.Format("2006-01-02_15-04-05")+".txt"),
		Delimiter: domain.DefaultDelimiter,
		Status:    domain.StatusContinue,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Save(ctx, cp); err != nil {
		return nil, fmt.Errorf("failed to save new session: %w", err)
	}

	log.Info().
		Str("session_id", cp.SessionID).
		Str("file", cp.FilePath).
		Str("log_file", cp.LogFile).
		Msg("Import session started")

	return cp, nil
}

// ResumeOrStart returns the latest unfinished session of the file, or starts a new one
func (s *ImportService) ResumeOrStart(ctx context.Context, file string) (*domain.ImportCheckpoint, error) {
	path, err := s.resolveDump(file)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(sessions) - 1; i >= 0; i-- {
		cp := sessions[i]
		if cp.FilePath == path && !cp.Status.Terminal() {
			log.Info().
				Str("session_id", cp.SessionID).
				Int64("offset", cp.ByteOffset).
				Int64("line", cp.LineNumber).
				Msg("Resuming import session")
			return &cp, nil
		}
	}

	return s.StartSession(ctx, file)
}

// Session returns the stored checkpoint of a session
func (s *ImportService) Session(ctx context.Context, id string) (*domain.ImportCheckpoint, error) {
	cp, err := s.store.Get(ctx, id)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return cp, err
}

// Sessions lists all known sessions, oldest first
func (s *ImportService) Sessions(ctx context.Context) ([]domain.ImportCheckpoint, error) {
	return s.store.List(ctx)
}

// RunBatch runs the next batch of a session and persists the new checkpoint.
// A session-fatal failure moves the session to the error status.
func (s *ImportService) RunBatch(ctx context.Context, id string) (*domain.BatchResult, error) {
	if !s.acquire(id) {
		return nil, ErrBatchInProgress
	}
	defer s.release(id)

	cp, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp.Status.Terminal() {
		return nil, fmt.Errorf("%w: status %s", ErrSessionFinished, cp.Status)
	}

	result, err := s.runner.RunBatch(ctx, *cp)
	if err != nil {
		cp.Status = domain.StatusError
		cp.Message = err.Error()
		cp.UpdatedAt = s.now()
		if saveErr := s.store.Save(ctx, cp); saveErr != nil {
			log.Error().Err(saveErr).Str("session_id", id).Msg("Failed to save failed session")
		}
		s.mirror.Publish(progressRecord(*cp, nil))

		log.Error().Err(err).Str("session_id", id).Msg("Import session failed")
		return nil, err
	}

	if err := s.store.Save(ctx, &result.Checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	s.mirror.Publish(progressRecord(result.Checkpoint, result))

	return result, nil
}

// RunToCompletion runs batches until the session is finished or failed.
// onBatch, if set, sees every batch result.
func (s *ImportService) RunToCompletion(ctx context.Context, id string, onBatch func(*domain.BatchResult)) (*domain.BatchResult, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := s.RunBatch(ctx, id)
		if err != nil {
			return nil, err
		}
		if onBatch != nil {
			onBatch(result)
		}
		if result.Status().Terminal() {
			return result, nil
		}
	}
}

// RunCheckpoint runs one batch for a caller-owned checkpoint without storing it.
// File and log names are resolved inside the import and log directories.
func (s *ImportService) RunCheckpoint(ctx context.Context, cp domain.ImportCheckpoint) (*domain.BatchResult, error) {
	path, err := s.resolveDump(cp.FilePath)
	if err != nil {
		return nil, err
	}
	cp.FilePath = path

	logName := filepath.Base(cp.LogFile)
	if cp.LogFile == "" || logName == "." || logName == string(filepath.Separator) {
		logName = DefaultLogFile
	}
	cp.LogFile = filepath.Join(s.logDir, logName)

	result, err := s.runner.RunBatch(ctx, cp)
	if err != nil {
		return nil, err
	}
	s.mirror.Publish(progressRecord(result.Checkpoint, result))
	return result, nil
}

// Close flushes the progress mirror and closes owned resources
func (s *ImportService) Close() error {
	var errs []error
	if err := s.mirror.Close(); err != nil {
		errs = append(errs, err)
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// resolveDump maps a file name onto the import directory. Directory
// components are dropped so callers cannot escape it.
func (s *ImportService) resolveDump(file string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + file))
	if file == "" || name == "/" || name == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, file)
	}

	path := filepath.Join(s.importDir, name)
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrDumpNotFound, name)
		}
		return "", fmt.Errorf("failed to stat dump file: %w", err)
	}
	if stat.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidFileName, name)
	}
	return path, nil
}

func (s *ImportService) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.running[id]; busy {
		return false
	}
	s.running[id] = struct{}{}
	return true
}

func (s *ImportService) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

// progressRecord builds the monitoring record of a checkpoint. result is nil for failed batches.
func progressRecord(cp domain.ImportCheckpoint, result *domain.BatchResult) domain.ImportProgress {
	p := domain.ImportProgress{
		Timestamp:       cp.UpdatedAt,
		SessionID:       cp.SessionID,
		FilePath:        cp.FilePath,
		FileName:        filepath.Base(cp.FilePath),
		Status:          cp.Status.String(),
		OffsetBytes:     uint64(cp.ByteOffset),
		LineNumber:      uint64(cp.LineNumber),
		StatementsTotal: uint64(cp.TotalStatements),
		ErrorsTotal:     uint64(cp.TotalErrors),
	}

	if size, err := linesource.StatSize(cp.FilePath); err == nil && size > 0 {
		p.FileSizeBytes = uint64(size)
	}

	if result != nil {
		p.Percent = result.Percent
		p.BatchLines = uint64(result.LinesRead)
		p.BatchStatements = uint64(result.StatementsExecuted)
		p.BatchErrors = uint64(result.ErrorsThisBatch)
		p.BatchNonFatal = uint64(result.NonFatalThisBatch)
		p.BatchDurationMs = uint64(result.Duration.Milliseconds())
	}

	return p
}
