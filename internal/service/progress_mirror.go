package service

import (
	"context"
	"sync"
	"time"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/SteelMorgan/sqldump-importer/internal/writer"
	"github.com/rs/zerolog/log"
)

// ProgressMirror ships progress records to a ProgressWriter in the background
// so a slow monitoring store never delays an import batch
type ProgressMirror struct {
	w       writer.ProgressWriter
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	ch     chan domain.ImportProgress
	done   chan struct{}
}

// NewProgressMirror starts the mirror worker
func NewProgressMirror(w writer.ProgressWriter, buffer int) *ProgressMirror {
	if buffer <= 0 {
		buffer = 64
	}
	m := &ProgressMirror{
		w:       w,
		timeout: 10 * time.Second,
		ch:      make(chan domain.ImportProgress, buffer),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *ProgressMirror) run() {
	defer close(m.done)

	for p := range m.ch {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		if err := m.w.WriteProgress(ctx, &p); err != nil {
			log.Warn().
				Err(err).
				Str("session_id", p.SessionID).
				Msg("Failed to mirror import progress")
		}
		cancel()
	}
}

// Publish queues a record. When the queue is full the record is dropped.
func (m *ProgressMirror) Publish(p domain.ImportProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	select {
	case m.ch <- p:
	default:
		log.Debug().Str("session_id", p.SessionID).Msg("Progress mirror queue full, record dropped")
	}
}

// Close drains the queue and closes the writer
func (m *ProgressMirror) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.ch)
	m.mu.Unlock()

	<-m.done
	return m.w.Close()
}
