// Package audit records panel request lifecycle metadata as NDJSON. Prompts,
// replies and chat messages are never written.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Event is one audit line.
type Event struct {
	Time        time.Time `json:"time"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Panel       string    `json:"panel"`
	Seq         uint64    `json:"seq"`
	RequestID   string    `json:"request_id,omitempty"`
	Phase       string    `json:"phase"`
	Subject     string    `json:"subject,omitempty"`
	PromptChars int       `json:"prompt_chars,omitempty"`
	ResultChars int       `json:"result_chars,omitempty"`
	LatencyMS   int64     `json:"latency_ms,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Recorder accepts audit events. Record never blocks.
type Recorder interface {
	Record(Event)
	Close() error
}

// Config controls the NDJSON recorder.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}
func (nopRecorder) Close() error { return nil }

// Nop returns a Recorder that discards everything.
func Nop() Recorder {
	return nopRecorder{}
}

// FileRecorder appends events to <dir>/<user>/<session>.ndjson from a single
// background writer.
type FileRecorder struct {
	dir    string
	logger *slog.Logger
	queue  chan Event

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

// New returns a Nop recorder when cfg is disabled.
func New(cfg Config, logger *slog.Logger) (Recorder, error) {
	if !cfg.Enabled {
		return Nop(), nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("audit log directory is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	r := &FileRecorder{
		dir:    cfg.Dir,
		logger: logger,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

// Record queues ev. Events are dropped with a warning when the queue is full
// or the recorder is closed.
func (r *FileRecorder) Record(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- ev:
	default:
		r.logger.Warn("audit queue full, dropping event",
			"panel", ev.Panel,
			"seq", ev.Seq,
			"phase", ev.Phase,
		)
	}
}

// Close flushes queued events and stops the writer.
func (r *FileRecorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})
	<-r.done
	return nil
}

func (r *FileRecorder) loop() {
	defer close(r.done)
	for ev := range r.queue {
		if err := r.write(ev); err != nil {
			r.logger.Warn("failed to write audit event",
				"user_id", ev.UserID,
				"session_id", ev.SessionID,
				"error", err,
			)
		}
	}
}

func (r *FileRecorder) write(ev Event) error {
	dir := filepath.Join(r.dir, safeName(ev.UserID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user directory: %w", err)
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, safeName(ev.SessionID)+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append audit line: %w", err)
	}
	return f.Close()
}

// safeName keeps identifiers from escaping the audit directory.
func safeName(id string) string {
	if id == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
