// Package convlog writes conversation transcripts as NDJSON: one file per
// (user, session) plus an optional rotated global file.
package convlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/crackd/internal/domain"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how transcripts are written.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
	MaxSizeMB     int
	MaxBackups    int
}

// Event is one NDJSON line.
type Event struct {
	Timestamp  string         `json:"ts"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Logger queues events and writes them on a single worker goroutine.
// A disabled Logger accepts and drops everything.
type Logger struct {
	cfg     Config
	log     *slog.Logger
	queue   chan Event
	global  io.WriteCloser
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// New starts a Logger. The returned Logger must be closed.
func New(cfg Config, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{cfg: cfg, log: logger, done: make(chan struct{})}
	if !cfg.Enabled {
		close(l.done)
		return l, nil
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
		l.cfg.QueueSize = cfg.QueueSize
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
		l.global = &lumberjack.Logger{
			Filename:   cfg.GlobalPath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
	}

	l.queue = make(chan Event, cfg.QueueSize)
	go l.run()
	return l, nil
}

// Log enqueues an event without blocking. Events are dropped when the queue
// is full or the Logger is closed.
func (l *Logger) Log(e Event) {
	if !l.cfg.Enabled {
		return
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Content == "" {
		e.Content = cleanForReadability(e.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- e:
	default:
		l.dropped.Add(1)
		l.log.Warn("[CONVLOG] queue full, dropping event", "user_id", e.UserID, "session_id", e.SessionID)
	}
}

// Record logs one transcript message. It satisfies session.Recorder.
func (l *Logger) Record(userID, sessionID string, msg domain.ChatMessage) {
	direction := "outbound"
	if msg.Role == domain.RoleUser {
		direction = "inbound"
	}
	l.Log(Event{
		Timestamp:  msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		UserID:     userID,
		SessionID:  sessionID,
		Channel:    "session",
		Direction:  direction,
		EventType:  "chat_" + string(msg.Role) + "_message",
		ContentRaw: msg.Content,
		Meta: map[string]any{
			"message_id": msg.ID,
			"kind":       string(msg.Kind),
		},
	})
}

// Close drains queued events and releases files. It is safe to call twice.
func (l *Logger) Close() error {
	var err error
	l.once.Do(func() {
		if !l.cfg.Enabled {
			return
		}
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()

		<-l.done
		if l.global != nil {
			err = l.global.Close()
		}
	})
	return err
}

// Dropped reports how many events were discarded because the queue was full.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

func (l *Logger) run() {
	defer close(l.done)
	for e := range l.queue {
		if err := l.write(e); err != nil {
			l.log.Warn("[CONVLOG] write failed", "user_id", e.UserID, "session_id", e.SessionID, "error", err)
		}
	}
}

func (l *Logger) write(e Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	var errs []error
	if err := l.appendSessionFile(e.UserID, e.SessionID, line); err != nil {
		errs = append(errs, err)
	}
	if l.global != nil {
		if _, err := l.global.Write(line); err != nil {
			errs = append(errs, fmt.Errorf("write global log: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (l *Logger) appendSessionFile(userID, sessionID string, line []byte) error {
	dir := filepath.Join(l.cfg.Dir, safeName(userID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session log dir: %w", err)
	}
	path := filepath.Join(dir, safeName(sessionID)+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write session log: %w", err)
	}
	return f.Close()
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// safeName keeps identifiers from escaping the log directory.
func safeName(s string) string {
	s = unsafeNameChars.ReplaceAllString(s, "_")
	if s == "" || strings.Trim(s, ".") == "" {
		return "_"
	}
	return s
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07]*\x07`)

// cleanForReadability strips terminal escapes and markdown emphasis so the
// transcript reads as plain text.
func cleanForReadability(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}
