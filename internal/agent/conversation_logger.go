package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// ConversationLogEvent is one line of a conversation log.
type ConversationLogEvent struct {
	EventID    string         `json:"event_id"`
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

// ConversationLogger records chat traffic without blocking request handling.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

var (
	ansiPattern       = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07]*\x07`)
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
	unsafePathPattern = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// cleanForReadability strips ANSI escapes and control characters and
// collapses runs of blanks.
func cleanForReadability(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// fileConversationLogger writes one NDJSON file per user/session from a
// single writer goroutine.
type fileConversationLogger struct {
	dir    string
	queue  chan ConversationLogEvent
	logger *slog.Logger
	wg     sync.WaitGroup

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewConversationLogger creates a logger. A disabled config returns a no-op logger.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if cfg.Dir == "" {
		return nil, errors.New("conversation log dir is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileConversationLogger{
		dir:    cfg.Dir,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		logger: logger,
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log enqueues event. Events are dropped when the queue is full or closed.
func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("conversation log queue full, dropping event",
			"user_id", event.UserID,
			"session_id", event.SessionID,
			"event_type", event.EventType)
	}
}

// Close drains the queue and stops the writer.
func (l *fileConversationLogger) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()
	})
	l.wg.Wait()
	return nil
}

func (l *fileConversationLogger) run() {
	defer l.wg.Done()
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Warn("failed to write conversation log event",
				"user_id", event.UserID,
				"session_id", event.SessionID,
				"error", err)
		}
	}
}

func (l *fileConversationLogger) write(event ConversationLogEvent) error {
	userDir := filepath.Join(l.dir, safePathComponent(event.UserID, "unknown"))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return fmt.Errorf("create user log dir: %w", err)
	}
	path := filepath.Join(userDir, safePathComponent(event.SessionID, "default")+".ndjson")

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append log line: %w", err)
	}
	return f.Close()
}

func safePathComponent(s, fallback string) string {
	s = unsafePathPattern.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" || s == "." || s == ".." {
		return fallback
	}
	return s
}
