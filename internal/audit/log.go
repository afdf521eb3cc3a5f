// Package audit records security-relevant console events (logins, guard
// decisions, forced logouts) as JSON Lines with size-based rotation and
// a small in-memory ring of recent events.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	KindLogin             = "login"
	KindLogout            = "logout"
	KindGuardDecision     = "guard_decision"
	KindPermissionRefresh = "permission_refresh"
	KindUnauthorized      = "unauthorized_cycle"
)

// Event is one audit entry.
type Event struct {
	ID      string            `json:"id"`
	Time    time.Time         `json:"time"`
	Kind    string            `json:"kind"`
	Actor   string            `json:"actor,omitempty"`
	Target  string            `json:"target,omitempty"`
	Outcome string            `json:"outcome,omitempty"`
	Reason  string            `json:"reason,omitempty"`
	Detail  map[string]string `json:"detail,omitempty"`
}

// Config tunes the audit log. Zero values select the defaults.
type Config struct {
	// Path is the base log file. Rotated files get a numeric suffix.
	Path string
	// MaxFileSizeMB caps one file before rotation (default 10).
	MaxFileSizeMB int
	// RecentSize is the in-memory ring capacity (default 200).
	RecentSize int
}

// Log appends events to a JSONL file. A nil *Log drops every event, so
// callers never need to guard their Record calls.
type Log struct {
	path    string
	maxSize int64
	logger  *slog.Logger

	mu     sync.Mutex
	file   *os.File
	size   int64
	suffix int

	recent []Event
	head   int
	count  int
}

// Open creates or appends to the audit log at cfg.Path.
func Open(cfg Config, logger *slog.Logger) (*Log, error) {
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 10
	}
	if cfg.RecentSize <= 0 {
		cfg.RecentSize = 200
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	l := &Log{
		path:    cfg.Path,
		maxSize: int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		logger:  logger,
		recent:  make([]Event, cfg.RecentSize),
	}
	if err := l.openLocked(); err != nil {
		return nil, err
	}
	return l, nil
}

// Record writes one event. The ID and timestamp are filled in when
// absent. Write failures are logged, not returned; auditing must never
// break the operation it describes.
func (l *Log) Record(ev Event) {
	if l == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.recent[l.head] = ev
	l.head = (l.head + 1) % len(l.recent)
	if l.count < len(l.recent) {
		l.count++
	}

	if l.file == nil {
		return
	}
	if l.size >= l.maxSize {
		if err := l.rotateLocked(); err != nil {
			l.logger.Warn("audit rotation failed", "error", err)
			return
		}
	}
	line, err := json.Marshal(ev)
	if err != nil {
		l.logger.Warn("audit event not serializable", "kind", ev.Kind, "error", err)
		return
	}
	n, err := l.file.Write(append(line, '\n'))
	if err != nil {
		l.logger.Warn("audit write failed", "error", err)
		return
	}
	l.size += int64(n)
}

// Recent returns up to n events, newest first.
func (l *Log) Recent(n int) []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || l.count == 0 {
		return nil
	}
	if n > l.count {
		n = l.count
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		idx := (l.head - 1 - i + len(l.recent)) % len(l.recent)
		out[i] = l.recent[idx]
	}
	return out
}

// Close syncs and closes the underlying file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	_ = l.file.Sync()
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Log) openLocked() error {
	path := l.currentPath()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat audit file: %w", err)
	}
	l.file = f
	l.size = info.Size()
	return nil
}

func (l *Log) currentPath() string {
	if l.suffix == 0 {
		return l.path
	}
	ext := filepath.Ext(l.path)
	return fmt.Sprintf("%s-%d%s", l.path[:len(l.path)-len(ext)], l.suffix, ext)
}

func (l *Log) rotateLocked() error {
	_ = l.file.Sync()
	_ = l.file.Close()
	l.file = nil
	l.suffix++
	l.size = 0
	return l.openLocked()
}
