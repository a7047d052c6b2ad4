package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
)

// Config holds audit pipeline settings.
type Config struct {
	LogDir        string
	BufferSize    int
	FlushInterval time.Duration
	MaxFileSizeMB int
	RetentionDays int
}

// DefaultConfig returns the production audit settings.
func DefaultConfig() Config {
	return Config{
		LogDir:        "logs/audit",
		BufferSize:    100,
		FlushInterval: 10 * time.Second,
		MaxFileSizeMB: 100,
		RetentionDays: 90,
	}
}

// Logger buffers audit entries and writes them as JSONL day files with
// size-based rotation. Log never blocks on I/O failures and never
// returns errors to callers; failed flushes retain the buffer for the
// next attempt.
type Logger struct {
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	buffer []Entry

	cancel context.CancelFunc
	done   chan struct{}
}

// NewLogger creates an audit logger writing under cfg.LogDir.
// Zero config fields fall back to defaults.
func NewLogger(cfg Config, clk clock.Clock) (*Logger, error) {
	def := DefaultConfig()
	if cfg.LogDir == "" {
		cfg.LogDir = def.LogDir
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = def.MaxFileSizeMB
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = def.RetentionDays
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit log dir: %w", err)
	}
	return &Logger{
		cfg:    cfg,
		clock:  clk,
		logger: slog.Default().With("component", "audit"),
		buffer: make([]Entry, 0, cfg.BufferSize),
	}, nil
}

// Start launches the periodic flush loop.
func (l *Logger) Start(ctx context.Context) {
	if l.cancel != nil {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})

	go l.run(ctx)

	l.logger.Info("Audit logger started",
		"log_dir", l.cfg.LogDir,
		"buffer_size", l.cfg.BufferSize,
		"flush_interval", l.cfg.FlushInterval)
}

// Close stops the flush loop and writes any remaining entries.
func (l *Logger) Close() {
	if l.cancel != nil {
		l.cancel()
		<-l.done
		l.cancel = nil
	}
	l.Flush()
}

// Log redacts and buffers an entry. The buffer is flushed synchronously
// when it reaches capacity or the entry is CRITICAL.
func (l *Logger) Log(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = l.clock.Now().UTC()
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	e.OldValue = Redact(e.OldValue)
	e.NewValue = Redact(e.NewValue)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.buffer = append(l.buffer, e)
	if len(l.buffer) >= l.cfg.BufferSize || e.Severity == SeverityCritical {
		l.flushLocked()
	}
}

// LogSyncEvent records a sync fan-out with its destinations and outcome.
func (l *Logger) LogSyncEvent(msgType, entityType, entityID, userID, terminalID string, destinations []string, success bool) {
	status := "synced"
	severity := SeverityInfo
	if !success {
		status = "failed"
		severity = SeverityWarning
	}
	l.Log(Entry{
		Action:      "SYNC_" + msgType,
		EntityType:  entityType,
		EntityID:    entityID,
		UserID:      userID,
		TerminalID:  terminalID,
		Severity:    severity,
		Description: fmt.Sprintf("Sync %s of %s to %d terminal(s)", msgType, entityType, len(destinations)),
		Metadata:    map[string]any{"destinations": destinations},
		SyncStatus:  status,
	})
}

// LogConflict records a version conflict and how it was resolved.
func (l *Logger) LogConflict(entityType, entityID, userID, terminalID, resolution string, clientValue, serverValue map[string]any) {
	l.Log(Entry{
		Action:             ActionConflict,
		EntityType:         entityType,
		EntityID:           entityID,
		UserID:             userID,
		TerminalID:         terminalID,
		Severity:           SeverityWarning,
		Description:        fmt.Sprintf("Version conflict on %s resolved with %s", entityType, resolution),
		OldValue:           serverValue,
		NewValue:           clientValue,
		ConflictResolution: resolution,
	})
}

// LogPayment records a payment-affecting operation. CRITICAL severity
// forces an immediate flush.
func (l *Logger) LogPayment(entityType, entityID, userID, terminalID, description string, oldValue, newValue map[string]any) {
	l.Log(Entry{
		Action:      ActionPayment,
		EntityType:  entityType,
		EntityID:    entityID,
		UserID:      userID,
		TerminalID:  terminalID,
		Severity:    SeverityCritical,
		Description: description,
		OldValue:    oldValue,
		NewValue:    newValue,
	})
}

// LogCashierOperation records a cash-handling operation.
func (l *Logger) LogCashierOperation(operation, userID, terminalID, description string, metadata map[string]any) {
	l.Log(Entry{
		Action:      ActionCashier,
		EntityType:  "cashier",
		EntityID:    operation,
		UserID:      userID,
		TerminalID:  terminalID,
		Severity:    SeverityInfo,
		Description: description,
		Metadata:    metadata,
	})
}

// Flush writes buffered entries to the current day file immediately.
func (l *Logger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushLocked()
}

// Buffered returns the number of entries awaiting flush.
func (l *Logger) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}

func (l *Logger) run(ctx context.Context) {
	defer close(l.done)

	timer := l.clock.NewTimer(l.cfg.FlushInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
			l.Flush()
			timer.Reset(l.cfg.FlushInterval)
		}
	}
}

func (l *Logger) flushLocked() {
	if len(l.buffer) == 0 {
		return
	}
	if err := l.writeEntries(l.buffer); err != nil {
		l.logger.Error("Audit flush failed, retaining buffer",
			"entries", len(l.buffer),
			"error", err)
		return
	}
	l.buffer = l.buffer[:0]
}

func (l *Logger) writeEntries(entries []Entry) error {
	now := l.clock.Now().UTC()
	path := l.dayFilePath(now)

	// Rotation renames the full file before the new append so committed
	// lines are never lost.
	if err := l.rotateIfNeeded(path, now); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return fmt.Errorf("encoding audit entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing audit file: %w", err)
	}
	return nil
}

func (l *Logger) rotateIfNeeded(path string, now time.Time) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat audit file: %w", err)
	}
	if info.Size() < int64(l.cfg.MaxFileSizeMB)*1024*1024 {
		return nil
	}

	rotated := strings.TrimSuffix(path, ".jsonl") + "_" + now.Format("150405") + "_rotated.jsonl"
	if err := os.Rename(path, rotated); err != nil {
		return fmt.Errorf("rotating audit file: %w", err)
	}
	l.logger.Info("Rotated audit file",
		"from", filepath.Base(path),
		"to", filepath.Base(rotated))
	return nil
}

func (l *Logger) dayFilePath(t time.Time) string {
	return filepath.Join(l.cfg.LogDir, "audit_"+t.UTC().Format("20060102")+".jsonl")
}
