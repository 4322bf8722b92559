// Package logging provides the append-only safety event and error log with
// retention-based rotation, audit-trail assembly, and report generation.
// Logging must never be the reason a safety check fails: every write path
// succeeds from the caller's perspective, falling back to a direct stderr
// write on internal failure.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"aegis/internal/config"
	"aegis/internal/types"
)

// SafetyLogger is the shared append-only store for log entries and errors.
// Writes are atomic with respect to reads: each record is fully visible or
// not at all.
type SafetyLogger struct {
	mu      sync.RWMutex
	entries []types.SafetyLogEntry
	errors  []types.SafetyError

	maxEntries    int
	maxErrors     int
	retentionDays int

	rotateTicker *time.Ticker
	rotateDone   chan struct{}

	// now is swappable for retention tests.
	now func() time.Time
}

// NewSafetyLogger creates a logger bounded by the given logging config.
func NewSafetyLogger(cfg config.LoggingConfig) *SafetyLogger {
	maxEntries := cfg.MaxLogEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	maxErrors := cfg.MaxErrors
	if maxErrors <= 0 {
		maxErrors = 500
	}
	retention := cfg.LogRetentionDays
	if retention <= 0 {
		retention = 90
	}
	return &SafetyLogger{
		maxEntries:    maxEntries,
		maxErrors:     maxErrors,
		retentionDays: retention,
		now:           time.Now,
	}
}

// LogSafetyEvent appends an event record. It never fails the caller.
func (l *SafetyLogger) LogSafetyEvent(level types.LogLevel, category, message, userID, sessionID string, fields map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[aegis] log write failed (%v): %s %s %s\n", r, level, category, message)
		}
	}()

	entry := types.SafetyLogEntry{
		ID:        uuid.NewString(),
		Timestamp: l.now(),
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    userID,
		SessionID: sessionID,
		Fields:    fields,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxEntries {
		// Evict the oldest 10% on overflow.
		evict := l.maxEntries / 10
		if evict < 1 {
			evict = 1
		}
		l.entries = append([]types.SafetyLogEntry(nil), l.entries[evict:]...)
	}
}

// LogSafetyError appends an error record. It never fails the caller.
func (l *SafetyLogger) LogSafetyError(kind types.ErrorKind, severity types.Severity, message, userID, sessionID string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[aegis] error-log write failed (%v): %s %s\n", r, kind, message)
		}
	}()

	rec := types.SafetyError{
		ID:        uuid.NewString(),
		Timestamp: l.now(),
		Kind:      kind,
		Severity:  severity,
		Message:   message,
		UserID:    userID,
		SessionID: sessionID,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.errors = append(l.errors, rec)
	if len(l.errors) > l.maxErrors {
		// Keep only the most recent.
		l.errors = append([]types.SafetyError(nil), l.errors[len(l.errors)-l.maxErrors:]...)
	}
}

// GetLogs returns a copy of the stored entries.
func (l *SafetyLogger) GetLogs() []types.SafetyLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.SafetyLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// GetErrors returns a copy of the stored error records.
func (l *SafetyLogger) GetErrors() []types.SafetyError {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.SafetyError, len(l.errors))
	copy(out, l.errors)
	return out
}

// =============================================================================
// RETENTION
// =============================================================================

// Rotate drops entries older than the retention window. It returns the
// evicted entries so an archival store may persist them.
func (l *SafetyLogger) Rotate() []types.SafetyLogEntry {
	cutoff := l.now().AddDate(0, 0, -l.retentionDays)

	l.mu.Lock()
	defer l.mu.Unlock()

	var kept []types.SafetyLogEntry
	var evicted []types.SafetyLogEntry
	for _, entry := range l.entries {
		if entry.Timestamp.Before(cutoff) {
			evicted = append(evicted, entry)
		} else {
			kept = append(kept, entry)
		}
	}
	l.entries = kept
	return evicted
}

// StartRotation begins the daily retention tick. onEvict, if non-nil,
// receives each evicted batch.
func (l *SafetyLogger) StartRotation(onEvict func([]types.SafetyLogEntry)) {
	l.mu.Lock()
	if l.rotateTicker != nil {
		l.mu.Unlock()
		return
	}
	l.rotateTicker = time.NewTicker(24 * time.Hour)
	l.rotateDone = make(chan struct{})
	ticker := l.rotateTicker
	done := l.rotateDone
	l.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				evicted := l.Rotate()
				if onEvict != nil && len(evicted) > 0 {
					onEvict(evicted)
				}
			case <-done:
				return
			}
		}
	}()
}

// StopRotation halts the retention tick. Safe to call more than once; a
// later StartRotation begins a fresh tick.
func (l *SafetyLogger) StopRotation() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rotateTicker == nil {
		return
	}
	l.rotateTicker.Stop()
	close(l.rotateDone)
	l.rotateTicker = nil
	l.rotateDone = nil
}

// SetClock swaps the logger's time source. Test hook.
func (l *SafetyLogger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
