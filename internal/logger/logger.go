package logger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gzhole/opguard/internal/policy"
	"github.com/gzhole/opguard/internal/redact"
)

// defaultMaxLogBytes is the size at which the audit file is rotated to
// <path>.1. Only one backup is kept.
const defaultMaxLogBytes = 10 << 20

// AssessmentEvent is one line of the audit log.
type AssessmentEvent struct {
	ID              string         `json:"id"`
	Timestamp       string         `json:"timestamp"`
	Endpoint        string         `json:"endpoint"`
	Method          string         `json:"method"`
	Description     string         `json:"description,omitempty"`
	TableID         string         `json:"table_id,omitempty"`
	Payload         map[string]any `json:"payload,omitempty"`
	Severity        string         `json:"severity"`
	Score           int            `json:"score"`
	LogLevel        string         `json:"log_level"`
	MatchedPatterns []string       `json:"matched_patterns,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	Blockers        []string       `json:"blockers,omitempty"`
	DryRun          bool           `json:"dry_run,omitempty"`
	UserAction      string         `json:"user_action,omitempty"`
}

// NewEvent converts an engine log record into an audit event with a fresh
// correlation id.
func NewEvent(rec policy.LogRecord) AssessmentEvent {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	op := rec.Operation
	return AssessmentEvent{
		ID:              uuid.NewString(),
		Timestamp:       ts.UTC().Format(time.RFC3339),
		Endpoint:        op.Endpoint,
		Method:          string(op.NormalizedMethod()),
		Description:     op.OperationDescription,
		TableID:         op.TableID,
		Payload:         op.Payload,
		Severity:        rec.Severity.String(),
		Score:           rec.Score,
		LogLevel:        rec.LogLevel,
		MatchedPatterns: rec.MatchedPatternNames,
		Warnings:        rec.Warnings,
		Blockers:        rec.Blockers,
		DryRun:          op.DryRun,
	}
}

// Sink receives audit events.
type Sink interface {
	Write(AssessmentEvent) error
}

// LogFunc adapts a sink into an engine log callback.
func LogFunc(s Sink) policy.LogFunc {
	return func(rec policy.LogRecord) error {
		return s.Write(NewEvent(rec))
	}
}

// AuditLogger appends events as JSON lines to a file.
type AuditLogger struct {
	path     string
	maxBytes int64
	file     *os.File
	mu       sync.Mutex
}

func New(path string) (*AuditLogger, error) {
	l := &AuditLogger{path: path, maxBytes: defaultMaxLogBytes}
	if err := l.rotateIfNeeded(); err != nil {
		return nil, err
	}
	file, err := openLog(path)
	if err != nil {
		return nil, err
	}
	l.file = file
	return l, nil
}

func openLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// Path returns the file the logger appends to.
func (l *AuditLogger) Path() string { return l.path }

// Write redacts and appends one event.
func (l *AuditLogger) Write(event AssessmentEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Redact sensitive data before logging
	event.Payload = redact.Payload(event.Payload)
	event.Description = redact.Redact(event.Description)
	event.Endpoint = redact.Redact(event.Endpoint)

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := l.rotateLocked(int64(len(data))); err != nil {
		return err
	}
	_, err = l.file.Write(data)
	return err
}

// rotateIfNeeded moves an oversized log aside before the file is opened.
func (l *AuditLogger) rotateIfNeeded() error {
	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < l.maxBytes {
		return nil
	}
	return os.Rename(l.path, l.path+".1")
}

// rotateLocked rotates when appending n bytes would cross the limit.
func (l *AuditLogger) rotateLocked(n int64) error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 || info.Size()+n <= l.maxBytes {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return fmt.Errorf("rotating audit log: %w", err)
	}
	file, err := openLog(l.path)
	if err != nil {
		return err
	}
	l.file = file
	return nil
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// fanout writes to every sink and joins their errors.
type fanout []Sink

// Fanout returns a sink that writes each event to all of sinks. A failing
// sink does not stop the others.
func Fanout(sinks ...Sink) Sink {
	return fanout(sinks)
}

func (f fanout) Write(event AssessmentEvent) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Write(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
