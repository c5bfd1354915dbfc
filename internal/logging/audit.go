package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names one kind of audit record.
type AuditEventType string

const (
	AuditAsk         AuditEventType = "ask"          // one oracle call
	AuditAskError    AuditEventType = "ask_error"    // oracle call that returned an error
	AuditRunStart    AuditEventType = "run_start"    // extraction started
	AuditRunComplete AuditEventType = "run_complete" // extraction finished with a value
	AuditRunError    AuditEventType = "run_error"    // extraction aborted
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// AuditEvent is one JSON line of the audit trail.
// Fact is a one-line rendering such as ask(ts, "cond", true, 3).
type AuditEvent struct {
	Timestamp  int64          `json:"ts"` // Unix milliseconds
	EventType  AuditEventType `json:"event"`
	RunID      string         `json:"run,omitempty"`
	Oracle     string         `json:"oracle,omitempty"`
	Condition  string         `json:"condition,omitempty"`
	Answer     bool           `json:"answer"`
	DurationMs int64          `json:"dur_ms"`
	Error      string         `json:"error,omitempty"`
	Message    string         `json:"msg,omitempty"`
	Fact       string         `json:"fact"`
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AuditLog appends audit events to a JSON-lines file. A nil *AuditLog
// discards everything, so callers need no enabled check.
type AuditLog struct {
	mu    sync.Mutex
	file  *os.File
	runID string
}

// OpenAudit opens path for appending, creating parent directories.
func OpenAudit(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}
	return &AuditLog{file: file}, nil
}

// SetRun tags subsequent events with runID.
func (a *AuditLog) SetRun(runID string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.runID = runID
	a.mu.Unlock()
}

// Close closes the underlying file.
func (a *AuditLog) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// =============================================================================
// AUDIT LOGGING METHODS
// =============================================================================

// Log writes one event.
func (a *AuditLog) Log(event AuditEvent) {
	if a == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return
	}
	if event.RunID == "" {
		event.RunID = a.runID
	}
	event.Fact = formatFact(event)

	data, err := json.Marshal(event)
	if err == nil {
		a.file.Write(append(data, '\n'))
	}
}

// Ask records one oracle call.
func (a *AuditLog) Ask(oracle, condition string, answer bool, d time.Duration, err error) {
	e := AuditEvent{
		EventType:  AuditAsk,
		Oracle:     oracle,
		Condition:  condition,
		Answer:     answer,
		DurationMs: d.Milliseconds(),
	}
	if err != nil {
		e.EventType = AuditAskError
		e.Error = err.Error()
	}
	a.Log(e)
}

// RunStart records the start of an extraction.
func (a *AuditLog) RunStart(runID, expression string) {
	a.SetRun(runID)
	a.Log(AuditEvent{
		EventType: AuditRunStart,
		RunID:     runID,
		Message:   fmt.Sprintf("Extracting %s", expression),
	})
}

// RunEnd records how an extraction finished.
func (a *AuditLog) RunEnd(value string, d time.Duration, err error) {
	e := AuditEvent{
		EventType:  AuditRunComplete,
		DurationMs: d.Milliseconds(),
		Message:    value,
	}
	if err != nil {
		e.EventType = AuditRunError
		e.Error = err.Error()
	}
	a.Log(e)
}

func formatFact(e AuditEvent) string {
	switch e.EventType {
	case AuditAsk, AuditAskError:
		return fmt.Sprintf("ask(%d, \"%s\", %v, %d).",
			e.Timestamp, escapeString(e.Condition), e.Answer, e.DurationMs)
	case AuditRunComplete:
		return fmt.Sprintf("run_complete(%d, \"%s\", \"%s\", %d).",
			e.Timestamp, e.RunID, escapeString(e.Message), e.DurationMs)
	case AuditRunError:
		return fmt.Sprintf("run_error(%d, \"%s\", \"%s\").",
			e.Timestamp, e.RunID, escapeString(e.Error))
	default:
		return fmt.Sprintf("audit_event(%d, /%s, \"%s\").",
			e.Timestamp, e.EventType, escapeString(e.Message))
	}
}

// escapeString quotes a value for the fact line. Conditions routinely
// carry quotes and backslashes.
func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)

	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
