package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType classifies an audit trail entry.
type AuditEventType string

// Audit event types. Every operation that mutates slurmdbd state on
// disk or through the service manager records one.
const (
	AuditEventConfChange     AuditEventType = "conf_change"
	AuditEventEnvChange      AuditEventType = "env_change"
	AuditEventDatabaseChange AuditEventType = "database_change"
	AuditEventRender         AuditEventType = "render"
	AuditEventServiceAction  AuditEventType = "service_action"
	AuditEventJWTInstall     AuditEventType = "jwt_install"
	AuditEventError          AuditEventType = "error"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType AuditEventType `json:"event_type"`
	User      string         `json:"user,omitempty"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource,omitempty"`
	Result    string         `json:"result"` // "success" or "failure"
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// AuditLogger appends JSON-line audit events to a rotated file. A nil
// *AuditLogger records nothing, so callers can pass one through
// unconditionally.
type AuditLogger struct {
	mu      sync.Mutex
	rotator *FileRotator
	user    string
}

// NewAuditLogger opens the audit trail at path.
func NewAuditLogger(path string) (*AuditLogger, error) {
	rotator, err := NewFileRotator(path, 50, 10)
	if err != nil {
		return nil, fmt.Errorf("create audit rotator: %w", err)
	}
	return &AuditLogger{
		rotator: rotator,
		user:    currentUser(),
	}, nil
}

// DefaultAuditPath returns the audit trail path under XDG_STATE_HOME.
func DefaultAuditPath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		homeDir, _ := os.UserHomeDir()
		stateHome = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateHome, "slurmdbdctl", "audit.log")
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// Record appends one event. Timestamp and user are filled in when
// unset.
func (a *AuditLogger) Record(ev AuditEvent) error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.User == "" {
		ev.User = a.user
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	line = append(line, '\n')
	if _, err := a.rotator.Write(line); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Success records a successful operation.
func (a *AuditLogger) Success(t AuditEventType, action, resource string, details map[string]any) {
	a.Record(AuditEvent{
		EventType: t,
		Action:    action,
		Resource:  resource,
		Result:    "success",
		Details:   details,
	})
}

// Failure records a failed operation with its error.
func (a *AuditLogger) Failure(t AuditEventType, action, resource string, opErr error) {
	ev := AuditEvent{
		EventType: t,
		Action:    action,
		Resource:  resource,
		Result:    "failure",
	}
	if opErr != nil {
		ev.Error = opErr.Error()
	}
	a.Record(ev)
}

// Close flushes and closes the audit trail.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rotator.Close()
}
