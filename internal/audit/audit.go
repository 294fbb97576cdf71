// Package audit provides structured event logging for build session lifecycle events.
// Events are stored as JSON Lines (JSONL) files, one per session.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventBoot        EventType = "boot"
	EventBootRetry   EventType = "boot-retry"
	EventReady       EventType = "ready"
	EventInstall     EventType = "install"
	EventStart       EventType = "start"
	EventServerReady EventType = "server-ready"
	EventError       EventType = "error"
)

const eventSuffix = ".events.jsonl"

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Session   string    `json:"session"`
	Details   string    `json:"details,omitempty"`
}

// Logger writes and reads audit events for sessions.
// Events are stored in {stateDir}/sessions/{name}.events.jsonl.
type Logger struct {
	stateDir string
	mu       sync.Mutex
}

// NewLogger creates a new audit logger rooted at stateDir.
func NewLogger(stateDir string) *Logger {
	return &Logger{stateDir: stateDir}
}

func (l *Logger) sessionsDir() string {
	return filepath.Join(l.stateDir, "sessions")
}

// eventPath returns the path to the JSONL event log for a session.
func (l *Logger) eventPath(session string) string {
	return filepath.Join(l.sessionsDir(), session+eventSuffix)
}

// Log appends an event to the session's audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.eventPath(event.Session)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, session, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Session:   session,
		Details:   details,
	})
}

// Events reads all events for a session in chronological order.
func (l *Logger) Events(session string) ([]Event, error) {
	path := l.eventPath(session)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Sessions lists the sessions that have an audit log, sorted by name.
func (l *Logger) Sessions() ([]string, error) {
	entries, err := os.ReadDir(l.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), eventSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), eventSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the audit log for a session.
func (l *Logger) Remove(session string) error {
	path := l.eventPath(session)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
