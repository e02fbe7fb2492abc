// Package eventlog provides unified event logging for the recording session.
// It captures session lifecycle events (calibration, pause/resume, stop) and
// artifact events in a single JSON lines file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

// Session event types.
const (
	CalibrationStarted   EventType = "calibration_started"
	CalibrationCompleted EventType = "calibration_completed"
	CalibrationAborted   EventType = "calibration_aborted"
	SessionStopped       EventType = "session_stopped"
	SourceLost           EventType = "source_lost"
)

// Gate event types.
const (
	AutoPause    EventType = "auto_pause"
	AutoResume   EventType = "auto_resume"
	ManualPause  EventType = "manual_pause"
	ManualResume EventType = "manual_resume"
)

// Artifact event types.
const (
	ArtifactFinalized EventType = "artifact_finalized"
	ArtifactUploaded  EventType = "artifact_uploaded"
	UploadFailed      EventType = "upload_failed"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// GateDetails contains level and threshold context for gate events.
type GateDetails struct {
	Volume    float64 `json:"volume"`
	Baseline  float64 `json:"baseline"`
	Tightness int     `json:"tightness"`
	DelayMs   int64   `json:"delay_ms,omitempty"`
}

// SessionDetails contains session lifecycle event details.
type SessionDetails struct {
	Baseline   float64 `json:"baseline,omitempty"`
	RecordedMs int64   `json:"recorded_ms,omitempty"`
	Partial    bool    `json:"partial,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// ArtifactDetails contains artifact event details.
type ArtifactDetails struct {
	Filename  string `json:"filename,omitempty"`
	Codec     string `json:"codec,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Logger writes events to a JSON lines file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	encoder  *json.Encoder
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return l.encoder.Encode(event)
}

// LogGate logs an automatic or manual pause/resume event.
func (l *Logger) LogGate(eventType EventType, volume, baseline float64, tightness int, delayMs int64) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details: &GateDetails{
			Volume:    volume,
			Baseline:  baseline,
			Tightness: tightness,
			DelayMs:   delayMs,
		},
	})
}

// LogSession logs a session lifecycle event.
func (l *Logger) LogSession(eventType EventType, baseline float64, recordedMs int64, partial bool, errMsg string) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details: &SessionDetails{
			Baseline:   baseline,
			RecordedMs: recordedMs,
			Partial:    partial,
			Error:      errMsg,
		},
	})
}

// LogArtifact logs an artifact event.
func (l *Logger) LogArtifact(eventType EventType, filename, codec string, sizeBytes int64, url, errMsg string) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details: &ArtifactDetails{
			Filename:  filename,
			Codec:     codec,
			SizeBytes: sizeBytes,
			URL:       url,
			Error:     errMsg,
		},
	})
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	return l.filePath
}

// TypeFilter specifies which event types to include when reading.
type TypeFilter string

// Filter constants for ReadLast.
const (
	FilterAll      TypeFilter = ""
	FilterSession  TypeFilter = "session"
	FilterGate     TypeFilter = "gate"
	FilterArtifact TypeFilter = "artifact"
)

// MaxReadLimit is the maximum number of events that can be read at once.
// This prevents denial-of-service via excessive memory allocation.
const MaxReadLimit = 500

// ReadLast reads events from the log file with pagination support.
// Returns up to n events starting from offset, filtered by type.
// Events are returned in reverse chronological order (newest first).
func ReadLast(filePath string, n, offset int, filter TypeFilter) ([]Event, bool, error) {
	if n > MaxReadLimit {
		n = MaxReadLimit
	}
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	// Parse events in reverse order (newest first), applying filter
	events := make([]Event, 0, n)
	skipped := 0
	hasMore := false
	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue // Skip malformed lines
		}

		if !matchesFilter(event.Type, filter) {
			continue
		}

		if skipped < offset {
			skipped++
			continue
		}

		if len(events) >= n {
			hasMore = true
			break
		}
		events = append(events, event)
	}

	return events, hasMore, nil
}

// matchesFilter reports whether an event type passes the given filter.
func matchesFilter(t EventType, filter TypeFilter) bool {
	switch filter {
	case FilterSession:
		return IsSessionEvent(t)
	case FilterGate:
		return IsGateEvent(t)
	case FilterArtifact:
		return IsArtifactEvent(t)
	default:
		return true
	}
}

// IsSessionEvent returns true if the event type is a session lifecycle event.
func IsSessionEvent(t EventType) bool {
	return t == CalibrationStarted || t == CalibrationCompleted || t == CalibrationAborted ||
		t == SessionStopped || t == SourceLost
}

// IsGateEvent returns true if the event type is a pause/resume event.
func IsGateEvent(t EventType) bool {
	return t == AutoPause || t == AutoResume || t == ManualPause || t == ManualResume
}

// IsArtifactEvent returns true if the event type is an artifact event.
func IsArtifactEvent(t EventType) bool {
	return t == ArtifactFinalized || t == ArtifactUploaded || t == UploadFailed
}
