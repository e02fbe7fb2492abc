package notify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/quietcut/quietcut/internal/util"
)

// SessionLogEntry is a single line in the notification log file.
type SessionLogEntry struct {
	Timestamp   string  `json:"timestamp"`
	Event       string  `json:"event"`
	Filename    string  `json:"filename,omitempty"`
	Codec       string  `json:"codec,omitempty"`
	SizeBytes   int64   `json:"size_bytes,omitempty"`
	RecordedMs  int64   `json:"recorded_ms,omitempty"`
	Partial     bool    `json:"partial,omitempty"`
	ArtifactURL string  `json:"artifact_url,omitempty"`
	Baseline    float64 `json:"baseline,omitempty"`
}

// LogArtifact records a finished recording in the notification log.
func LogArtifact(logPath, filename, codec string, sizeBytes, recordedMs int64, partial bool, artifactURL string) error {
	return appendLogEntry(logPath, &SessionLogEntry{
		Timestamp:   util.TimestampUTC(),
		Event:       "recording_finished",
		Filename:    filename,
		Codec:       codec,
		SizeBytes:   sizeBytes,
		RecordedMs:  recordedMs,
		Partial:     partial,
		ArtifactURL: artifactURL,
	})
}

// LogSourceLost records a mid-session source loss in the notification log.
func LogSourceLost(logPath string, baseline float64) error {
	return appendLogEntry(logPath, &SessionLogEntry{
		Timestamp: util.TimestampUTC(),
		Event:     "source_lost",
		Baseline:  baseline,
	})
}

// WriteTestLog writes a test log entry.
func WriteTestLog(logPath string) error {
	if logPath == "" {
		return fmt.Errorf("log file path not configured")
	}

	return appendLogEntry(logPath, &SessionLogEntry{
		Timestamp: util.TimestampUTC(),
		Event:     "test",
	})
}

// appendLogEntry appends a log entry to the file.
func appendLogEntry(logPath string, entry *SessionLogEntry) error {
	if !util.IsConfigured(logPath) {
		return nil
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return util.WrapError("marshal log entry", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return util.WrapError("open log file", err)
	}
	defer util.SafeCloseFunc(f, "log file")()

	if _, err := f.Write(jsonData); err != nil {
		return util.WrapError("write log entry", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return util.WrapError("write newline", err)
	}

	return nil
}
