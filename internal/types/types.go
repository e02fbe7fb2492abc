// Package types provides shared type definitions used across QuietCut.
package types

import (
	"time"
)

// SessionState represents the lifecycle state of a recording session.
type SessionState string

const (
	// StateIdle indicates no session is active.
	StateIdle SessionState = "idle"
	// StateCalibrating indicates the ambient-noise baseline is being measured.
	StateCalibrating SessionState = "calibrating"
	// StateRecording indicates media capture is active and audio is being written.
	StateRecording SessionState = "recording"
	// StatePaused indicates capture is active but audio is being discarded.
	StatePaused SessionState = "paused"
	// StateStopped indicates the session has finalized its artifact.
	StateStopped SessionState = "stopped"
)

// Classification is the result of comparing a volume sample against the baseline.
type Classification string

const (
	// ClassSilent indicates the sample is below baseline * SilenceMultiplier.
	ClassSilent Classification = "silent"
	// ClassLoud indicates the sample is above baseline * SoundMultiplier.
	ClassLoud Classification = "loud"
	// ClassNeutral indicates the sample falls between the two thresholds.
	ClassNeutral Classification = "neutral"
)

// Decision is an action emitted by the pause scheduler.
type Decision int

const (
	// DecisionNone indicates no action this tick.
	DecisionNone Decision = iota
	// DecisionPause indicates silence was sustained for the full debounce delay.
	DecisionPause
	// DecisionResume indicates loud audio arrived while paused.
	DecisionResume
)

// Gating thresholds and timing for the silence gate.
const (
	// SilenceMultiplier scales the baseline to the silence threshold.
	SilenceMultiplier = 2.0
	// SoundMultiplier scales the baseline to the loud threshold.
	// The gap between the two multipliers is the anti-flutter dead zone.
	SoundMultiplier = 2.5

	// BasePauseDelay is the debounce delay at tightness 0.
	BasePauseDelay = 400 * time.Millisecond
	// TightnessStep is the delay reduction per tightness unit.
	TightnessStep = 50 * time.Millisecond
	// MinTightness is the loosest setting (650ms delay).
	MinTightness = -5
	// MaxTightness is the tightest setting (150ms delay).
	MaxTightness = 5
)

// Analysis loop and calibration timing.
const (
	// AnalysisTickInterval is the cadence of the level-analysis loop (~60 Hz).
	AnalysisTickInterval = 16 * time.Millisecond
	// CalibrationWindow is the duration of the ambient-noise measurement.
	CalibrationWindow = 3000 * time.Millisecond
	// CalibrationSampleInterval is the level polling interval during calibration.
	CalibrationSampleInterval = 50 * time.Millisecond
	// CountdownTick is the calibration countdown update interval.
	CountdownTick = 100 * time.Millisecond
)

// Audio format constants for PCM capture and analysis.
const (
	// SampleRate is the audio sample rate in Hz.
	SampleRate = 48000
	// Channels is the number of capture channels (mono is enough for gating).
	Channels = 1
	// SpectrumBins is the number of frequency bins the analyser produces.
	SpectrumBins = 256
)

const (
	// ShutdownTimeout is the duration to wait for graceful child-process shutdown.
	ShutdownTimeout = 3000 * time.Millisecond
	// PollInterval is the interval for polling process state.
	PollInterval = 50 * time.Millisecond
)

// Codec represents an audio codec for the output artifact.
type Codec string

// Supported artifact codecs.
const (
	CodecWAV Codec = "wav" // Uncompressed PCM in Matroska container
	CodecMP3 Codec = "mp3" // MPEG Audio Layer III
	CodecOGG Codec = "ogg" // Ogg Vorbis
)

// CodecPreset defines FFmpeg encoding parameters for a codec.
type CodecPreset struct {
	Args      []string // FFmpeg codec arguments
	Format    string   // FFmpeg output format
	Extension string   // File extension
	MIME      string   // Content type for uploads
}

// CodecPresets maps codec types to their FFmpeg configuration.
var CodecPresets = map[Codec]CodecPreset{
	CodecMP3: {[]string{"libmp3lame", "-b:a", "192k"}, "mp3", "mp3", "audio/mpeg"},
	CodecOGG: {[]string{"libvorbis", "-qscale:a", "6"}, "ogg", "ogg", "audio/ogg"},
	CodecWAV: {[]string{"pcm_s16le"}, "matroska", "mkv", "audio/x-matroska"},
}

// PresetFor returns the FFmpeg preset for the given codec, defaulting to MP3.
func PresetFor(codec Codec) CodecPreset {
	if preset, ok := CodecPresets[codec]; ok {
		return preset
	}
	return CodecPresets[CodecMP3]
}

// Artifact is the finalized output of a stopped session.
type Artifact struct {
	Path       string `json:"path"`                 // Local file path
	URL        string `json:"url,omitempty"`        // S3 object URL when uploaded
	SizeBytes  int64  `json:"size_bytes"`           // File size
	Codec      Codec  `json:"codec"`                // Artifact codec
	CreatedAt  string `json:"created_at"`           // RFC3339 finalization time
	Partial    bool   `json:"partial,omitempty"`    // True when the source was lost mid-session
	RecordedMs int64  `json:"recorded_ms"`          // Milliseconds of audio actually written
	UploadErr  string `json:"upload_err,omitempty"` // Error message if S3 upload failed
}

// SessionStatus contains a summary of the controller's current state.
type SessionStatus struct {
	State           SessionState   `json:"state"`
	Baseline        float64        `json:"baseline,omitzero"`     // Ambient-noise baseline (>=1 once calibrated)
	CountdownMs     int64          `json:"countdown_ms,omitzero"` // Calibration time remaining
	Tightness       int            `json:"tightness"`             // Current pause tightness [-5, 5]
	PauseDelayMs    int64          `json:"pause_delay_ms"`        // Effective debounce delay
	ManualOverride  bool           `json:"manual_override"`       // True while manual pause suppresses auto-resume
	PausePending    bool           `json:"pause_pending,omitzero"`
	Volume          float64        `json:"volume"` // Most recent level sample
	Classification  Classification `json:"classification,omitzero"`
	ScriptLine      int            `json:"script_line"`         // Teleprompter cursor
	Uptime          string         `json:"uptime,omitzero"`     // Time since recording began
	LastError       string         `json:"last_error,omitzero"` // Most recent error
	Artifact        *Artifact      `json:"artifact,omitempty"`  // Present only in Stopped
	AutoPauseCount  int            `json:"auto_pause_count"`    // Pauses triggered by the gate this session
	AutoResumeCount int            `json:"auto_resume_count"`   // Resumes triggered by the gate this session
}

// AudioDevice represents an available audio input device.
type AudioDevice struct {
	ID   string `json:"id"`   // Device identifier
	Name string `json:"name"` // Device display name
}

// WSStatusResponse is sent to clients with full session and settings status.
type WSStatusResponse struct {
	Type            string        `json:"type"`             // Message type identifier
	FFmpegAvailable bool          `json:"ffmpeg_available"` // FFmpeg binary is available
	Session         SessionStatus `json:"session"`          // Session status
	Devices         []AudioDevice `json:"devices"`          // Available audio devices
	AudioInput      string        `json:"audio_input"`      // Selected audio input device
	Platform        string        `json:"platform"`         // Operating system platform
	ArtifactDir     string        `json:"artifact_dir"`     // Local artifact directory
	Codec           Codec         `json:"codec"`            // Artifact codec
	WebhookURL      string        `json:"webhook_url"`      // Webhook URL for session events
	LogPath         string        `json:"log_path"`         // Event log file path
	GraphTenantID   string        `json:"graph_tenant_id"`  // Azure AD tenant ID
	GraphClientID   string        `json:"graph_client_id"`  // App registration client ID
	GraphFromAddr   string        `json:"graph_from_address"`
	GraphRecipients string        `json:"graph_recipients"`
	APIKey          string        `json:"api_key"` // API key for the REST control API
	Version         VersionInfo   `json:"version"` // Version information
}

// WSLevelsResponse is sent to clients with volume updates at meter cadence.
type WSLevelsResponse struct {
	Type           string         `json:"type"`
	Volume         float64        `json:"volume"`
	Baseline       float64        `json:"baseline,omitzero"`
	Classification Classification `json:"classification,omitzero"`
	CountdownMs    int64          `json:"countdown_ms,omitzero"`
}

// WSTestResult is sent to clients after a test operation completes.
type WSTestResult struct {
	Type     string `json:"type"`            // Message type identifier
	TestType string `json:"test_type"`       // Type of test performed
	Success  bool   `json:"success"`         // Test succeeded
	Error    string `json:"error,omitempty"` // Error message if failed
}

// VersionInfo contains version comparison data.
type VersionInfo struct {
	Current     string `json:"current"`              // Current version
	Latest      string `json:"latest,omitempty"`     // Latest available version
	UpdateAvail bool   `json:"update_available"`     // Update is available
	Commit      string `json:"commit,omitempty"`     // Git commit hash
	BuildTime   string `json:"build_time,omitempty"` // Build timestamp
}
