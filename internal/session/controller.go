// Package session implements the silence-gated recording session: a state
// machine driven by a real-time level-analysis loop that pauses the encoder
// during sustained silence and resumes it when sound returns.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/quietcut/quietcut/internal/audio"
	"github.com/quietcut/quietcut/internal/config"
	"github.com/quietcut/quietcut/internal/eventlog"
	"github.com/quietcut/quietcut/internal/notify"
	"github.com/quietcut/quietcut/internal/recording"
	"github.com/quietcut/quietcut/internal/types"
	"github.com/quietcut/quietcut/internal/util"
)

// Sentinel errors for session operations.
var (
	// ErrSessionActive is returned when starting while a session is running.
	ErrSessionActive = errors.New("a session is already active")
	// ErrNoSession is returned when an operation requires an active session.
	ErrNoSession = errors.New("no active session")
	// ErrNotRecording is returned when pausing outside the recording state.
	ErrNotRecording = errors.New("session is not recording")
	// ErrNotPaused is returned when resuming outside the paused state.
	ErrNotPaused = errors.New("session is not paused")
	// ErrSourceUnavailable indicates the audio source is missing or was lost.
	ErrSourceUnavailable = errors.New("audio source unavailable")
	// ErrConstraintUnsatisfiable indicates the device rejected the capture configuration.
	ErrConstraintUnsatisfiable = errors.New("capture configuration rejected by device")
)

// Encoder consumes gated PCM and produces one artifact per session.
type Encoder interface {
	WriteAudio(buf []byte) error
	SetPaused(paused bool)
	RecordedMs() int64
	Stop(partial bool) (*types.Artifact, error)
}

// Controller owns the session lifecycle: Idle, Calibrating, Recording,
// Paused, Stopped. All state mutation happens under one mutex; the analysis
// loop, calibration goroutine, and command handlers all funnel through it.
type Controller struct {
	cfg        *config.Config
	ffmpegPath string
	events     *eventlog.Logger
	notifier   *notify.SessionNotifier
	logger     *slog.Logger

	analyser  *audio.Analyser
	meter     *audio.LevelMeter
	scheduler *audio.PauseScheduler
	script    ScriptCursor

	// Factories, replaceable in tests.
	newSource  func() (PCMSource, error)
	newEncoder func() (Encoder, error)

	mu              sync.Mutex
	state           types.SessionState
	baseline        float64
	countdownMs     int64
	manualOverride  bool
	volume          float64
	class           types.Classification
	lastError       string
	startTime       time.Time
	artifact        *types.Artifact
	autoPauseCount  int
	autoResumeCount int

	source    PCMSource
	encoder   Encoder
	stopCh    chan struct{}
	calCancel context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a session controller. The eventlog and notifier are optional.
func New(cfg *config.Config, ffmpegPath string, events *eventlog.Logger, notifier *notify.SessionNotifier, logger *slog.Logger) *Controller {
	analyser := audio.NewAnalyser()
	c := &Controller{
		cfg:        cfg,
		ffmpegPath: ffmpegPath,
		events:     events,
		notifier:   notifier,
		logger:     logger,
		analyser:   analyser,
		meter:      audio.NewLevelMeter(analyser),
		scheduler:  audio.NewPauseScheduler(),
		state:      types.StateIdle,
	}
	c.newSource = func() (PCMSource, error) {
		return newCaptureProcess(cfg.AudioInput(), ffmpegPath), nil
	}
	c.newEncoder = func() (Encoder, error) {
		snap := cfg.Snapshot()
		return recording.Start(recording.Config{
			FFmpegPath:  ffmpegPath,
			ArtifactDir: snap.ArtifactDir,
			Codec:       snap.Codec,
		}, logger)
	}
	return c
}

// State returns the current session state.
func (c *Controller) State() types.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartCalibration begins a new session. The capture source is acquired
// first; failure to acquire leaves the controller in Idle. On success the
// controller calibrates for the configured window and then transitions
// straight into Recording.
func (c *Controller) StartCalibration() error {
	c.mu.Lock()
	if c.state != types.StateIdle && c.state != types.StateStopped {
		c.mu.Unlock()
		return ErrSessionActive
	}

	source, err := c.newSource()
	if err != nil {
		c.lastError = err.Error()
		c.mu.Unlock()
		return err
	}

	reader, err := source.Start()
	if err != nil {
		c.lastError = err.Error()
		c.mu.Unlock()
		return err
	}

	// Fresh session: clear everything left over from the previous one.
	c.analyser.Reset()
	c.scheduler.Reset()
	c.script.Reset()
	c.source = source
	c.encoder = nil
	c.artifact = nil
	c.baseline = 0
	c.manualOverride = false
	c.autoPauseCount = 0
	c.autoResumeCount = 0
	c.lastError = ""
	c.state = types.StateCalibrating
	c.countdownMs = types.CalibrationWindow.Milliseconds()
	c.stopCh = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	c.calCancel = cancel
	c.mu.Unlock()

	c.logEvent(func() error {
		return c.events.LogSession(eventlog.CalibrationStarted, 0, 0, false, "")
	})

	c.wg.Add(3)
	go c.pumpLoop(reader)
	go c.countdownLoop(ctx)
	go c.calibrate(ctx)

	return nil
}

// calibrate measures the ambient baseline and, if the session is still
// calibrating when the window closes, starts the encoder and begins recording.
func (c *Controller) calibrate(ctx context.Context) {
	defer c.wg.Done()

	calibrator := audio.NewCalibrator(types.CalibrationWindow, types.CalibrationSampleInterval)
	baseline, err := calibrator.Run(ctx, c.meter.Sample)
	if err != nil {
		// Aborted by Stop or source loss; state transition happened there.
		return
	}

	c.mu.Lock()
	if c.state != types.StateCalibrating {
		c.mu.Unlock()
		return
	}

	encoder, err := c.newEncoder()
	if err != nil {
		c.failToIdleLocked(util.WrapError("start encoder", err))
		c.mu.Unlock()
		c.logEvent(func() error {
			return c.events.LogSession(eventlog.CalibrationAborted, baseline, 0, false, err.Error())
		})
		return
	}

	c.baseline = baseline
	c.countdownMs = 0
	c.encoder = encoder
	c.state = types.StateRecording
	c.startTime = time.Now()
	c.mu.Unlock()

	c.logger.Info("Calibration complete, recording", "baseline", baseline)
	c.logEvent(func() error {
		return c.events.LogSession(eventlog.CalibrationCompleted, baseline, 0, false, "")
	})

	c.wg.Add(1)
	go c.analysisLoop()
}

// countdownLoop updates the calibration countdown for observers.
func (c *Controller) countdownLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(types.CountdownTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			volume := c.meter.Sample()
			c.mu.Lock()
			if c.state != types.StateCalibrating {
				c.mu.Unlock()
				return
			}
			c.volume = volume
			c.countdownMs -= types.CountdownTick.Milliseconds()
			if c.countdownMs < 0 {
				c.countdownMs = 0
			}
			c.mu.Unlock()
		}
	}
}

// pumpLoop reads PCM from the capture source, feeds the analyser, and relays
// audio to the encoder once one exists. A read error is source loss.
func (c *Controller) pumpLoop(reader io.Reader) {
	defer c.wg.Done()

	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			c.analyser.ProcessPCM(buf, n)

			c.mu.Lock()
			encoder := c.encoder
			c.mu.Unlock()

			if encoder != nil {
				if werr := encoder.WriteAudio(buf[:n]); werr != nil && !errors.Is(werr, recording.ErrNotEncoding) {
					c.logger.Error("Encoder write failed", "error", werr)
				}
			}
		}
		if err != nil {
			c.handleSourceLoss(err)
			return
		}
	}
}

// handleSourceLoss reacts to the capture pipe closing. During calibration the
// session aborts to Idle; mid-session it finalizes a partial artifact.
func (c *Controller) handleSourceLoss(readErr error) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case types.StateCalibrating:
		c.mu.Lock()
		c.failToIdleLocked(fmt.Errorf("%w: %v", ErrSourceUnavailable, readErr))
		c.mu.Unlock()
		c.logEvent(func() error {
			return c.events.LogSession(eventlog.CalibrationAborted, 0, 0, false, readErr.Error())
		})

	case types.StateRecording, types.StatePaused:
		c.logger.Error("Audio source lost during session", "error", readErr)
		c.mu.Lock()
		baseline := c.baseline
		c.mu.Unlock()
		c.logEvent(func() error {
			return c.events.LogSession(eventlog.SourceLost, baseline, 0, true, readErr.Error())
		})
		c.finalize(true, fmt.Errorf("%w: %v", ErrSourceUnavailable, readErr))
		if c.notifier != nil {
			c.notifier.SourceLost(baseline)
		}

	default:
		// Stop already in progress; the pipe closing is expected.
	}
}

// failToIdleLocked aborts an in-flight calibration. Caller must hold c.mu.
func (c *Controller) failToIdleLocked(err error) {
	c.state = types.StateIdle
	c.countdownMs = 0
	c.baseline = 0
	c.lastError = err.Error()
	if c.calCancel != nil {
		c.calCancel()
		c.calCancel = nil
	}
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	if c.source != nil {
		source := c.source
		c.source = nil
		go source.Stop()
	}
	c.logger.Error("Session aborted to idle", "error", err)
}

// analysisLoop classifies the live level each tick and applies the
// scheduler's pause and resume decisions.
func (c *Controller) analysisLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(types.AnalysisTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.analyzeTick(now)
		}
	}
}

// analyzeTick performs one sample-classify-decide cycle.
func (c *Controller) analyzeTick(now time.Time) {
	volume := c.meter.Sample()
	snap := c.cfg.Snapshot()
	gate := audio.GateConfig{
		SilenceMultiplier: snap.SilenceMultiplier,
		SoundMultiplier:   snap.SoundMultiplier,
	}
	delay := audio.PauseDelay(snap.Tightness)

	c.mu.Lock()
	class := gate.Classify(volume, c.baseline)
	c.volume = volume
	c.class = class

	decision := c.scheduler.Observe(c.state, class, delay, now)
	var event eventlog.EventType
	switch decision {
	case types.DecisionPause:
		c.state = types.StatePaused
		c.encoder.SetPaused(true)
		c.autoPauseCount++
		event = eventlog.AutoPause
	case types.DecisionResume:
		// A manual pause is never undone by the gate.
		if !c.manualOverride {
			c.state = types.StateRecording
			c.encoder.SetPaused(false)
			c.autoResumeCount++
			event = eventlog.AutoResume
		}
	}
	baseline := c.baseline
	c.mu.Unlock()

	if event != "" {
		c.logger.Info("Gate decision", "event", event, "volume", volume, "baseline", baseline)
		c.logEvent(func() error {
			return c.events.LogGate(event, volume, baseline, snap.Tightness, delay.Milliseconds())
		})
	}
}

// ManualPause pauses the session on the talent's command. The pause sticks
// until ManualResume, regardless of what the gate hears.
func (c *Controller) ManualPause() error {
	c.mu.Lock()
	if c.state != types.StateRecording {
		c.mu.Unlock()
		return ErrNotRecording
	}
	c.state = types.StatePaused
	c.manualOverride = true
	c.encoder.SetPaused(true)
	c.scheduler.Reset()
	volume, baseline := c.volume, c.baseline
	c.mu.Unlock()

	c.logEvent(func() error {
		return c.events.LogGate(eventlog.ManualPause, volume, baseline, c.cfg.Tightness(), 0)
	})
	return nil
}

// ManualResume resumes a paused session and clears the manual override.
func (c *Controller) ManualResume() error {
	c.mu.Lock()
	if c.state != types.StatePaused {
		c.mu.Unlock()
		return ErrNotPaused
	}
	c.state = types.StateRecording
	c.manualOverride = false
	c.encoder.SetPaused(false)
	c.scheduler.Reset()
	volume, baseline := c.volume, c.baseline
	c.mu.Unlock()

	c.logEvent(func() error {
		return c.events.LogGate(eventlog.ManualResume, volume, baseline, c.cfg.Tightness(), 0)
	})
	return nil
}

// Stop ends the session. During calibration it aborts back to Idle with no
// artifact; during recording or pause it finalizes exactly one artifact.
func (c *Controller) Stop() error {
	c.mu.Lock()
	switch c.state {
	case types.StateCalibrating:
		c.failToIdleLocked(errors.New("calibration cancelled"))
		c.lastError = ""
		c.mu.Unlock()
		c.logEvent(func() error {
			return c.events.LogSession(eventlog.CalibrationAborted, 0, 0, false, "cancelled")
		})
		return nil

	case types.StateRecording, types.StatePaused:
		c.mu.Unlock()
		return c.finalize(false, nil)

	default:
		c.mu.Unlock()
		return ErrNoSession
	}
}

// finalize transitions to Stopped, shuts the pipeline down, and produces the
// session artifact. partial marks artifacts cut short by source loss.
func (c *Controller) finalize(partial bool, cause error) error {
	c.mu.Lock()
	if c.state != types.StateRecording && c.state != types.StatePaused {
		c.mu.Unlock()
		return ErrNoSession
	}
	c.state = types.StateStopped
	c.manualOverride = false
	if cause != nil {
		c.lastError = cause.Error()
	}
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	if c.calCancel != nil {
		c.calCancel()
		c.calCancel = nil
	}
	source := c.source
	encoder := c.encoder
	baseline := c.baseline
	c.source = nil
	c.mu.Unlock()

	if source != nil {
		if tail := source.Stop(); tail != "" {
			c.logger.Debug("Capture stderr tail", "output", tail)
		}
	}

	artifact, err := encoder.Stop(partial)
	if err != nil {
		c.mu.Lock()
		c.lastError = err.Error()
		c.encoder = nil
		c.mu.Unlock()
		c.logger.Error("Failed to finalize artifact", "error", err)
		return err
	}

	c.mu.Lock()
	c.artifact = artifact
	c.encoder = nil
	c.mu.Unlock()

	c.logEvent(func() error {
		return c.events.LogSession(eventlog.SessionStopped, baseline, artifact.RecordedMs, partial, "")
	})
	c.logEvent(func() error {
		return c.events.LogArtifact(eventlog.ArtifactFinalized,
			filepath.Base(artifact.Path), string(artifact.Codec), artifact.SizeBytes, "", "")
	})

	go c.publishArtifact(artifact)
	return nil
}

// publishArtifact uploads the artifact when S3 is configured and fires the
// finished-recording notifications.
func (c *Controller) publishArtifact(artifact *types.Artifact) {
	snap := c.cfg.Snapshot()
	if snap.HasS3() {
		recording.UploadArtifact(&recording.S3Config{
			Endpoint:        snap.S3Endpoint,
			Bucket:          snap.S3Bucket,
			AccessKeyID:     snap.S3AccessKeyID,
			SecretAccessKey: snap.S3SecretAccessKey,
		}, artifact, c.logger)

		eventType := eventlog.ArtifactUploaded
		if artifact.UploadErr != "" {
			eventType = eventlog.UploadFailed
		}
		c.logEvent(func() error {
			return c.events.LogArtifact(eventType, filepath.Base(artifact.Path),
				string(artifact.Codec), artifact.SizeBytes, artifact.URL, artifact.UploadErr)
		})
	}

	// Stop may have raced Reset; only publish the reference if the session
	// still owns it.
	c.mu.Lock()
	if c.artifact != nil && c.artifact.Path == artifact.Path {
		c.artifact = artifact
	}
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.RecordingFinished(artifact)
	}
}

// Reset returns a stopped session to Idle, dropping the artifact reference.
// The artifact file itself is kept.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != types.StateStopped && c.state != types.StateIdle {
		return ErrSessionActive
	}
	c.state = types.StateIdle
	c.baseline = 0
	c.countdownMs = 0
	c.volume = 0
	c.class = ""
	c.artifact = nil
	c.lastError = ""
	c.manualOverride = false
	c.autoPauseCount = 0
	c.autoResumeCount = 0
	c.script.Reset()
	c.scheduler.Reset()
	return nil
}

// SetPauseTightness adjusts how aggressively silence is cut. The new value
// takes effect on the next analysis tick; an armed debounce window keeps the
// delay it was armed with.
func (c *Controller) SetPauseTightness(tightness int) error {
	return c.cfg.SetTightness(tightness)
}

// ScriptNext advances the script cursor. Only valid mid-session.
func (c *Controller) ScriptNext() (int, error) {
	if !c.scriptMovable() {
		return c.script.Line(), ErrNoSession
	}
	return c.script.Next(), nil
}

// ScriptPrev moves the script cursor back. Only valid mid-session.
func (c *Controller) ScriptPrev() (int, error) {
	if !c.scriptMovable() {
		return c.script.Line(), ErrNoSession
	}
	return c.script.Prev(), nil
}

func (c *Controller) scriptMovable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == types.StateRecording || c.state == types.StatePaused
}

// Status returns a snapshot of the session for clients.
func (c *Controller) Status() types.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	tightness := audio.ClampTightness(c.cfg.Tightness())
	status := types.SessionStatus{
		State:           c.state,
		Baseline:        c.baseline,
		CountdownMs:     c.countdownMs,
		Tightness:       tightness,
		PauseDelayMs:    audio.PauseDelay(tightness).Milliseconds(),
		ManualOverride:  c.manualOverride,
		PausePending:    c.scheduler.Pending(),
		Volume:          c.volume,
		Classification:  c.class,
		ScriptLine:      c.script.Line(),
		LastError:       c.lastError,
		Artifact:        c.artifact,
		AutoPauseCount:  c.autoPauseCount,
		AutoResumeCount: c.autoResumeCount,
	}

	if (c.state == types.StateRecording || c.state == types.StatePaused) && !c.startTime.IsZero() {
		status.Uptime = time.Since(c.startTime).Round(time.Second).String()
	}
	return status
}

// Levels returns the live meter values for the websocket levels feed.
func (c *Controller) Levels() types.WSLevelsResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	return types.WSLevelsResponse{
		Type:           "levels",
		Volume:         c.volume,
		Baseline:       c.baseline,
		Classification: c.class,
		CountdownMs:    c.countdownMs,
	}
}

// logEvent writes to the event log when one is attached.
func (c *Controller) logEvent(fn func() error) {
	if c.events == nil {
		return
	}
	if err := fn(); err != nil {
		c.logger.Warn("Failed to write event log entry", "error", err)
	}
}
