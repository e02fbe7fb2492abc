package session

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quietcut/quietcut/internal/audio"
	"github.com/quietcut/quietcut/internal/config"
	"github.com/quietcut/quietcut/internal/types"
)

type fakeSource struct {
	mu       sync.Mutex
	pr       *io.PipeReader
	pw       *io.PipeWriter
	startErr error
	stopped  bool
}

func (s *fakeSource) Start() (io.Reader, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	s.pr, s.pw = io.Pipe()
	return s.pr, nil
}

func (s *fakeSource) Stop() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.pw != nil {
		s.pw.Close()
	}
	return ""
}

func (s *fakeSource) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeEncoder struct {
	mu          sync.Mutex
	paused      bool
	written     int
	stopped     bool
	stopPartial bool
	stopErr     error
	artifact    *types.Artifact
}

func (e *fakeEncoder) WriteAudio(buf []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		e.written += len(buf)
	}
	return nil
}

func (e *fakeEncoder) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = paused
}

func (e *fakeEncoder) isPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *fakeEncoder) RecordedMs() int64 { return 0 }

func (e *fakeEncoder) Stop(partial bool) (*types.Artifact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	e.stopPartial = partial
	if e.stopErr != nil {
		return nil, e.stopErr
	}
	if e.artifact == nil {
		e.artifact = &types.Artifact{Path: "recordings/test.mp3", Codec: types.CodecMP3, Partial: partial}
	}
	return e.artifact, nil
}

// levelSource is a settable spectrum for driving the meter in tests.
type levelSource struct {
	mu   sync.Mutex
	bins []byte
}

func (l *levelSource) Spectrum() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bins
}

func (l *levelSource) set(bins ...byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bins = bins
}

func newTestController(t *testing.T) (*Controller, *fakeSource, *fakeEncoder, *levelSource) {
	t.Helper()

	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	c := New(cfg, "ffmpeg", nil, nil, slog.New(slog.DiscardHandler))

	source := &fakeSource{}
	encoder := &fakeEncoder{}
	levels := &levelSource{}

	c.newSource = func() (PCMSource, error) { return source, nil }
	c.newEncoder = func() (Encoder, error) { return encoder, nil }
	c.meter = audio.NewLevelMeter(levels)

	return c, source, encoder, levels
}

// intoRecording puts the controller straight into the recording state,
// bypassing the calibration window.
func intoRecording(c *Controller, encoder *fakeEncoder, source *fakeSource, baseline float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = types.StateRecording
	c.baseline = baseline
	c.encoder = encoder
	c.source = source
	c.startTime = time.Now()
	c.stopCh = make(chan struct{})
}

func TestStartCalibrationRejectsActiveSession(t *testing.T) {
	for _, state := range []types.SessionState{types.StateCalibrating, types.StateRecording, types.StatePaused} {
		t.Run(string(state), func(t *testing.T) {
			c, _, _, _ := newTestController(t)
			c.mu.Lock()
			c.state = state
			c.mu.Unlock()

			if err := c.StartCalibration(); !errors.Is(err, ErrSessionActive) {
				t.Errorf("StartCalibration() in %s = %v, want ErrSessionActive", state, err)
			}
		})
	}
}

func TestStartCalibrationSourceFailureStaysIdle(t *testing.T) {
	c, source, _, _ := newTestController(t)
	source.startErr = ErrSourceUnavailable

	err := c.StartCalibration()
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("StartCalibration() = %v, want ErrSourceUnavailable", err)
	}
	if got := c.State(); got != types.StateIdle {
		t.Errorf("State() = %s, want idle", got)
	}
	if status := c.Status(); status.LastError == "" {
		t.Error("LastError not surfaced after source failure")
	}
}

func TestStartCalibrationBeginsCountdown(t *testing.T) {
	c, source, _, _ := newTestController(t)

	if err := c.StartCalibration(); err != nil {
		t.Fatalf("StartCalibration() error: %v", err)
	}

	if got := c.State(); got != types.StateCalibrating {
		t.Errorf("State() = %s, want calibrating", got)
	}
	status := c.Status()
	if status.CountdownMs <= 0 || status.CountdownMs > types.CalibrationWindow.Milliseconds() {
		t.Errorf("CountdownMs = %d, want within (0, %d]", status.CountdownMs, types.CalibrationWindow.Milliseconds())
	}

	// Stop during calibration aborts to idle with no artifact.
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := c.State(); got != types.StateIdle {
		t.Errorf("State() after Stop = %s, want idle", got)
	}
	status = c.Status()
	if status.Artifact != nil {
		t.Error("aborted calibration produced an artifact")
	}
	if status.LastError != "" {
		t.Errorf("LastError = %q after deliberate cancel, want empty", status.LastError)
	}

	waitFor(t, source.wasStopped, "source was not stopped")
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestAnalyzeTickAutoPause(t *testing.T) {
	c, source, encoder, _ := newTestController(t)
	intoRecording(c, encoder, source, 10)

	// Empty spectrum reads as volume 0, well below the silent threshold.
	start := time.Now()
	c.analyzeTick(start)
	if got := c.State(); got != types.StateRecording {
		t.Fatalf("paused before the debounce window elapsed, state = %s", got)
	}
	if !c.Status().PausePending {
		t.Error("PausePending = false with an armed window")
	}

	c.analyzeTick(start.Add(audio.PauseDelay(0)))
	if got := c.State(); got != types.StatePaused {
		t.Fatalf("State() = %s after sustained silence, want paused", got)
	}
	if !encoder.isPaused() {
		t.Error("encoder not paused by the gate")
	}

	status := c.Status()
	if status.AutoPauseCount != 1 {
		t.Errorf("AutoPauseCount = %d, want 1", status.AutoPauseCount)
	}
}

func TestAnalyzeTickResumeOnLoud(t *testing.T) {
	c, source, encoder, levels := newTestController(t)
	intoRecording(c, encoder, source, 10)
	c.mu.Lock()
	c.state = types.StatePaused
	c.mu.Unlock()
	encoder.SetPaused(true)

	// Loud threshold at baseline 10 is 25; a single loud sample resumes
	// without any debounce.
	levels.set(30)
	c.analyzeTick(time.Now())

	if got := c.State(); got != types.StateRecording {
		t.Fatalf("State() = %s after loud sample, want recording", got)
	}
	if encoder.isPaused() {
		t.Error("encoder still paused after gate resume")
	}
	if got := c.Status().AutoResumeCount; got != 1 {
		t.Errorf("AutoResumeCount = %d, want 1", got)
	}
}

func TestAnalyzeTickNeutralDoesNotResume(t *testing.T) {
	c, source, encoder, levels := newTestController(t)
	intoRecording(c, encoder, source, 10)
	c.mu.Lock()
	c.state = types.StatePaused
	c.mu.Unlock()
	encoder.SetPaused(true)

	// 22 sits in the dead zone between the two thresholds (20 and 25).
	levels.set(22)
	c.analyzeTick(time.Now())

	if got := c.State(); got != types.StatePaused {
		t.Errorf("State() = %s after neutral sample, want paused", got)
	}
}

func TestManualOverrideSuppressesAutoResume(t *testing.T) {
	c, source, encoder, levels := newTestController(t)
	intoRecording(c, encoder, source, 10)

	if err := c.ManualPause(); err != nil {
		t.Fatalf("ManualPause() error: %v", err)
	}
	if got := c.State(); got != types.StatePaused {
		t.Fatalf("State() = %s after manual pause, want paused", got)
	}

	levels.set(30)
	c.analyzeTick(time.Now())
	if got := c.State(); got != types.StatePaused {
		t.Errorf("State() = %s, loud audio resumed past a manual pause", got)
	}

	if err := c.ManualResume(); err != nil {
		t.Fatalf("ManualResume() error: %v", err)
	}
	if got := c.State(); got != types.StateRecording {
		t.Errorf("State() = %s after manual resume, want recording", got)
	}
	if encoder.isPaused() {
		t.Error("encoder still paused after manual resume")
	}
}

func TestManualCommandsRequireMatchingState(t *testing.T) {
	c, source, encoder, _ := newTestController(t)

	if err := c.ManualPause(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("ManualPause() while idle = %v, want ErrNotRecording", err)
	}
	if err := c.ManualResume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("ManualResume() while idle = %v, want ErrNotPaused", err)
	}

	intoRecording(c, encoder, source, 10)
	if err := c.ManualResume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("ManualResume() while recording = %v, want ErrNotPaused", err)
	}
}

func TestStopFinalizesArtifact(t *testing.T) {
	c, source, encoder, _ := newTestController(t)
	intoRecording(c, encoder, source, 12)

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	if got := c.State(); got != types.StateStopped {
		t.Errorf("State() = %s, want stopped", got)
	}
	if !source.wasStopped() {
		t.Error("capture source not stopped")
	}
	if encoder.stopPartial {
		t.Error("deliberate stop marked the artifact partial")
	}

	status := c.Status()
	if status.Artifact == nil {
		t.Fatal("no artifact after stop")
	}
	if status.Artifact.Partial {
		t.Error("artifact marked partial on deliberate stop")
	}
}

func TestStopWithoutSession(t *testing.T) {
	c, _, _, _ := newTestController(t)
	if err := c.Stop(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Stop() while idle = %v, want ErrNoSession", err)
	}
}

func TestStopEncoderFailureSurfacesError(t *testing.T) {
	c, source, encoder, _ := newTestController(t)
	encoder.stopErr = errors.New("muxer crashed")
	intoRecording(c, encoder, source, 12)

	if err := c.Stop(); err == nil {
		t.Fatal("Stop() succeeded despite encoder failure")
	}
	status := c.Status()
	if status.Artifact != nil {
		t.Error("artifact present after encoder failure")
	}
	if status.LastError == "" {
		t.Error("LastError not surfaced after encoder failure")
	}
}

func TestSourceLossFinalizesPartial(t *testing.T) {
	c, source, encoder, _ := newTestController(t)
	intoRecording(c, encoder, source, 12)

	c.handleSourceLoss(io.ErrUnexpectedEOF)

	if got := c.State(); got != types.StateStopped {
		t.Fatalf("State() = %s after source loss, want stopped", got)
	}
	if !encoder.stopPartial {
		t.Error("artifact not marked partial after source loss")
	}
	if c.Status().LastError == "" {
		t.Error("LastError not surfaced after source loss")
	}
}

func TestSourceLossDuringCalibrationAborts(t *testing.T) {
	c, _, _, _ := newTestController(t)
	if err := c.StartCalibration(); err != nil {
		t.Fatalf("StartCalibration() error: %v", err)
	}

	c.handleSourceLoss(io.ErrUnexpectedEOF)

	if got := c.State(); got != types.StateIdle {
		t.Errorf("State() = %s, want idle", got)
	}
	if c.Status().LastError == "" {
		t.Error("LastError not surfaced after calibration source loss")
	}
}

func TestResetRequiresInactiveSession(t *testing.T) {
	c, source, encoder, _ := newTestController(t)
	intoRecording(c, encoder, source, 12)

	if err := c.Reset(); !errors.Is(err, ErrSessionActive) {
		t.Errorf("Reset() while recording = %v, want ErrSessionActive", err)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset() after stop error: %v", err)
	}

	status := c.Status()
	if status.State != types.StateIdle || status.Artifact != nil || status.Baseline != 0 {
		t.Errorf("Reset left state=%s artifact=%v baseline=%v", status.State, status.Artifact, status.Baseline)
	}
}

func TestScriptCursorOnlyMidSession(t *testing.T) {
	c, source, encoder, _ := newTestController(t)

	if _, err := c.ScriptNext(); !errors.Is(err, ErrNoSession) {
		t.Errorf("ScriptNext() while idle = %v, want ErrNoSession", err)
	}

	intoRecording(c, encoder, source, 12)
	line, err := c.ScriptNext()
	if err != nil || line != 1 {
		t.Errorf("ScriptNext() = (%d, %v), want (1, nil)", line, err)
	}
	line, err = c.ScriptPrev()
	if err != nil || line != 0 {
		t.Errorf("ScriptPrev() = (%d, %v), want (0, nil)", line, err)
	}
}

func TestStatusReportsPauseDelay(t *testing.T) {
	c, _, _, _ := newTestController(t)

	status := c.Status()
	if status.PauseDelayMs != types.BasePauseDelay.Milliseconds() {
		t.Errorf("PauseDelayMs = %d, want %d", status.PauseDelayMs, types.BasePauseDelay.Milliseconds())
	}

	if err := c.SetPauseTightness(5); err != nil {
		t.Fatalf("SetPauseTightness() error: %v", err)
	}
	status = c.Status()
	want := (types.BasePauseDelay - 5*types.TightnessStep).Milliseconds()
	if status.PauseDelayMs != want {
		t.Errorf("PauseDelayMs = %d after tightness 5, want %d", status.PauseDelayMs, want)
	}
}
