// Package recording writes gated PCM audio to an encoded artifact file and
// optionally uploads the result to S3-compatible storage.
package recording

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/quietcut/quietcut/internal/types"
	"github.com/quietcut/quietcut/internal/util"
)

// Sentinel errors for encode session failures.
var (
	// ErrNotEncoding indicates no encode session is active.
	ErrNotEncoding = errors.New("no active encode session")
	// ErrEncodingFailure indicates the encoder process failed.
	ErrEncodingFailure = errors.New("encoder process failed")
)

// bytesPerSecond is the PCM input rate (S16LE mono at the capture sample rate).
const bytesPerSecond = types.SampleRate * types.Channels * 2

// Session encodes a single recording to a local artifact file. PCM written
// while the session is paused is discarded, so silent gaps never reach the
// output timeline.
type Session struct {
	mu           sync.Mutex
	cmd          *exec.Cmd
	stdin        io.WriteCloser
	path         string
	codec        types.Codec
	startedAt    time.Time
	paused       bool
	bytesWritten int64
	waitErr      chan error
	logger       *slog.Logger
}

// Config holds the parameters for starting an encode session.
type Config struct {
	FFmpegPath  string      // FFmpeg binary path
	ArtifactDir string      // Directory for the output file
	Codec       types.Codec // Output codec
	Name        string      // Base name for the output file (timestamp when empty)
}

// Start spawns the FFmpeg encoder and begins a new artifact.
func Start(cfg Config, logger *slog.Logger) (*Session, error) {
	if err := os.MkdirAll(cfg.ArtifactDir, 0o755); err != nil {
		return nil, util.WrapError("create artifact directory", err)
	}

	preset := types.PresetFor(cfg.Codec)
	name := cfg.Name
	if name == "" {
		name = time.Now().UTC().Format("20060102-150405")
	}
	path := filepath.Join(cfg.ArtifactDir, fmt.Sprintf("%s.%s", name, preset.Extension))

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", types.SampleRate),
		"-ac", fmt.Sprintf("%d", types.Channels),
		"-i", "pipe:0",
		"-c:a",
	}
	args = append(args, preset.Args...)
	args = append(args, "-f", preset.Format, "-y", path)

	cmd := exec.Command(cfg.FFmpegPath, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, util.WrapError("create encoder stdin pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, util.WrapError("start encoder", err)
	}

	s := &Session{
		cmd:       cmd,
		stdin:     stdin,
		path:      path,
		codec:     cfg.Codec,
		startedAt: time.Now(),
		waitErr:   make(chan error, 1),
		logger:    logger,
	}
	go func() { s.waitErr <- cmd.Wait() }()

	logger.Info("Encode session started", "path", path, "codec", cfg.Codec)
	return s, nil
}

// WriteAudio feeds PCM to the encoder. Writes are dropped while paused.
func (s *Session) WriteAudio(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin == nil {
		return ErrNotEncoding
	}
	if s.paused {
		return nil
	}

	n, err := s.stdin.Write(buf)
	s.bytesWritten += int64(n)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	return nil
}

// SetPaused toggles whether incoming PCM reaches the encoder.
func (s *Session) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// RecordedMs returns the milliseconds of audio written so far.
func (s *Session) RecordedMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesWritten * 1000 / bytesPerSecond
}

// Stop closes the encoder input, waits for FFmpeg to flush, and returns the
// finalized artifact. Partial marks artifacts cut short by source loss.
func (s *Session) Stop(partial bool) (*types.Artifact, error) {
	s.mu.Lock()
	stdin := s.stdin
	s.stdin = nil
	s.mu.Unlock()

	if stdin == nil {
		return nil, ErrNotEncoding
	}
	if err := stdin.Close(); err != nil {
		s.logger.Warn("Failed to close encoder stdin", "error", err)
	}

	select {
	case err := <-s.waitErr:
		if err != nil {
			s.logger.Error("Encoder exited with error", "error", err)
		}
	case <-time.After(types.ShutdownTimeout):
		s.logger.Warn("Encoder did not exit in time, killing")
		if err := s.cmd.Process.Kill(); err != nil {
			s.logger.Error("Failed to kill encoder", "error", err)
		}
		<-s.waitErr
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: artifact missing: %v", ErrEncodingFailure, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: artifact is empty", ErrEncodingFailure)
	}

	s.mu.Lock()
	recordedMs := s.bytesWritten * 1000 / bytesPerSecond
	s.mu.Unlock()

	artifact := &types.Artifact{
		Path:       s.path,
		SizeBytes:  info.Size(),
		Codec:      s.codec,
		CreatedAt:  util.TimestampUTC(),
		Partial:    partial,
		RecordedMs: recordedMs,
	}

	s.logger.Info("Encode session finished",
		"path", s.path,
		"size", info.Size(),
		"recorded_ms", recordedMs,
		"partial", partial)

	return artifact, nil
}
