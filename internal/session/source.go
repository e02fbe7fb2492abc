package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/quietcut/quietcut/internal/audio"
	"github.com/quietcut/quietcut/internal/types"
	"github.com/quietcut/quietcut/internal/util"
)

// PCMSource delivers raw S16LE PCM from an audio input.
type PCMSource interface {
	// Start launches capture and returns a reader for the PCM stream.
	Start() (io.Reader, error)
	// Stop terminates capture. It returns the tail of the capture process's
	// error output, empty when the process ended cleanly.
	Stop() string
}

// captureProcess captures PCM by running the platform capture command
// (arecord on Linux, FFmpeg elsewhere) with its stdout piped back.
type captureProcess struct {
	device     string
	ffmpegPath string

	mu        sync.Mutex
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	stderrBuf bytes.Buffer
}

func newCaptureProcess(device, ffmpegPath string) *captureProcess {
	return &captureProcess{device: device, ffmpegPath: ffmpegPath}
}

func (p *captureProcess) Start() (io.Reader, error) {
	cmdName, args, err := audio.BuildCaptureCommand(p.device, p.ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	slog.Info("starting audio capture", "command", cmdName, "input", p.device)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, cmdName, args...)

	// Declarative graceful shutdown: signal first, wait, then kill.
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = types.ShutdownTimeout

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	cmd.Stderr = &p.stderrBuf

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrConstraintUnsatisfiable, err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.cancel = cancel
	p.mu.Unlock()

	return stdoutPipe, nil
}

func (p *captureProcess) Stop() string {
	p.mu.Lock()
	cmd := p.cmd
	cancel := p.cancel
	p.cmd = nil
	p.cancel = nil
	p.mu.Unlock()

	if cmd == nil {
		return ""
	}

	cancel()
	if err := cmd.Wait(); err != nil {
		// Expected when capture is cancelled mid-stream.
		slog.Debug("capture process exited", "error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return util.ExtractLastError(p.stderrBuf.String())
}
