package server

import (
	"fmt"
	"log/slog"
)

// --- Session lifecycle handlers ---

// handleSessionStart processes a session/start command. Calibration and the
// transition into recording run in the background; the command acknowledges
// once the capture source is acquired.
func (h *CommandHandler) handleSessionStart(cmd WSCommand, send chan<- any) {
	if !h.ffmpegAvailable {
		SendError(send, cmd.Type, fmt.Errorf("FFmpeg is not available"))
		return
	}

	if err := h.controller.StartCalibration(); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	slog.Info("session/start: calibration started")
	SendSuccess(send, cmd.Type, nil)
}

// handleSessionPause processes a session/pause command.
func (h *CommandHandler) handleSessionPause(cmd WSCommand, send chan<- any) {
	if err := h.controller.ManualPause(); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

// handleSessionResume processes a session/resume command.
func (h *CommandHandler) handleSessionResume(cmd WSCommand, send chan<- any) {
	if err := h.controller.ManualResume(); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

// handleSessionStop processes a session/stop command. Finalizing the artifact
// can take a moment while the encoder flushes, so it runs async.
func (h *CommandHandler) handleSessionStop(cmd WSCommand, send chan<- any) {
	HandleActionAsync(cmd, send, func() (any, error) {
		if err := h.controller.Stop(); err != nil {
			return nil, err
		}
		status := h.controller.Status()
		return status.Artifact, nil
	})
}

// handleSessionReset processes a session/reset command.
func (h *CommandHandler) handleSessionReset(cmd WSCommand, send chan<- any) {
	if err := h.controller.Reset(); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

// handleSessionTightness processes a session/tightness command.
func (h *CommandHandler) handleSessionTightness(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *TightnessRequest) error {
		return h.controller.SetPauseTightness(req.Tightness)
	})
}

// handleScriptMove processes script/next and script/prev commands.
func (h *CommandHandler) handleScriptMove(cmd WSCommand, send chan<- any, move func() (int, error)) {
	line, err := move()
	if err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, map[string]int{"line": line})
}
