package server

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/quietcut/quietcut/internal/config"
	"github.com/quietcut/quietcut/internal/notify"
	"github.com/quietcut/quietcut/internal/session"
)

// MaxLogEntries is the maximum number of event log entries returned per view.
const MaxLogEntries = 100

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg             *config.Config
	controller      *session.Controller
	notifier        *notify.SessionNotifier
	eventLogPath    string
	ffmpegAvailable bool
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(cfg *config.Config, ctrl *session.Controller, notifier *notify.SessionNotifier, eventLogPath string, ffmpegAvailable bool) *CommandHandler {
	return &CommandHandler{
		cfg:             cfg,
		controller:      ctrl,
		notifier:        notifier,
		eventLogPath:    eventLogPath,
		ffmpegAvailable: ffmpegAvailable,
	}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "session/start",
// "notifications/webhook/update").
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	parts := strings.SplitN(cmd.Type, "/", 3)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	subaction := ""
	if len(parts) > 2 {
		subaction = parts[2]
	}

	switch namespace {
	case "session":
		h.handleSession(action, cmd, send)
	case "script":
		h.handleScript(action, cmd, send)
	case "settings":
		h.handleSettings(action, cmd, send)
	case "notifications":
		h.handleNotifications(action, subaction, cmd, send)
	case "events":
		h.handleEvents(action, cmd, send)
	case "status":
		h.handleStatus(action)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// --- Namespace routers ---

// handleSession routes session/* commands
func (h *CommandHandler) handleSession(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "start":
		h.handleSessionStart(cmd, send)
	case "pause":
		h.handleSessionPause(cmd, send)
	case "resume":
		h.handleSessionResume(cmd, send)
	case "stop":
		h.handleSessionStop(cmd, send)
	case "reset":
		h.handleSessionReset(cmd, send)
	case "tightness":
		h.handleSessionTightness(cmd, send)
	default:
		slog.Warn("unknown session action", "action", action)
	}
}

// handleScript routes script/* commands
func (h *CommandHandler) handleScript(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "next":
		h.handleScriptMove(cmd, send, h.controller.ScriptNext)
	case "prev":
		h.handleScriptMove(cmd, send, h.controller.ScriptPrev)
	default:
		slog.Warn("unknown script action", "action", action)
	}
}

// handleSettings routes settings/* commands
func (h *CommandHandler) handleSettings(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "audio":
		h.handleAudioUpdate(cmd, send)
	case "recording":
		h.handleRecordingUpdate(cmd, send)
	case "test-s3":
		h.handleTestS3(cmd, send)
	case "regenerate-key":
		h.handleRegenerateAPIKey(cmd, send)
	default:
		slog.Warn("unknown settings action", "action", action)
	}
}

// handleNotifications routes notifications/*/* commands
func (h *CommandHandler) handleNotifications(action, subaction string, cmd WSCommand, send chan<- any) {
	switch action {
	case "webhook":
		switch subaction {
		case "update":
			h.handleWebhookUpdate(cmd, send)
		case "test":
			h.handleTestWebhook(cmd, send)
		default:
			slog.Warn("unknown webhook action", "subaction", subaction)
		}
	case "log":
		switch subaction {
		case "update":
			h.handleLogUpdate(cmd, send)
		case "test":
			h.handleTestLog(cmd, send)
		default:
			slog.Warn("unknown log action", "subaction", subaction)
		}
	case "email":
		switch subaction {
		case "update":
			h.handleEmailUpdate(cmd, send)
		case "test":
			h.handleTestEmail(cmd, send)
		default:
			slog.Warn("unknown email action", "subaction", subaction)
		}
	default:
		slog.Warn("unknown notifications action", "action", action)
	}
}

// handleEvents routes events/* commands
func (h *CommandHandler) handleEvents(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "view":
		h.handleEventsView(cmd, send)
	default:
		slog.Warn("unknown events action", "action", action)
	}
}

// handleStatus routes status/* commands
func (h *CommandHandler) handleStatus(action string) {
	switch action {
	case "get":
		// Status is sent automatically; explicit get triggers an immediate update
		slog.Debug("status/get received, status update will be triggered")
	default:
		slog.Warn("unknown status action", "action", action)
	}
}
