package server

import (
	"fmt"

	"github.com/quietcut/quietcut/internal/eventlog"
	"github.com/quietcut/quietcut/internal/notify"
)

// --- Notification settings handlers ---

// handleWebhookUpdate processes a notifications/webhook/update command.
func (h *CommandHandler) handleWebhookUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *WebhookUpdateRequest) error {
		return h.cfg.SetWebhookURL(req.URL)
	})
}

// handleLogUpdate processes a notifications/log/update command.
func (h *CommandHandler) handleLogUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *LogUpdateRequest) error {
		return h.cfg.SetLogPath(req.Path)
	})
}

// handleEmailUpdate processes a notifications/email/update command.
func (h *CommandHandler) handleEmailUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *EmailUpdateRequest) error {
		if err := h.cfg.SetGraphConfig(
			req.TenantID,
			req.ClientID,
			req.ClientSecret,
			req.FromAddress,
			req.Recipients,
		); err != nil {
			return err
		}
		// The cached client holds the old credentials.
		h.notifier.InvalidateGraphClient()
		return nil
	})
}

// --- Notification test handlers ---

// handleTestWebhook processes a notifications/webhook/test command.
func (h *CommandHandler) handleTestWebhook(cmd WSCommand, send chan<- any) {
	snap := h.cfg.Snapshot()
	HandleActionAsync(cmd, send, func() (any, error) {
		return nil, notify.SendTestWebhook(snap.WebhookURL, snap.StudioName)
	})
}

// handleTestLog processes a notifications/log/test command.
func (h *CommandHandler) handleTestLog(cmd WSCommand, send chan<- any) {
	snap := h.cfg.Snapshot()
	HandleActionAsync(cmd, send, func() (any, error) {
		return nil, notify.WriteTestLog(snap.LogPath)
	})
}

// handleTestEmail processes a notifications/email/test command by validating
// the configured credentials against the Graph API.
func (h *CommandHandler) handleTestEmail(cmd WSCommand, send chan<- any) {
	snap := h.cfg.Snapshot()
	HandleActionAsync(cmd, send, func() (any, error) {
		graphCfg := notify.BuildGraphConfig(snap)
		if err := notify.ValidateConfig(graphCfg); err != nil {
			return nil, err
		}
		client, err := notify.NewGraphClient(graphCfg)
		if err != nil {
			return nil, err
		}
		if err := client.ValidateAuth(); err != nil {
			return nil, err
		}
		return nil, client.SendMail(
			notify.ParseRecipients(graphCfg.Recipients),
			"[TEST] QuietCut - "+snap.StudioName,
			fmt.Sprintf("This is a test notification from %s.", snap.StudioName),
		)
	})
}

// --- Event log handlers ---

// handleEventsView processes an events/view command.
func (h *CommandHandler) handleEventsView(cmd WSCommand, send chan<- any) {
	var req EventLogViewRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	limit := req.Limit
	if limit == 0 || limit > MaxLogEntries {
		limit = MaxLogEntries
	}

	events, hasMore, err := eventlog.ReadLast(h.eventLogPath, limit, req.Offset, eventlog.TypeFilter(req.Filter))
	if err != nil {
		SendError(send, cmd.Type, err)
		return
	}

	SendSuccess(send, cmd.Type, map[string]any{
		"events":   events,
		"has_more": hasMore,
	})
}
