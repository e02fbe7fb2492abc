// Package notify delivers session event notifications over webhook, log file,
// and Microsoft Graph email channels.
package notify

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/quietcut/quietcut/internal/config"
	"github.com/quietcut/quietcut/internal/types"
	"github.com/quietcut/quietcut/internal/util"
)

// SessionNotifier sends notifications for recording session events.
type SessionNotifier struct {
	cfg *config.Config

	// mu protects the cached Graph client
	mu          sync.Mutex
	graphClient *GraphClient
}

// NewSessionNotifier returns a SessionNotifier configured with the given config.
func NewSessionNotifier(cfg *config.Config) *SessionNotifier {
	return &SessionNotifier{cfg: cfg}
}

// InvalidateGraphClient clears the cached Graph client.
// Call this when Graph configuration changes.
func (n *SessionNotifier) InvalidateGraphClient() {
	n.mu.Lock()
	n.graphClient = nil
	n.mu.Unlock()
}

// getOrCreateGraphClient returns the cached Graph client, creating it if needed.
func (n *SessionNotifier) getOrCreateGraphClient(cfg *GraphConfig) (*GraphClient, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.graphClient != nil {
		return n.graphClient, nil
	}

	client, err := NewGraphClient(cfg)
	if err != nil {
		return nil, err
	}
	n.graphClient = client
	return client, nil
}

// BuildGraphConfig creates a GraphConfig from the config snapshot.
//
//nolint:gocritic // hugeParam: copy is acceptable for infrequent notification events
func BuildGraphConfig(cfg config.Snapshot) *GraphConfig {
	return &GraphConfig{
		TenantID:     cfg.GraphTenantID,
		ClientID:     cfg.GraphClientID,
		ClientSecret: cfg.GraphClientSecret,
		FromAddress:  cfg.GraphFromAddress,
		Recipients:   cfg.GraphRecipients,
	}
}

// RecordingFinished notifies all configured channels about a finished artifact.
func (n *SessionNotifier) RecordingFinished(artifact *types.Artifact) {
	cfg := n.cfg.Snapshot()
	filename := filepath.Base(artifact.Path)

	if cfg.HasWebhook() {
		go logNotifyResult(func() error {
			return SendArtifactWebhook(cfg.WebhookURL, filename, string(artifact.Codec),
				artifact.SizeBytes, artifact.RecordedMs, artifact.Partial, artifact.URL)
		}, "Artifact webhook")
	}

	if cfg.HasLogPath() {
		go logNotifyResult(func() error {
			return LogArtifact(cfg.LogPath, filename, string(artifact.Codec),
				artifact.SizeBytes, artifact.RecordedMs, artifact.Partial, artifact.URL)
		}, "Artifact log")
	}

	if cfg.HasGraph() {
		go logNotifyResult(func() error {
			return n.sendArtifactEmail(BuildGraphConfig(cfg), cfg.StudioName, artifact, filename)
		}, "Artifact email")
	}
}

// SourceLost notifies all configured channels that the audio source vanished.
func (n *SessionNotifier) SourceLost(baseline float64) {
	cfg := n.cfg.Snapshot()

	if cfg.HasWebhook() {
		go logNotifyResult(func() error {
			return SendSourceLostWebhook(cfg.WebhookURL, baseline)
		}, "Source lost webhook")
	}

	if cfg.HasLogPath() {
		go logNotifyResult(func() error {
			return LogSourceLost(cfg.LogPath, baseline)
		}, "Source lost log")
	}

	if cfg.HasGraph() {
		go logNotifyResult(func() error {
			return n.sendSourceLostEmail(BuildGraphConfig(cfg), cfg.StudioName, baseline)
		}, "Source lost email")
	}
}

// sendEmail handles the common email sending infrastructure.
func (n *SessionNotifier) sendEmail(cfg *GraphConfig, subject, body string) error {
	if !IsConfigured(cfg) {
		return nil
	}

	client, err := n.getOrCreateGraphClient(cfg)
	if err != nil {
		return util.WrapError("create Graph client", err)
	}

	recipients := ParseRecipients(cfg.Recipients)
	if len(recipients) == 0 {
		return fmt.Errorf("no valid recipients")
	}

	if err := client.SendMail(recipients, subject, body); err != nil {
		return util.WrapError("send email via Graph", err)
	}

	return nil
}

// sendArtifactEmail sends a finished-recording email using the cached Graph client.
func (n *SessionNotifier) sendArtifactEmail(cfg *GraphConfig, studioName string, artifact *types.Artifact, filename string) error {
	subject := "[OK] Recording Finished - " + studioName
	if artifact.Partial {
		subject = "[WARNING] Partial Recording - " + studioName
	}
	body := fmt.Sprintf(
		"A recording session has finished.\n\n"+
			"File:     %s\n"+
			"Codec:    %s\n"+
			"Size:     %d bytes\n"+
			"Duration: %s\n"+
			"Time:     %s\n",
		filename, artifact.Codec, artifact.SizeBytes,
		util.FormatDuration(artifact.RecordedMs), util.HumanTime(),
	)
	if artifact.URL != "" {
		body += fmt.Sprintf("URL:      %s\n", artifact.URL)
	}
	if artifact.Partial {
		body += "\nThe audio source was lost mid-session. The artifact contains only the audio captured before the loss."
	}
	return n.sendEmail(cfg, subject, body)
}

// sendSourceLostEmail sends a source-loss alert using the cached Graph client.
func (n *SessionNotifier) sendSourceLostEmail(cfg *GraphConfig, studioName string, baseline float64) error {
	subject := "[ALERT] Audio Source Lost - " + studioName
	body := fmt.Sprintf(
		"The audio source disappeared during a recording session.\n\n"+
			"Baseline: %.1f\n"+
			"Time:     %s\n\n"+
			"The session was finalized with a partial artifact. Please check the audio device.",
		baseline, util.HumanTime(),
	)
	return n.sendEmail(cfg, subject, body)
}
