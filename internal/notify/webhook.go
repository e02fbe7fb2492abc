package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quietcut/quietcut/internal/util"
)

// WebhookPayload represents the data sent to webhook endpoints.
type WebhookPayload struct {
	Event       string  `json:"event"`
	Filename    string  `json:"filename,omitempty"`
	Codec       string  `json:"codec,omitempty"`
	SizeBytes   int64   `json:"size_bytes,omitempty"`
	RecordedMs  int64   `json:"recorded_ms,omitempty"`
	Partial     bool    `json:"partial,omitempty"`
	ArtifactURL string  `json:"artifact_url,omitempty"`
	Baseline    float64 `json:"baseline,omitempty"`
	Message     string  `json:"message,omitempty"`
	Timestamp   string  `json:"timestamp"`
}

// SendArtifactWebhook notifies the configured webhook of a finished recording.
func SendArtifactWebhook(webhookURL, filename, codec string, sizeBytes, recordedMs int64, partial bool, artifactURL string) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:       "recording_finished",
		Filename:    filename,
		Codec:       codec,
		SizeBytes:   sizeBytes,
		RecordedMs:  recordedMs,
		Partial:     partial,
		ArtifactURL: artifactURL,
		Timestamp:   util.TimestampUTC(),
	})
}

// SendSourceLostWebhook notifies the configured webhook that the audio source
// disappeared mid-session.
func SendSourceLostWebhook(webhookURL string, baseline float64) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     "source_lost",
		Baseline:  baseline,
		Timestamp: util.TimestampUTC(),
	})
}

// SendTestWebhook sends a test webhook notification.
func SendTestWebhook(webhookURL, studioName string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     "test",
		Message:   "This is a test notification from " + studioName,
		Timestamp: util.TimestampUTC(),
	})
}

// sendWebhook delivers a notification to the configured webhook endpoint.
func sendWebhook(webhookURL string, payload *WebhookPayload) error {
	if !util.IsConfigured(webhookURL) {
		return nil // Silently skip if not configured
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	client := &http.Client{Timeout: 10000 * time.Millisecond}
	resp, err := client.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return util.WrapError("send webhook request", err)
	}
	defer util.SafeCloseFunc(resp.Body, "webhook response body")()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
