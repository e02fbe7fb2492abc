package server

import (
	"log/slog"

	"github.com/quietcut/quietcut/internal/config"
	"github.com/quietcut/quietcut/internal/recording"
	"github.com/quietcut/quietcut/internal/types"
)

// --- Audio handlers ---

// handleAudioUpdate processes a settings/audio command. The input device
// takes effect on the next session; an in-flight session keeps its pipe.
func (h *CommandHandler) handleAudioUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *AudioUpdateRequest) error {
		if req.Input == "" {
			return nil // No change requested
		}

		slog.Info("settings/audio: changing audio input", "input", req.Input)
		return h.cfg.SetAudioInput(req.Input)
	})
}

// --- Recording handlers ---

// handleRecordingUpdate processes a settings/recording command.
func (h *CommandHandler) handleRecordingUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *RecordingUpdateRequest) error {
		if req.Codec != "" {
			if err := h.cfg.SetCodec(types.Codec(req.Codec)); err != nil {
				return err
			}
		}
		if req.ArtifactDir != "" {
			if err := h.cfg.SetArtifactDir(req.ArtifactDir); err != nil {
				return err
			}
		}
		if req.S3Bucket != "" || req.S3Endpoint != "" || req.S3AccessKeyID != "" || req.S3SecretAccessKey != "" {
			return h.cfg.SetS3Config(req.S3Endpoint, req.S3Bucket, req.S3AccessKeyID, req.S3SecretAccessKey)
		}
		return nil
	})
}

// handleTestS3 processes a settings/test-s3 command. The connection test does
// a round-trip upload, so it runs async.
func (h *CommandHandler) handleTestS3(cmd WSCommand, send chan<- any) {
	var req S3TestRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	// Blank secret means "use the stored one", so the UI can test without
	// re-entering credentials.
	secretKey := req.SecretKey
	if secretKey == "" {
		secretKey = h.cfg.Snapshot().S3SecretAccessKey
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		err := recording.TestS3Connection(&recording.S3Config{
			Endpoint:        req.Endpoint,
			Bucket:          req.Bucket,
			AccessKeyID:     req.AccessKey,
			SecretAccessKey: secretKey,
		})
		return nil, err
	})
}

// handleRegenerateAPIKey processes a settings/regenerate-key command.
func (h *CommandHandler) handleRegenerateAPIKey(cmd WSCommand, send chan<- any) {
	key, err := config.GenerateAPIKey()
	if err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	if err := h.cfg.SetAPIKey(key); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, map[string]string{"api_key": key})
}
