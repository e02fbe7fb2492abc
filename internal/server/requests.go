package server

// Request types for WebSocket commands with validation tags.
// These types define the expected input for each command and use
// go-playground/validator struct tags for automatic validation.

// --- Session commands ---

// TightnessRequest is the request body for session/tightness.
type TightnessRequest struct {
	Tightness int `json:"tightness" validate:"gte=-5,lte=5"`
}

// --- Audio settings ---

// AudioUpdateRequest is the request body for settings/audio.
type AudioUpdateRequest struct {
	Input string `json:"input" validate:"omitempty,max=256"`
}

// --- Recording settings ---

// RecordingUpdateRequest is the request body for settings/recording.
type RecordingUpdateRequest struct {
	Codec             string `json:"codec" validate:"omitempty,oneof=wav mp3 ogg"`
	ArtifactDir       string `json:"artifact_dir" validate:"omitempty,max=4096"`
	S3Endpoint        string `json:"s3_endpoint" validate:"omitempty,max=2048"`
	S3Bucket          string `json:"s3_bucket" validate:"omitempty,max=63"`
	S3AccessKeyID     string `json:"s3_access_key_id" validate:"omitempty,max=128"`
	S3SecretAccessKey string `json:"s3_secret_access_key" validate:"omitempty,max=256"`
}

// S3TestRequest is the request body for settings/test-s3.
type S3TestRequest struct {
	Endpoint  string `json:"s3_endpoint" validate:"omitempty,max=2048"`
	Bucket    string `json:"s3_bucket" validate:"required,max=63"`
	AccessKey string `json:"s3_access_key_id" validate:"required,max=128"`
	SecretKey string `json:"s3_secret_access_key" validate:"required,max=256"`
}

// --- Notification settings ---

// WebhookUpdateRequest is the request body for notifications/webhook/update.
type WebhookUpdateRequest struct {
	URL string `json:"url" validate:"omitempty,max=2048"`
}

// LogUpdateRequest is the request body for notifications/log/update.
type LogUpdateRequest struct {
	Path string `json:"path" validate:"omitempty,max=4096"`
}

// EmailUpdateRequest is the request body for notifications/email/update.
type EmailUpdateRequest struct {
	TenantID     string `json:"tenant_id" validate:"omitempty,max=100"`
	ClientID     string `json:"client_id" validate:"omitempty,max=100"`
	ClientSecret string `json:"client_secret" validate:"omitempty,max=500"`
	FromAddress  string `json:"from_address" validate:"omitempty,max=254"`
	Recipients   string `json:"recipients" validate:"omitempty,max=1000"`
}

// --- Event log ---

// EventLogViewRequest is the request body for events/view.
type EventLogViewRequest struct {
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=500"`
	Offset int    `json:"offset" validate:"omitempty,gte=0"`
	Filter string `json:"filter" validate:"omitempty,oneof=session gate artifact"`
}
