// Package config provides application configuration management.
package config

import (
	"cmp"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/quietcut/quietcut/internal/audio"
	"github.com/quietcut/quietcut/internal/types"
	"github.com/quietcut/quietcut/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultWebPort     = 8080
	DefaultWebUsername = "admin"
	DefaultWebPassword = "quietcut"
	DefaultStudioName  = "QuietCut"
	DefaultArtifactDir = "recordings"
	DefaultCodec       = types.CodecMP3
	DefaultTightness   = 0
)

// studioNamePattern blocks control characters (and thereby CRLF injection in
// notification emails).
var studioNamePattern = regexp.MustCompile(`^[^\x00-\x1F\x7F]+$`)

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	FFmpegPath string `json:"ffmpeg_path"` // Path to FFmpeg binary (empty = use PATH)
	Port       int    `json:"port"`        // HTTP server port
	Username   string `json:"username"`    // Login username
	Password   string `json:"password"`    // Login password
}

// WebConfig holds branding settings for the control surface.
type WebConfig struct {
	StudioName string `json:"studio_name"` // Display name used in notifications
}

// AudioConfig holds audio input device settings.
type AudioConfig struct {
	Input string `json:"input"` // Audio input device identifier
}

// GatingConfig holds the silence-gate tuning parameters.
type GatingConfig struct {
	Tightness         int     `json:"tightness"`          // Pause tightness [-5, 5]
	SilenceMultiplier float64 `json:"silence_multiplier"` // Baseline multiplier for the silent threshold
	SoundMultiplier   float64 `json:"sound_multiplier"`   // Baseline multiplier for the loud threshold
}

// RecordingConfig holds artifact output and storage settings.
type RecordingConfig struct {
	APIKey      string      `json:"api_key"`      // API key for the REST control API
	ArtifactDir string      `json:"artifact_dir"` // Local directory for finished artifacts
	Codec       types.Codec `json:"codec"`        // Artifact codec (mp3, ogg, wav)

	// S3 configuration (optional; artifact stays local when unset)
	S3Endpoint        string `json:"s3_endpoint"`          // S3-compatible endpoint URL
	S3Bucket          string `json:"s3_bucket"`            // S3 bucket name
	S3AccessKeyID     string `json:"s3_access_key_id"`     // S3 access key ID
	S3SecretAccessKey string `json:"s3_secret_access_key"` // S3 secret access key
}

// WebhookConfig holds webhook notification settings.
type WebhookConfig struct {
	URL string `json:"url"` // Webhook URL for session events
}

// LogConfig holds log file notification settings.
type LogConfig struct {
	Path string `json:"path"` // Log file path for session events
}

// EmailConfig holds Microsoft Graph email notification settings.
type EmailConfig struct {
	TenantID     string `json:"tenant_id"`     // Azure AD tenant ID
	ClientID     string `json:"client_id"`     // App registration client ID
	ClientSecret string `json:"client_secret"` // App registration client secret
	FromAddress  string `json:"from_address"`  // Shared mailbox sender address
	Recipients   string `json:"recipients"`    // Comma-separated recipient addresses
}

// NotificationsConfig holds all notification channel settings.
type NotificationsConfig struct {
	Webhook WebhookConfig `json:"webhook"` // Webhook settings
	Log     LogConfig     `json:"log"`     // Log file settings
	Email   EmailConfig   `json:"email"`   // Email settings
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	System        SystemConfig        `json:"system"`
	Web           WebConfig           `json:"web"`
	Audio         AudioConfig         `json:"audio"`
	Gating        GatingConfig        `json:"gating"`
	Recording     RecordingConfig     `json:"recording"`
	Notifications NotificationsConfig `json:"notifications"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		System: SystemConfig{
			Port:     DefaultWebPort,
			Username: DefaultWebUsername,
			Password: DefaultWebPassword,
		},
		Web: WebConfig{
			StudioName: DefaultStudioName,
		},
		Gating: GatingConfig{
			Tightness:         DefaultTightness,
			SilenceMultiplier: types.SilenceMultiplier,
			SoundMultiplier:   types.SoundMultiplier,
		},
		Recording: RecordingConfig{
			ArtifactDir: DefaultArtifactDir,
			Codec:       DefaultCodec,
		},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()

	return c.validate()
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	name := c.Web.StudioName
	if name == "" || len(name) > 30 || !studioNamePattern.MatchString(name) {
		return fmt.Errorf("invalid studio_name %q: must be 1-30 printable characters", name)
	}
	if _, ok := types.CodecPresets[c.Recording.Codec]; !ok {
		return fmt.Errorf("invalid codec %q: must be one of mp3, ogg, wav", c.Recording.Codec)
	}
	if c.Gating.SilenceMultiplier >= c.Gating.SoundMultiplier {
		return fmt.Errorf("silence_multiplier (%v) must be below sound_multiplier (%v)",
			c.Gating.SilenceMultiplier, c.Gating.SoundMultiplier)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.System.Port == 0 {
		c.System.Port = DefaultWebPort
	}
	if c.System.Username == "" {
		c.System.Username = DefaultWebUsername
	}
	if c.System.Password == "" {
		c.System.Password = DefaultWebPassword
	}
	if c.Web.StudioName == "" {
		c.Web.StudioName = DefaultStudioName
	}
	if c.Gating.SilenceMultiplier == 0 {
		c.Gating.SilenceMultiplier = types.SilenceMultiplier
	}
	if c.Gating.SoundMultiplier == 0 {
		c.Gating.SoundMultiplier = types.SoundMultiplier
	}
	c.Gating.Tightness = audio.ClampTightness(c.Gating.Tightness)
	if c.Recording.ArtifactDir == "" {
		c.Recording.ArtifactDir = DefaultArtifactDir
	}
	if c.Recording.Codec == "" {
		c.Recording.Codec = DefaultCodec
	}
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// --- Getters for individual settings ---

// AudioInput returns the configured audio input device.
func (c *Config) AudioInput() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Audio.Input
}

// FFmpegPath returns the configured FFmpeg binary path.
func (c *Config) FFmpegPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.System.FFmpegPath
}

// Tightness returns the current pause tightness setting.
func (c *Config) Tightness() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Gating.Tightness
}

// APIKey returns the API key for the REST control API.
func (c *Config) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Recording.APIKey
}

// --- Setters for individual settings ---

// SetAudioInput updates the audio input device and saves the configuration.
func (c *Config) SetAudioInput(input string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.Input = input
	return c.saveLocked()
}

// SetTightness updates the pause tightness, clamping it to the supported
// range, and saves the configuration.
func (c *Config) SetTightness(tightness int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gating.Tightness = audio.ClampTightness(tightness)
	return c.saveLocked()
}

// SetCodec updates the artifact codec and saves the configuration.
func (c *Config) SetCodec(codec types.Codec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := types.CodecPresets[codec]; !ok {
		return fmt.Errorf("invalid codec %q", codec)
	}
	c.Recording.Codec = codec
	return c.saveLocked()
}

// SetArtifactDir updates the artifact directory and saves the configuration.
func (c *Config) SetArtifactDir(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Recording.ArtifactDir = dir
	return c.saveLocked()
}

// SetS3Config updates the S3 storage settings and saves the configuration.
func (c *Config) SetS3Config(endpoint, bucket, accessKeyID, secretAccessKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Recording.S3Endpoint = endpoint
	c.Recording.S3Bucket = bucket
	c.Recording.S3AccessKeyID = accessKeyID
	if secretAccessKey != "" {
		c.Recording.S3SecretAccessKey = secretAccessKey
	}
	return c.saveLocked()
}

// SetWebhookURL updates the webhook URL and saves the configuration.
func (c *Config) SetWebhookURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Webhook.URL = url
	return c.saveLocked()
}

// SetLogPath updates the log file path and saves the configuration.
func (c *Config) SetLogPath(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Log.Path = path
	return c.saveLocked()
}

// SetGraphConfig updates all Microsoft Graph/Email configuration fields and saves.
func (c *Config) SetGraphConfig(tenantID, clientID, clientSecret, fromAddress, recipients string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Email.TenantID = tenantID
	c.Notifications.Email.ClientID = clientID
	if clientSecret != "" {
		c.Notifications.Email.ClientSecret = clientSecret
	}
	c.Notifications.Email.FromAddress = fromAddress
	c.Notifications.Email.Recipients = recipients
	return c.saveLocked()
}

// SetAPIKey updates the API key and saves the configuration.
func (c *Config) SetAPIKey(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Recording.APIKey = key
	return c.saveLocked()
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	// System
	WebPort     int
	WebUser     string
	WebPassword string

	// Branding
	StudioName string

	// Audio
	AudioInput string

	// Gating
	Tightness         int
	SilenceMultiplier float64
	SoundMultiplier   float64

	// Recording
	APIKey            string
	ArtifactDir       string
	Codec             types.Codec
	S3Endpoint        string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Notifications
	WebhookURL        string
	LogPath           string
	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string
	GraphFromAddress  string
	GraphRecipients   string
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		WebPort:     c.System.Port,
		WebUser:     c.System.Username,
		WebPassword: c.System.Password,

		StudioName: c.Web.StudioName,

		AudioInput: c.Audio.Input,

		Tightness:         audio.ClampTightness(c.Gating.Tightness),
		SilenceMultiplier: cmp.Or(c.Gating.SilenceMultiplier, types.SilenceMultiplier),
		SoundMultiplier:   cmp.Or(c.Gating.SoundMultiplier, types.SoundMultiplier),

		APIKey:            c.Recording.APIKey,
		ArtifactDir:       cmp.Or(c.Recording.ArtifactDir, DefaultArtifactDir),
		Codec:             cmp.Or(c.Recording.Codec, DefaultCodec),
		S3Endpoint:        c.Recording.S3Endpoint,
		S3Bucket:          c.Recording.S3Bucket,
		S3AccessKeyID:     c.Recording.S3AccessKeyID,
		S3SecretAccessKey: c.Recording.S3SecretAccessKey,

		WebhookURL:        c.Notifications.Webhook.URL,
		LogPath:           c.Notifications.Log.Path,
		GraphTenantID:     c.Notifications.Email.TenantID,
		GraphClientID:     c.Notifications.Email.ClientID,
		GraphClientSecret: c.Notifications.Email.ClientSecret,
		GraphFromAddress:  c.Notifications.Email.FromAddress,
		GraphRecipients:   c.Notifications.Email.Recipients,
	}
}

// HasWebhook reports whether a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// HasGraph reports whether Microsoft Graph email notifications are configured.
func (s *Snapshot) HasGraph() bool {
	return s.GraphTenantID != "" && s.GraphClientID != "" && s.GraphClientSecret != "" &&
		s.GraphFromAddress != "" && s.GraphRecipients != ""
}

// HasLogPath reports whether a log path is configured.
func (s *Snapshot) HasLogPath() bool {
	return s.LogPath != ""
}

// HasS3 reports whether S3 artifact upload is configured.
func (s *Snapshot) HasS3() bool {
	return s.S3Bucket != "" && s.S3AccessKeyID != "" && s.S3SecretAccessKey != ""
}

// --- Utility functions ---

// GenerateAPIKey generates a new random 32-character alphanumeric API key.
func GenerateAPIKey() (string, error) {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 32
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		result[i] = chars[n.Int64()]
	}
	return string(result), nil
}
