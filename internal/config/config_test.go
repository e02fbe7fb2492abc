package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quietcut/quietcut/internal/types"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := New(path)
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}

	s := cfg.Snapshot()
	if s.WebPort != DefaultWebPort {
		t.Errorf("WebPort = %d, want %d", s.WebPort, DefaultWebPort)
	}
	if s.Codec != types.CodecMP3 {
		t.Errorf("Codec = %q, want mp3", s.Codec)
	}
	if s.SilenceMultiplier != types.SilenceMultiplier || s.SoundMultiplier != types.SoundMultiplier {
		t.Errorf("multipliers = %v/%v, want %v/%v",
			s.SilenceMultiplier, s.SoundMultiplier, types.SilenceMultiplier, types.SoundMultiplier)
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := writeConfigFile(t, `{"audio": {"input": "hw:1,0"}}`)

	cfg := New(path)
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := cfg.AudioInput(); got != "hw:1,0" {
		t.Errorf("AudioInput() = %q, want hw:1,0", got)
	}
	s := cfg.Snapshot()
	if s.StudioName != DefaultStudioName {
		t.Errorf("StudioName = %q, want default %q", s.StudioName, DefaultStudioName)
	}
	if s.ArtifactDir != DefaultArtifactDir {
		t.Errorf("ArtifactDir = %q, want default %q", s.ArtifactDir, DefaultArtifactDir)
	}
}

func TestLoadClampsTightness(t *testing.T) {
	tests := []struct {
		name     string
		stored   int
		expected int
	}{
		{"above range", 12, types.MaxTightness},
		{"below range", -12, types.MinTightness},
		{"in range", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, `{"gating": {"tightness": `+jsonInt(tt.stored)+`}}`)

			cfg := New(path)
			if err := cfg.Load(); err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if got := cfg.Tightness(); got != tt.expected {
				t.Errorf("Tightness() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown codec", `{"recording": {"codec": "flac"}}`},
		{"studio name too long", `{"web": {"studio_name": "` + strings.Repeat("x", 31) + `"}}`},
		{"studio name with control char", `{"web": {"studio_name": "bad\u0007name"}}`},
		{"inverted multipliers", `{"gating": {"silence_multiplier": 3.0, "sound_multiplier": 2.0}}`},
		{"malformed json", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New(writeConfigFile(t, tt.content))
			if err := cfg.Load(); err == nil {
				t.Error("Load() accepted invalid config")
			}
		})
	}
}

func TestSetTightnessClampsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := New(path)
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if err := cfg.SetTightness(9); err != nil {
		t.Fatalf("SetTightness() error: %v", err)
	}
	if got := cfg.Tightness(); got != types.MaxTightness {
		t.Errorf("Tightness() = %d, want clamped %d", got, types.MaxTightness)
	}

	reloaded := New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if got := reloaded.Tightness(); got != types.MaxTightness {
		t.Errorf("persisted Tightness = %d, want %d", got, types.MaxTightness)
	}
}

func TestSetCodecRejectsUnknown(t *testing.T) {
	cfg := New(filepath.Join(t.TempDir(), "config.json"))
	if err := cfg.SetCodec("flac"); err == nil {
		t.Error("SetCodec accepted unknown codec")
	}
}

func TestSetS3ConfigKeepsStoredSecret(t *testing.T) {
	cfg := New(filepath.Join(t.TempDir(), "config.json"))

	if err := cfg.SetS3Config("https://s3.example.com", "bucket", "key", "secret"); err != nil {
		t.Fatalf("SetS3Config() error: %v", err)
	}
	// Blank secret in an update means "keep the stored one".
	if err := cfg.SetS3Config("https://s3.example.com", "other-bucket", "key", ""); err != nil {
		t.Fatalf("SetS3Config() error: %v", err)
	}

	s := cfg.Snapshot()
	if s.S3Bucket != "other-bucket" {
		t.Errorf("S3Bucket = %q, want other-bucket", s.S3Bucket)
	}
	if s.S3SecretAccessKey != "secret" {
		t.Errorf("S3SecretAccessKey = %q, want stored secret retained", s.S3SecretAccessKey)
	}
}

func TestSnapshotHelpers(t *testing.T) {
	s := Snapshot{}
	if s.HasWebhook() || s.HasGraph() || s.HasLogPath() || s.HasS3() {
		t.Error("empty snapshot reports configured channels")
	}

	s.WebhookURL = "https://hooks.example.com/x"
	s.LogPath = "/var/log/sessions.jsonl"
	s.S3Bucket = "b"
	s.S3AccessKeyID = "k"
	s.S3SecretAccessKey = "s"
	s.GraphTenantID = "t"
	s.GraphClientID = "c"
	s.GraphClientSecret = "sec"
	s.GraphFromAddress = "from@example.com"
	s.GraphRecipients = "to@example.com"

	if !s.HasWebhook() || !s.HasGraph() || !s.HasLogPath() || !s.HasS3() {
		t.Error("fully populated snapshot reports unconfigured channels")
	}
}

func TestGenerateAPIKey(t *testing.T) {
	seen := make(map[string]bool)
	for range 5 {
		key, err := GenerateAPIKey()
		if err != nil {
			t.Fatalf("GenerateAPIKey() error: %v", err)
		}
		if len(key) != 32 {
			t.Errorf("len(key) = %d, want 32", len(key))
		}
		for _, r := range key {
			if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", r) {
				t.Errorf("key contains unexpected character %q", r)
			}
		}
		if seen[key] {
			t.Errorf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}
