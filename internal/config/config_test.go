package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("API_KEY", "shh")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != defaultPort {
		t.Fatalf("expected default port, got %d", cfg.Port)
	}
	if cfg.RetentionHours != defaultRetentionHours {
		t.Fatalf("expected default retention, got %d", cfg.RetentionHours)
	}
	if cfg.APIKey != "shh" {
		t.Fatalf("api key must come from the environment, got %q", cfg.APIKey)
	}
}

func TestLoadEmptyPathFails(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadAppliesYAMLAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := []byte("port: 9999\nretention_hours: 12\nvoice_dir: /tmp/v\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9999 || cfg.RetentionHours != 12 || cfg.VoiceDir != "/tmp/v" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.OutputDir != defaultOutputDir || cfg.FFmpegPath != defaultFFmpegPath {
		t.Fatalf("unset fields must fall back to defaults: %+v", cfg)
	}
}

func TestLoadRejectsInvalidRetention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("retention_hours: 0\nport: 8080\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for retention_hours < 1")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("port: [not-an-int"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
