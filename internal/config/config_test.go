package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{"WORKERS_COUNT", "SERVER_PORT", "ZEROLOG_LOG_LEVEL", "KAFKA_BROKERS"} {
		t.Setenv(v, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
workers:
  count: 8
paths:
  elan_dir: out/elan
transcription:
  provider: google
  max_speakers: 3
logging:
  format: console
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workers.Count != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Workers.Count)
	}
	if cfg.Paths.ElanDir != "out/elan" {
		t.Errorf("expected elan dir out/elan, got %s", cfg.Paths.ElanDir)
	}
	if cfg.Paths.ProcessedDir != "data/processed" {
		t.Errorf("expected default processed dir to survive, got %s", cfg.Paths.ProcessedDir)
	}
	if cfg.Transcription.Provider != ProviderGoogle || cfg.Transcription.MaxSpeakers != 3 {
		t.Errorf("unexpected transcription section: %+v", cfg.Transcription)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Errorf("unexpected logging section: %+v", cfg.Logging)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKERS_COUNT", "2")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ZEROLOG_LOG_LEVEL", "debug")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load(writeConfig(t, "workers:\n  count: 8\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workers.Count != 2 || cfg.Server.Port != 9090 || cfg.Logging.Level != "debug" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) || !cfg.Kafka.Enabled {
		t.Errorf("unexpected kafka section: %+v", cfg.Kafka)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  string
		body string
	}{
		{"bad yaml", "", "workers: [unterminated"},
		{"bad worker env", "many", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("WORKERS_COUNT", tt.env)
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero workers", func(c *Config) { c.Workers.Count = 0 }, "workers.count"},
		{"empty elan dir", func(c *Config) { c.Paths.ElanDir = " " }, "paths.elan_dir"},
		{"unknown provider", func(c *Config) { c.Transcription.Provider = "whisper" }, "provider"},
		{"speaker range", func(c *Config) { c.Transcription.MinSpeakers = 5 }, "min_speakers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
