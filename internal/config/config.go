// Package config loads the YAML configuration shared by the pipeline,
// evaluation and server binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Paths struct {
		AudioDir     string `yaml:"audio_dir"`
		ProcessedDir string `yaml:"processed_dir"`
		ElanDir      string `yaml:"elan_dir"`
		ReportsDir   string `yaml:"reports_dir"`
		HumanFile    string `yaml:"human_file"`
	} `yaml:"paths"`

	Storage struct {
		TempDir  string `yaml:"temp_dir"`
		Database string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Transcription struct {
		Provider        string `yaml:"provider"`
		LanguageCode    string `yaml:"language_code"`
		MinSpeakers     int    `yaml:"min_speakers"`
		MaxSpeakers     int    `yaml:"max_speakers"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"transcription"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		TopicScored   string   `yaml:"topic_scored"`
		TopicRun      string   `yaml:"topic_run"`
		TopicArtifact string   `yaml:"topic_artifact"`
		Principal     string   `yaml:"principal"`
	} `yaml:"kafka"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

// Providers accepted in transcription.provider.
const (
	ProviderSidecar = "sidecar"
	ProviderGoogle  = "google"
)

// Default returns the built-in configuration.
func Default() *Config {
	var c Config

	c.Server.Port = 8080
	c.Server.Host = "0.0.0.0"
	c.Workers.Count = 4

	c.Paths.AudioDir = "data/audio"
	c.Paths.ProcessedDir = "data/processed"
	c.Paths.ElanDir = "data/elan_files"
	c.Paths.ReportsDir = "data/reports"

	c.Storage.TempDir = "temp"
	c.Storage.Database = "data/runs.db"

	c.Cleanup.IntervalMinutes = 30
	c.Cleanup.MaxAgeHours = 24

	c.Transcription.Provider = ProviderSidecar
	c.Transcription.LanguageCode = "en-US"
	c.Transcription.MinSpeakers = 2
	c.Transcription.MaxSpeakers = 2
	c.Transcription.TimeoutSeconds = 600

	c.GoogleDrive.CredentialsFile = "credentials.json"
	c.GoogleDrive.TokenFile = "token.json"
	c.GoogleDrive.FolderName = "Diarization"

	c.Kafka.TopicScored = "diarization.recording.scored"
	c.Kafka.TopicRun = "diarization.run.completed"
	c.Kafka.TopicArtifact = "diarization.artifact.written"
	c.Kafka.Principal = "call-diarization"

	c.Logging.Level = "info"
	c.Logging.Format = "json"

	c.Limits.MaxFileSizeMB = 50

	return &c
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("WORKERS_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WORKERS_COUNT: %w", err)
		}
		c.Workers.Count = n
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = n
	}
	if v := os.Getenv("ZEROLOG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Kafka.Brokers = brokers
		c.Kafka.Enabled = len(brokers) > 0
	}
	return nil
}

// Validate rejects configurations the binaries cannot run with.
func (c *Config) Validate() error {
	if c.Workers.Count <= 0 {
		return fmt.Errorf("workers.count must be positive, got %d", c.Workers.Count)
	}
	dirs := map[string]string{
		"paths.processed_dir": c.Paths.ProcessedDir,
		"paths.elan_dir":      c.Paths.ElanDir,
		"paths.reports_dir":   c.Paths.ReportsDir,
		"storage.temp_dir":    c.Storage.TempDir,
	}
	for name, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	switch c.Transcription.Provider {
	case ProviderSidecar, ProviderGoogle:
	default:
		return fmt.Errorf("unknown transcription provider %q", c.Transcription.Provider)
	}
	if c.Transcription.MinSpeakers > c.Transcription.MaxSpeakers {
		return fmt.Errorf("transcription.min_speakers %d exceeds max_speakers %d",
			c.Transcription.MinSpeakers, c.Transcription.MaxSpeakers)
	}
	return nil
}
