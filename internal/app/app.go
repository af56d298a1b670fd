// Package app builds the shared components of the command binaries from
// the configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/call-diarization/internal/config"
	"github.com/codebuildervaibhav/call-diarization/internal/events"
	"github.com/codebuildervaibhav/call-diarization/internal/observability/metrics"
	"github.com/codebuildervaibhav/call-diarization/internal/pipeline"
	"github.com/codebuildervaibhav/call-diarization/internal/storage"
	"github.com/codebuildervaibhav/call-diarization/internal/transcription"
	"github.com/codebuildervaibhav/call-diarization/internal/transcription/google"
)

// Options selects the optional components.
type Options struct {
	// Store opens the SQLite run history.
	Store bool
	// Transcriber creates the configured transcription provider.
	Transcriber bool
	// Drive enables uploads when Google Drive credentials are present.
	Drive bool
	// Interactive allows the Drive OAuth flow to prompt on the terminal.
	Interactive bool
	Metrics     *metrics.Metrics
}

// App holds the wired components. Close releases them.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Metrics  *metrics.Metrics
	Sink     *storage.OutputSink
	Store    *storage.RunStore
	Events   *events.Publisher
	Pipeline *pipeline.Pipeline

	closers []io.Closer
}

// New wires the components selected by opts.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	a := &App{
		Config:  cfg,
		Log:     log,
		Metrics: opts.Metrics,
		Sink:    storage.NewOutputSink(log),
	}
	if a.Metrics == nil {
		a.Metrics = metrics.DefaultMetrics
	}

	pOpts := pipeline.Options{
		Workers:           cfg.Workers.Count,
		Metrics:           a.Metrics,
		TranscribeTimeout: time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second,
	}

	if opts.Store {
		if err := a.Sink.Ensure(filepath.Dir(cfg.Storage.Database)); err != nil {
			return nil, err
		}
		store, err := storage.NewRunStore(cfg.Storage.Database)
		if err != nil {
			return nil, fmt.Errorf("open run store: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, store)
		pOpts.Store = store
	}

	a.Events = events.New(EventsConfig(cfg), log, a.Metrics)
	a.closers = append(a.closers, a.Events)
	pOpts.Events = a.Events

	if opts.Transcriber {
		tr, err := NewTranscriber(ctx, cfg, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		if c, ok := tr.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
		pOpts.Transcriber = tr
	}

	if opts.Drive {
		if dc := newDriveClient(ctx, cfg, log, opts.Interactive); dc != nil {
			pOpts.Uploader = dc
		}
	}

	a.Pipeline = pipeline.New(log, a.Sink, pOpts)
	return a, nil
}

// Close releases every opened component.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// EventsConfig maps the Kafka section onto the publisher configuration.
func EventsConfig(cfg *config.Config) *events.Config {
	return &events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicScored:   cfg.Kafka.TopicScored,
		TopicRun:      cfg.Kafka.TopicRun,
		TopicArtifact: cfg.Kafka.TopicArtifact,
		Principal:     cfg.Kafka.Principal,
	}
}

// NewTranscriber creates the configured transcription provider.
func NewTranscriber(ctx context.Context, cfg *config.Config, log zerolog.Logger) (transcription.Transcriber, error) {
	switch cfg.Transcription.Provider {
	case config.ProviderSidecar:
		return transcription.NewSidecarTranscriber(""), nil
	case config.ProviderGoogle:
		adapter, err := google.New(ctx, google.Config{
			LanguageCode:    cfg.Transcription.LanguageCode,
			MinSpeakers:     cfg.Transcription.MinSpeakers,
			MaxSpeakers:     cfg.Transcription.MaxSpeakers,
			CredentialsFile: cfg.Transcription.CredentialsFile,
			TempDir:         cfg.Storage.TempDir,
		}, log)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Transcription.Provider)
	}
}

// newDriveClient returns nil when Drive is not set up; outputs then stay local.
func newDriveClient(ctx context.Context, cfg *config.Config, log zerolog.Logger, interactive bool) *storage.DriveClient {
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err != nil {
		log.Info().Msg("Google Drive credentials not found - saving locally only")
		return nil
	}
	dc, err := storage.NewDriveClient(ctx,
		cfg.GoogleDrive.CredentialsFile,
		cfg.GoogleDrive.TokenFile,
		cfg.GoogleDrive.FolderName,
		interactive,
	)
	if err != nil {
		log.Warn().Err(err).Msg("Google Drive not available, outputs will only be saved locally")
		return nil
	}
	log.Info().Str("folder", cfg.GoogleDrive.FolderName).Msg("Google Drive integration enabled")
	return dc
}
