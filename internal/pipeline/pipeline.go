// Package pipeline wires the core packages into the batch workflows:
// transcribing an audio folder into tables, assembling ELAN files from the
// tables, and scoring hypothesis tables against reference tables.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/call-diarization/internal/elan"
	"github.com/codebuildervaibhav/call-diarization/internal/events"
	"github.com/codebuildervaibhav/call-diarization/internal/logging"
	"github.com/codebuildervaibhav/call-diarization/internal/observability/metrics"
	"github.com/codebuildervaibhav/call-diarization/internal/queue"
	"github.com/codebuildervaibhav/call-diarization/internal/storage"
	"github.com/codebuildervaibhav/call-diarization/internal/transcription"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// ReportStore persists finished evaluation runs.
type ReportStore interface {
	SaveReport(report *types.Report) error
}

// Uploader copies run outputs to remote storage and returns a link to them.
type Uploader interface {
	UploadRun(ctx context.Context, runID string, paths []string) (string, error)
}

// Options carries the optional collaborators of a Pipeline.
type Options struct {
	Workers     int
	Metrics     *metrics.Metrics
	Store       ReportStore
	Events      *events.Publisher
	Uploader    Uploader
	Transcriber transcription.Transcriber
	// TranscribeTimeout bounds a single transcription attempt. Zero means
	// no timeout.
	TranscribeTimeout time.Duration
}

// Pipeline runs the batch workflows. It is safe to call its methods one at
// a time; every call uses its own worker pool.
type Pipeline struct {
	log         zerolog.Logger
	metrics     *metrics.Metrics
	sink        *storage.OutputSink
	store       ReportStore
	events      *events.Publisher
	uploader    Uploader
	transcriber transcription.Transcriber
	assembler   *elan.Assembler
	workers     int
	timeout     time.Duration

	now     func() time.Time
	backoff func(attempt int) time.Duration
}

// New creates a pipeline writing through sink.
func New(log zerolog.Logger, sink *storage.OutputSink, opts Options) *Pipeline {
	m := opts.Metrics
	if m == nil {
		m = metrics.DefaultMetrics
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		log:         logging.WithComponent(log, "pipeline"),
		metrics:     m,
		sink:        sink,
		store:       opts.Store,
		events:      opts.Events,
		uploader:    opts.Uploader,
		transcriber: opts.Transcriber,
		assembler:   elan.NewAssembler(log),
		workers:     workers,
		timeout:     opts.TranscribeTimeout,
		now:         time.Now,
		backoff:     quadraticBackoff,
	}
}

func (p *Pipeline) pool() *queue.WorkerPool {
	return queue.NewWorkerPool(p.workers, p.log, p.metrics)
}

// quadraticBackoff waits attempt² seconds before the next attempt.
func quadraticBackoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}

// retry runs fn up to attempts times, sleeping between failures.
func (p *Pipeline) retry(ctx context.Context, attempts int, what string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		wait := p.backoff(attempt)
		p.log.Warn().
			Err(err).
			Str("operation", what).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Attempt failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

// Upload sends the given files to the configured uploader, retrying
// transient failures. Without an uploader it does nothing.
func (p *Pipeline) Upload(ctx context.Context, runID string, paths []string) (string, error) {
	if p.uploader == nil || len(paths) == 0 {
		return "", nil
	}

	var link string
	err := p.retry(ctx, 3, "upload", func(ctx context.Context) error {
		var err error
		link, err = p.uploader.UploadRun(ctx, runID, paths)
		return err
	})
	if err != nil {
		return "", err
	}
	p.log.Info().Str("run_id", runID).Int("files", len(paths)).Str("link", link).Msg("Uploaded outputs")
	return link, nil
}
