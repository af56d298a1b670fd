// Package queue runs per-recording jobs on a fixed pool of workers.
package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/call-diarization/internal/observability/metrics"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

const queueSize = 100

// WorkerPool manages a pool of workers processing recording jobs
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	log         zerolog.Logger
	metrics     *metrics.Metrics

	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewWorkerPool creates a new worker pool. A nil m uses the default metrics.
func NewWorkerPool(workerCount int, log zerolog.Logger, m *metrics.Metrics) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, queueSize),
		workerCount: workerCount,
		log:         log.With().Str("component", "queue").Logger(),
		metrics:     m,
	}
}

// Start initializes all workers. Jobs picked up after ctx is done fail with
// the context error without running.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.startOnce.Do(func() {
		wp.log.Debug().Int("workers", wp.workerCount).Msg("Starting worker pool")
		for i := 0; i < wp.workerCount; i++ {
			wp.wg.Add(1)
			go wp.worker(ctx, i)
		}
	})
}

// EnqueueJob adds a job to the queue, blocking while the queue is full.
// It must not be called after Close.
func (wp *WorkerPool) EnqueueJob(job *Job) {
	job.Status = types.StatusQueued
	wp.jobQueue <- job
	wp.log.Debug().
		Str("job_id", job.ID).
		Str("kind", job.Kind).
		Str("recording_id", job.RecordingID).
		Msg("Job enqueued")
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.closeOnce.Do(func() {
		close(wp.jobQueue)
	})
	wp.wg.Wait()
}

// Run starts the pool, processes jobs and waits for all of them. The pool
// cannot be reused afterwards.
func (wp *WorkerPool) Run(ctx context.Context, jobs []*Job) []*Job {
	wp.Start(ctx)
	go func() {
		for _, j := range jobs {
			wp.EnqueueJob(j)
		}
		wp.closeOnce.Do(func() {
			close(wp.jobQueue)
		})
	}()
	for _, j := range jobs {
		<-j.Done()
	}
	wp.wg.Wait()
	return jobs
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		wp.processJob(ctx, id, job)
	}
}

func (wp *WorkerPool) processJob(ctx context.Context, workerID int, job *Job) {
	start := time.Now()
	log := wp.log.With().
		Int("worker", workerID).
		Str("job_id", job.ID).
		Str("recording_id", job.RecordingID).
		Logger()

	wp.metrics.RecordJobStart()
	job.Status = types.StatusProcessing

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Job panicked")
			wp.metrics.RecordJobPanic()
			job.Error = fmt.Errorf("worker panic: %v", r)
		}

		if job.Error != nil {
			job.Status = types.StatusFailed
		} else {
			job.Status = types.StatusCompleted
		}
		job.FinishedAt = time.Now()
		wp.metrics.RecordJobEnd(job.Kind, job.Status, time.Since(start).Seconds())
		close(job.done)
	}()

	if err := ctx.Err(); err != nil {
		job.Error = err
		return
	}
	if job.task == nil {
		job.Error = fmt.Errorf("job %s has no task", job.ID)
		return
	}

	if err := job.task(ctx); err != nil {
		log.Warn().Err(err).Str("kind", job.Kind).Msg("Job failed")
		job.Error = err
		return
	}
	log.Debug().Str("kind", job.Kind).Dur("elapsed", time.Since(start)).Msg("Job completed")
}
