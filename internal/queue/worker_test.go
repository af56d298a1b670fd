package queue

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/call-diarization/internal/observability/metrics"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

func testPool(workers int) *WorkerPool {
	return NewWorkerPool(workers, zerolog.Nop(), metrics.NewMetricsWithRegistry(prometheus.NewRegistry()))
}

func TestWorkerPool_RunsEveryJob(t *testing.T) {
	var count atomic.Int64
	var jobs []*Job
	for i := 0; i < 250; i++ {
		jobs = append(jobs, NewJob(types.KindEvaluate, "call", func(context.Context) error {
			count.Add(1)
			return nil
		}))
	}

	testPool(4).Run(context.Background(), jobs)

	if count.Load() != 250 {
		t.Errorf("expected 250 runs, got %d", count.Load())
	}
	for _, j := range jobs {
		if j.Status != types.StatusCompleted || j.Error != nil {
			t.Fatalf("job %s ended %s: %v", j.ID, j.Status, j.Error)
		}
		if j.FinishedAt.IsZero() {
			t.Errorf("job %s has no finish time", j.ID)
		}
	}
}

func TestWorkerPool_ErrorsAndPanics(t *testing.T) {
	boom := errors.New("boom")
	jobs := []*Job{
		NewJob(types.KindEvaluate, "ok", func(context.Context) error { return nil }),
		NewJob(types.KindEvaluate, "err", func(context.Context) error { return boom }),
		NewJob(types.KindEvaluate, "panic", func(context.Context) error { panic("bad slice") }),
		NewJob(types.KindEvaluate, "nil", nil),
	}

	testPool(2).Run(context.Background(), jobs)

	if jobs[0].Failed() {
		t.Errorf("expected first job to succeed: %v", jobs[0].Error)
	}
	if !jobs[1].Failed() || !errors.Is(jobs[1].Error, boom) {
		t.Errorf("expected boom, got %s %v", jobs[1].Status, jobs[1].Error)
	}
	if !jobs[2].Failed() || !strings.Contains(jobs[2].Error.Error(), "bad slice") {
		t.Errorf("expected recovered panic, got %s %v", jobs[2].Status, jobs[2].Error)
	}
	if !jobs[3].Failed() {
		t.Error("expected job without task to fail")
	}
}

func TestWorkerPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	job := NewJob(types.KindAssemble, "call1", func(context.Context) error {
		ran = true
		return nil
	})
	testPool(1).Run(ctx, []*Job{job})

	if ran {
		t.Error("expected task not to run after cancellation")
	}
	if !errors.Is(job.Error, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", job.Error)
	}
}

func TestWorkerPool_StartEnqueueClose(t *testing.T) {
	wp := testPool(0)
	wp.Start(context.Background())

	job := NewJob(types.KindTranscribe, "call1", func(context.Context) error { return nil })
	wp.EnqueueJob(job)
	wp.Close()

	select {
	case <-job.Done():
	default:
		t.Fatal("expected job to be done after Close")
	}
	if job.Status != types.StatusCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
}

func TestNewJob(t *testing.T) {
	a := NewJob(types.KindEvaluate, "call1", nil)
	b := NewJob(types.KindEvaluate, "call1", nil)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected unique ids, got %q and %q", a.ID, b.ID)
	}
	if a.Status != types.StatusQueued {
		t.Errorf("expected queued status, got %s", a.Status)
	}
}
