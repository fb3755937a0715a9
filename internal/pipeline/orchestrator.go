package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/mapsgpx/internal/config"
	"github.com/dgallion1/mapsgpx/internal/convert"
	"github.com/dgallion1/mapsgpx/internal/metrics"
	"github.com/dgallion1/mapsgpx/internal/parser"
)

var ErrQueueFull = errors.New("job queue is full")

// Orchestrator runs batch conversions on a fixed worker pool.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	svc   *convert.Service
	log   *slog.Logger
	cfg   config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, svc *convert.Service, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		svc:   svc,
		log:   log,
		cfg:   cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	opts := parser.Options{PDFFallbackPdftotext: o.cfg.PDFFallbackPdftotext}
	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.svc, opts, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					metrics.QueueDepth.Set(float64(len(o.queue)))
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		metrics.QueueDepth.Set(float64(len(o.queue)))
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		metrics.JobsFinished.WithLabelValues(string(StatusFailed)).Inc()
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// SubmitBatch assigns a shared batch id and queue positions, then queues
// every job. Jobs rejected by a full queue stay visible as failed.
func (o *Orchestrator) SubmitBatch(jobs []*Job) (string, error) {
	batchID := uuid.NewString()
	var firstErr error
	for i, job := range jobs {
		job.BatchID = batchID
		job.Index = i
		if err := o.Submit(job); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return batchID, firstErr
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// DeleteJob forgets a job. A job still queued is skipped by the worker
// that dequeues it.
func (o *Orchestrator) DeleteJob(id string) bool {
	job := o.jobs.Get(id)
	if job == nil {
		return false
	}
	job.cancel()
	return o.jobs.Delete(id)
}

// GetBatch returns the jobs of a batch in submission order.
func (o *Orchestrator) GetBatch(batchID string) []*Job {
	return o.jobs.Batch(batchID)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
