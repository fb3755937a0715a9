package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/mapsgpx/internal/cache"
	"github.com/dgallion1/mapsgpx/internal/convert"
	"github.com/dgallion1/mapsgpx/internal/metrics"
	"github.com/dgallion1/mapsgpx/internal/parser"
)

// Worker processes a single conversion job.
type Worker struct {
	svc  *convert.Service
	opts parser.Options
	log  *slog.Logger
}

func NewWorker(svc *convert.Service, opts parser.Options, log *slog.Logger) *Worker {
	return &Worker{svc: svc, opts: opts, log: log}
}

// Process converts the job input and records the outcome on the job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "batch_id", job.BatchID)

	if job.Canceled() {
		log.Debug("skipping deleted job")
		return
	}
	if err := ctx.Err(); err != nil {
		w.fail(job, "queued", err)
		return
	}

	var (
		res *convert.Result
		err error
	)
	if job.Filename != "" {
		res, err = w.processFile(ctx, job)
	} else {
		job.SetContentHash(cache.ContentHashHex([]byte(string(job.Kind) + "\x00" + job.Input())))
		job.SetStatus(StatusConverting, "converting")
		res, err = w.svc.Convert(ctx, job.Kind, job.Input(), job.Name)
	}
	if err != nil {
		log.Warn("conversion failed", "error", err, "kind", convert.Classify(err))
		w.fail(job, job.Snapshot().Phase, err)
		return
	}

	job.Complete(res)
	metrics.JobsFinished.WithLabelValues(string(StatusCompleted)).Inc()
	log.Info("conversion complete",
		"waypoints", res.Summary.Waypoints,
		"points", res.Summary.Points,
		"cached", res.Cached)
}

func (w *Worker) processFile(ctx context.Context, job *Job) (*convert.Result, error) {
	data := job.FileData()
	job.SetContentHash(cache.ContentHashHex(data))

	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.opts)
	if err != nil {
		return nil, err
	}
	r, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", job.Filename, err)
	}

	job.SetStatus(StatusConverting, "converting")
	return w.svc.ConvertRoute(ctx, "file", r, job.Name)
}

func (w *Worker) fail(job *Job, phase string, err error) {
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
	metrics.JobsFinished.WithLabelValues(string(StatusFailed)).Inc()
}
