package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/blob"
	"github.com/clinicore/migration-engine/internal/config"
	"github.com/clinicore/migration-engine/internal/events"
	"github.com/clinicore/migration-engine/internal/store"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/clinicore/migration-engine/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	queueCapacity     = 128
	progressFlushRows = 50
)

// ErrQueueFull is returned by Enqueue when all workers are busy and the
// backlog is at capacity.
var ErrQueueFull = errors.New("job queue is full")

// UploadKey is the blob store key the uploaded source file of a job lives
// under.
func UploadKey(job *model.Job) string {
	name := "upload"
	if job.SourceName != nil && *job.SourceName != "" {
		name = *job.SourceName
	}
	return fmt.Sprintf("jobs/%s/%s", job.ID, name)
}

// Orchestrator runs migration jobs on a fixed pool of workers. Jobs are
// picked up from a bounded queue; each run moves the job pending -> running
// and finishes it in completed or failed. The status guard in the job store
// makes sure no job is ever run twice.
type Orchestrator struct {
	store    store.Store
	blobs    blob.Store
	registry *ImporterRegistry
	producer *events.EventProducer
	log      *zap.SugaredLogger

	workerCount       int
	rowTimeout        time.Duration
	fatalRepoFailures int

	queue chan uuid.UUID
	wg    sync.WaitGroup
}

func NewOrchestrator(
	st store.Store,
	blobs blob.Store,
	registry *ImporterRegistry,
	producer *events.EventProducer,
	cfg *config.Config,
) *Orchestrator {
	return &Orchestrator{
		store:             st,
		blobs:             blobs,
		registry:          registry,
		producer:          producer,
		log:               zap.S().Named("orchestrator"),
		workerCount:       cfg.Service.WorkerCount,
		rowTimeout:        cfg.Service.RowTimeout,
		fatalRepoFailures: cfg.Service.FatalRepoFailures,
		queue:             make(chan uuid.UUID, queueCapacity),
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled; use
// Wait to block until they drained their current job.
func (o *Orchestrator) Start(ctx context.Context) {
	for i := 0; i < o.workerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.worker(ctx)
		}()
	}
	o.log.Infof("orchestrator started with %d workers", o.workerCount)
}

func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Enqueue hands a pending job to the worker pool. It never blocks the
// caller.
func (o *Orchestrator) Enqueue(jobID uuid.UUID) error {
	select {
	case o.queue <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

func (o *Orchestrator) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-o.queue:
			o.runJob(ctx, jobID)
		}
	}
}

func (o *Orchestrator) runJob(ctx context.Context, jobID uuid.UUID) {
	now := time.Now().UTC()
	job, err := o.store.Job().Transition(ctx, jobID, api.JobStatusPending, api.JobStatusRunning, func(j *model.Job) {
		j.StartedAt = &now
	})
	if err != nil {
		o.log.Warnw("job not started", "job_id", jobID, "error", err)
		return
	}

	o.log.Infow("job started", "job_id", jobID, "type", job.Type, "format", job.InputFormat)
	publishJobEvent(ctx, o.producer, o.log, job)

	stats, rowErrors, runErr := o.importRows(ctx, job)
	o.finish(ctx, job, stats, rowErrors, runErr)
}

// importRows drives the row loop. Row-scoped failures are recorded and the
// loop continues; a non-nil returned error means the run aborted and the job
// must fail.
func (o *Orchestrator) importRows(ctx context.Context, job *model.Job) (api.JobStats, []api.RowError, error) {
	var stats api.JobStats
	rowErrors := []api.RowError{}

	importer, err := o.registry.Resolve(api.JobType(job.Type))
	if err != nil {
		return stats, rowErrors, err
	}

	rc, err := o.blobs.Get(ctx, UploadKey(job))
	if err != nil {
		return stats, rowErrors, fmt.Errorf("opening uploaded file: %w", err)
	}
	defer rc.Close()

	reader, err := NewRowReader(api.InputFormat(job.InputFormat), rc)
	if err != nil {
		return stats, rowErrors, err
	}

	repoFailureStreak := 0
	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			rowErr, ok := AsRowError(err)
			if !ok {
				countRemainingAsSkipped(job.Type, reader, &stats)
				return stats, rowErrors, err
			}
			stats.Total++
			stats.Failed++
			rowErrors = append(rowErrors, api.RowError{RowIndex: rowErr.RowIndex, Message: rowErr.Message})
			metrics.IncreaseRowsProcessedMetric(job.Type, metrics.RowResultFailed, 1)
		} else {
			stats.Total++

			importErr := o.importRow(ctx, importer, job, row)
			switch {
			case importErr == nil:
				stats.Imported++
				metrics.IncreaseRowsProcessedMetric(job.Type, metrics.RowResultImported, 1)
				repoFailureStreak = 0
			default:
				rowErr, ok := AsRowError(importErr)
				if !ok {
					countRemainingAsSkipped(job.Type, reader, &stats)
					return stats, rowErrors, importErr
				}
				stats.Failed++
				rowErrors = append(rowErrors, api.RowError{RowIndex: rowErr.RowIndex, Message: rowErr.Message})
				metrics.IncreaseRowsProcessedMetric(job.Type, metrics.RowResultFailed, 1)

				if rowErr.Kind == RowErrorRepository {
					repoFailureStreak++
					if repoFailureStreak >= o.fatalRepoFailures {
						countRemainingAsSkipped(job.Type, reader, &stats)
						return stats, rowErrors, fmt.Errorf("%d consecutive repository failures, aborting run", repoFailureStreak)
					}
				} else {
					repoFailureStreak = 0
				}
			}
		}

		if stats.Total%progressFlushRows == 0 {
			if err := o.store.Job().UpdateProgress(ctx, job.ID, stats, rowErrors); err != nil {
				o.log.Warnw("failed to flush job progress", "job_id", job.ID, "error", err)
			}
		}
	}

	return stats, rowErrors, nil
}

// importRow applies one row under the per-row timeout. The entity create and
// its ledger entry commit or roll back together, so the ledger never points
// at an entity that was not persisted and vice versa.
func (o *Orchestrator) importRow(ctx context.Context, importer Importer, job *model.Job, row Row) error {
	rowCtx, cancel := context.WithTimeout(ctx, o.rowTimeout)
	defer cancel()

	txCtx, err := o.store.NewTransactionContext(rowCtx)
	if err != nil {
		return NewRowRepositoryError(row.Index, err)
	}

	entry, err := importer.ImportRow(txCtx, job.OrgID, row)
	if err == nil {
		entry.JobID = job.ID
		if appendErr := o.store.Ledger().Append(txCtx, entry); appendErr != nil {
			err = NewRowRepositoryError(row.Index, appendErr)
		}
	}

	if err != nil {
		if _, rbErr := store.Rollback(txCtx); rbErr != nil {
			o.log.Errorw("failed to roll back row transaction", "job_id", job.ID, "row", row.Index, "error", rbErr)
		}
		return err
	}

	if _, err := store.Commit(txCtx); err != nil {
		return NewRowRepositoryError(row.Index, err)
	}
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, job *model.Job, stats api.JobStats, rowErrors []api.RowError, runErr error) {
	target := api.JobStatusCompleted
	if runErr != nil {
		target = api.JobStatusFailed
		// record the abort reason at the position the run stopped at
		rowErrors = append(rowErrors, api.RowError{
			RowIndex: stats.Imported + stats.Failed,
			Message:  runErr.Error(),
		})
		o.log.Errorw("job failed", "job_id", job.ID, "error", runErr)
	}

	now := time.Now().UTC()
	updated, err := o.store.Job().Transition(ctx, job.ID, api.JobStatusRunning, target, func(j *model.Job) {
		j.TotalRows = stats.Total
		j.ImportedRows = stats.Imported
		j.SkippedRows = stats.Skipped
		j.FailedRows = stats.Failed
		j.Errors = model.MakeJSONField(rowErrors)
		j.CompletedAt = &now
	})
	if err != nil {
		o.log.Errorw("failed to finalize job", "job_id", job.ID, "error", err)
		return
	}

	metrics.IncreaseJobsFinishedMetric(job.Type, string(target))
	o.log.Infow("job finished",
		"job_id", job.ID,
		"status", target,
		"total", stats.Total,
		"imported", stats.Imported,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	publishJobEvent(ctx, o.producer, o.log, updated)
}

// countRemainingAsSkipped folds the unprocessed tail of an aborted run into
// the skipped counter. Formats that buffered the payload report the exact
// count; streaming formats are drained row by row when the reader is still
// usable.
func countRemainingAsSkipped(jobType string, reader RowReader, stats *api.JobStats) {
	if n, ok := reader.Remaining(); ok {
		stats.Total += n
		stats.Skipped += n
		if n > 0 {
			metrics.IncreaseRowsProcessedMetric(jobType, metrics.RowResultSkipped, n)
		}
		return
	}

	for {
		_, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			if _, ok := AsRowError(err); !ok {
				return
			}
		}
		stats.Total++
		stats.Skipped++
		metrics.IncreaseRowsProcessedMetric(jobType, metrics.RowResultSkipped, 1)
	}
}

func publishJobEvent(ctx context.Context, producer *events.EventProducer, log *zap.SugaredLogger, job *model.Job) {
	if producer == nil {
		return
	}

	data, err := json.Marshal(events.JobEvent{
		JobID:  job.ID.String(),
		OrgID:  job.OrgID,
		Type:   api.JobType(job.Type),
		Status: api.StringToJobStatus(job.Status),
		Stats:  job.Stats(),
	})
	if err != nil {
		log.Errorw("failed to marshal job event", "job_id", job.ID, "error", err)
		return
	}

	if err := producer.Write(ctx, events.JobMessageKind, bytes.NewReader(data)); err != nil {
		log.Warnw("failed to publish job event", "job_id", job.ID, "error", err)
	}
}
