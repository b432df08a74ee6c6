package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/events"
	"github.com/clinicore/migration-engine/internal/store"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/clinicore/migration-engine/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RollbackEngine compensates everything a finished job created, walking the
// ledger latest-first. Each entry is removed from the ledger as soon as its
// entity is deleted, so a rollback that fails halfway can simply be retried:
// the remaining entries are exactly the entities still standing.
type RollbackEngine struct {
	store    store.Store
	producer *events.EventProducer
	log      *zap.SugaredLogger
}

func NewRollbackEngine(st store.Store, producer *events.EventProducer) *RollbackEngine {
	return &RollbackEngine{
		store:    st,
		producer: producer,
		log:      zap.S().Named("rollback"),
	}
}

// Rollback reverts the given job. Only jobs in completed or failed are
// eligible; anything else is reported as an invalid transition. The job store
// claim taken up front keeps a second rollback of the same job from running
// while this one is still compensating. When a compensating delete fails, the
// error is recorded on the job, the claim is released, the job keeps its
// terminal status, and the caller may retry.
func (e *RollbackEngine) Rollback(ctx context.Context, jobID uuid.UUID) (*model.Job, error) {
	job, err := e.store.Job().BeginRollback(ctx, jobID)
	if err != nil {
		return nil, err
	}

	entries, err := e.store.Ledger().ListByJobReversed(ctx, jobID)
	if err != nil {
		e.release(ctx, jobID)
		return nil, err
	}

	e.log.Infow("rollback started", "job_id", jobID, "entries", len(entries))

	for _, entry := range entries {
		if err := e.revertEntry(ctx, job, entry); err != nil {
			metrics.IncreaseRollbacksMetric(job.Type, metrics.RollbackFailed)
			if setErr := e.store.Job().SetRollbackError(ctx, jobID, err.Error()); setErr != nil {
				e.log.Errorw("failed to record rollback error", "job_id", jobID, "error", setErr)
			}
			e.release(ctx, jobID)
			e.log.Errorw("rollback aborted", "job_id", jobID, "error", err)
			return nil, err
		}
	}

	now := time.Now().UTC()
	updated, err := e.store.Job().Transition(ctx, jobID, api.JobStatus(job.Status), api.JobStatusRolledBack, func(j *model.Job) {
		j.RolledBackAt = &now
		j.RollbackError = nil
		j.RollbackRequested = false
	})
	if err != nil {
		e.release(ctx, jobID)
		return nil, err
	}

	metrics.IncreaseRollbacksMetric(job.Type, metrics.RollbackSucceeded)
	e.log.Infow("rollback finished", "job_id", jobID, "reverted", len(entries))
	publishJobEvent(ctx, e.producer, e.log, updated)

	return updated, nil
}

func (e *RollbackEngine) release(ctx context.Context, jobID uuid.UUID) {
	if err := e.store.Job().EndRollback(ctx, jobID); err != nil {
		e.log.Errorw("failed to release rollback claim", "job_id", jobID, "error", err)
	}
}

// revertEntry deletes the entity behind one ledger entry and retires the
// entry. An entity that is already gone still retires the entry, which keeps
// retried rollbacks from getting stuck on it.
func (e *RollbackEngine) revertEntry(ctx context.Context, job *model.Job, entry model.LedgerEntry) error {
	err := e.store.Entity().Delete(ctx, job.OrgID, api.EntityType(entry.EntityType), entry.EntityID)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("reverting %s %s: %w", entry.EntityType, entry.EntityID, err)
	}

	if err := e.store.Ledger().Remove(ctx, entry.Seq); err != nil {
		return fmt.Errorf("retiring ledger entry %d: %w", entry.Seq, err)
	}
	return nil
}
