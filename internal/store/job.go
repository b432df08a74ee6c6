package store

import (
	"context"
	"errors"
	"fmt"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Job is the registry of migration jobs. It is the single source of truth
// for job status: all state transitions go through Transition, whose guard
// acts as a single-writer lock per job id.
type Job interface {
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	List(ctx context.Context, orgID string) (model.JobList, error)
	Transition(ctx context.Context, id uuid.UUID, from, to api.JobStatus, mutate func(*model.Job)) (*model.Job, error)
	BeginRollback(ctx context.Context, id uuid.UUID) (*model.Job, error)
	EndRollback(ctx context.Context, id uuid.UUID) error
	UpdateProgress(ctx context.Context, id uuid.UUID, stats api.JobStats, rowErrors []api.RowError) error
	SetRollbackError(ctx context.Context, id uuid.UUID, message string) error
	InitialMigration() error
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Job{})
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	if result := s.getDB(ctx).Create(&job); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	if result := s.getDB(ctx).First(&job, "id = ?", id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) List(ctx context.Context, orgID string) (model.JobList, error) {
	var jobs model.JobList
	result := s.getDB(ctx).Where("org_id = ?", orgID).Order("created_at DESC").Find(&jobs)
	if result.Error != nil {
		return nil, fmt.Errorf("listing jobs: %w", result.Error)
	}
	return jobs, nil
}

// Transition atomically verifies the job is currently in `from`, applies the
// mutator, and commits `to`. It fails with ErrInvalidTransition when the
// current status does not match, which guards against double-start, double
// rollback and rollback of a running job.
func (s *JobStore) Transition(ctx context.Context, id uuid.UUID, from, to api.JobStatus, mutate func(*model.Job)) (*model.Job, error) {
	var job model.Job

	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		// sqlite serializes writers on its own and rejects FOR UPDATE
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		if result := q.First(&job, "id = ?", id); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return result.Error
		}

		if job.Status != string(from) {
			return fmt.Errorf("%w: job %s is %s, expected %s", ErrInvalidTransition, id, job.Status, from)
		}

		if mutate != nil {
			mutate(&job)
		}
		job.Status = string(to)

		return tx.Save(&job).Error
	})
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// BeginRollback claims the job for rollback. The claim requires a terminal
// status and no rollback already in flight, which makes it the single-writer
// gate for compensation: a second concurrent request fails with
// ErrInvalidTransition before issuing any delete. The claim is released by
// EndRollback or by the final transition to rolled_back.
func (s *JobStore) BeginRollback(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job

	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		// sqlite serializes writers on its own and rejects FOR UPDATE
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		if result := q.First(&job, "id = ?", id); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return result.Error
		}

		if !api.JobStatus(job.Status).Terminal() {
			return fmt.Errorf("%w: job %s is %s, rollback requires a finished job", ErrInvalidTransition, id, job.Status)
		}
		if job.RollbackRequested {
			return fmt.Errorf("%w: job %s already has a rollback in flight", ErrInvalidTransition, id)
		}

		job.RollbackRequested = true
		return tx.Save(&job).Error
	})
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// EndRollback releases the rollback claim without changing the job status,
// so a failed compensation can be retried.
func (s *JobStore) EndRollback(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ?", id).
		Update("rollback_requested", false)
	if result.Error != nil {
		return fmt.Errorf("releasing job rollback claim: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// UpdateProgress persists the row counters and errors of a running job. The
// status guard in the WHERE clause keeps progress writes from touching a job
// that already reached a terminal state.
func (s *JobStore) UpdateProgress(ctx context.Context, id uuid.UUID, stats api.JobStats, rowErrors []api.RowError) error {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ?", id, string(api.JobStatusRunning)).
		Updates(map[string]any{
			"total_rows":    stats.Total,
			"imported_rows": stats.Imported,
			"skipped_rows":  stats.Skipped,
			"failed_rows":   stats.Failed,
			"errors":        model.MakeJSONField(rowErrors),
		})
	if result.Error != nil {
		return fmt.Errorf("updating job progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: job %s is not running", ErrInvalidTransition, id)
	}
	return nil
}

// SetRollbackError records a failed compensation attempt without changing
// the job status, so the client can retry the rollback.
func (s *JobStore) SetRollbackError(ctx context.Context, id uuid.UUID, message string) error {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ?", id).
		Update("rollback_error", message)
	if result.Error != nil {
		return fmt.Errorf("updating job rollback error: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
