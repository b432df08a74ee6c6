package service

import (
	"context"
	"errors"
	"io"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/blob"
	"github.com/clinicore/migration-engine/internal/migration"
	"github.com/clinicore/migration-engine/internal/service/mappers"
	"github.com/clinicore/migration-engine/internal/store"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MigrationService is the application layer over the job registry, the blob
// store, the orchestrator and the rollback engine. All lookups carry the
// caller's organization; a job of another organization behaves like a job
// that does not exist.
type MigrationService struct {
	store        store.Store
	blobs        blob.Store
	orchestrator *migration.Orchestrator
	rollback     *migration.RollbackEngine
}

func NewMigrationService(
	st store.Store,
	blobs blob.Store,
	orchestrator *migration.Orchestrator,
	rollback *migration.RollbackEngine,
) *MigrationService {
	return &MigrationService{
		store:        st,
		blobs:        blobs,
		orchestrator: orchestrator,
		rollback:     rollback,
	}
}

func (s *MigrationService) CreateJob(ctx context.Context, orgID string, resource *api.JobCreate) (*model.Job, error) {
	job, err := s.store.Job().Create(ctx, mappers.JobFromApi(uuid.New(), orgID, resource))
	if err != nil {
		return nil, err
	}

	zap.S().Named("migration_service").Infow("job created",
		"job_id", job.ID, "org_id", orgID, "type", job.Type, "format", job.InputFormat)
	return job, nil
}

func (s *MigrationService) ListJobs(ctx context.Context, orgID string) (model.JobList, error) {
	return s.store.Job().List(ctx, orgID)
}

func (s *MigrationService) GetJob(ctx context.Context, orgID string, id uuid.UUID) (*model.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	if job.OrgID != orgID {
		return nil, NewErrJobNotFound(id)
	}
	return job, nil
}

// UploadAndStart stores the source file and hands the job to the worker
// pool. Only a pending job accepts an upload; the job is returned as it was
// before the workers picked it up.
func (s *MigrationService) UploadAndStart(ctx context.Context, orgID string, id uuid.UUID, r io.Reader, size int64) (*model.Job, error) {
	job, err := s.GetJob(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if job.Status != string(api.JobStatusPending) {
		return nil, NewErrInvalidJobState(id, job.Status, string(api.JobStatusPending))
	}

	if err := s.blobs.Put(ctx, migration.UploadKey(job), r, size); err != nil {
		return nil, err
	}

	if err := s.orchestrator.Enqueue(id); err != nil {
		if errors.Is(err, migration.ErrQueueFull) {
			return nil, NewErrEngineBusy()
		}
		return nil, err
	}

	return job, nil
}

// RollbackJob reverts everything a finished job imported.
func (s *MigrationService) RollbackJob(ctx context.Context, orgID string, id uuid.UUID) (*model.Job, error) {
	current, err := s.GetJob(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	job, err := s.rollback.Rollback(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return nil, NewErrInvalidJobState(id, current.Status, "completed or failed")
		}
		return nil, NewErrRollbackIncomplete(id, err)
	}
	return job, nil
}
