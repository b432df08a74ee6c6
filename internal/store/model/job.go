package model

import (
	"encoding/json"
	"time"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/google/uuid"
)

// Job is one migration run, scoped to one domain type and one source file.
// Status only ever moves forward through the state machine; every mutation
// goes through the job store's guarded transition.
type Job struct {
	ID          uuid.UUID `gorm:"primaryKey"`
	OrgID       string    `gorm:"index;not null"`
	Type        string    `gorm:"not null"`
	InputFormat string    `gorm:"not null"`
	SourceName  *string
	Status      string `gorm:"index;not null"`

	// RollbackRequested marks a rollback in flight. It is claimed through
	// the job store and rejects a second rollback of the same job while the
	// first one is still compensating.
	RollbackRequested bool `gorm:"not null;default:false"`

	TotalRows    int `gorm:"not null;default:0"`
	ImportedRows int `gorm:"not null;default:0"`
	SkippedRows  int `gorm:"not null;default:0"`
	FailedRows   int `gorm:"not null;default:0"`

	Errors        *JSONField[[]api.RowError] `gorm:"type:jsonb"`
	RollbackError *string

	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	RolledBackAt *time.Time
}

type JobList []Job

// Stats returns the job's row counters as the API shape.
func (j *Job) Stats() api.JobStats {
	return api.JobStats{
		Total:    j.TotalRows,
		Imported: j.ImportedRows,
		Skipped:  j.SkippedRows,
		Failed:   j.FailedRows,
	}
}

// RowErrors returns the recorded row errors, never nil.
func (j *Job) RowErrors() []api.RowError {
	if j.Errors == nil {
		return []api.RowError{}
	}
	return j.Errors.Data
}

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

// LedgerEntry records one entity a job successfully created. Seq preserves
// insertion order; rollback walks entries latest-first and removes each one
// as it is compensated.
type LedgerEntry struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	JobID      uuid.UUID `gorm:"index;not null"`
	EntityType string    `gorm:"not null"`
	EntityID   uuid.UUID `gorm:"not null"`
	CreatedAt  time.Time
}
