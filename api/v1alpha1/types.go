package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// JobType selects the domain importer used for a migration job.
type JobType string

const (
	JobTypePatients     JobType = "patients"
	JobTypeAppointments JobType = "appointments"
	JobTypeClinical     JobType = "clinical"
	JobTypeFinancial    JobType = "financial"
)

// JobStatus is the lifecycle state of a migration job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusRunning    JobStatus = "running"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRolledBack JobStatus = "rolled_back"
)

// InputFormat is the declared encoding of an uploaded source file.
type InputFormat string

const (
	InputFormatCSV  InputFormat = "csv"
	InputFormatJSON InputFormat = "json"
)

// EntityType identifies the kind of record a ledger entry points at.
type EntityType string

const (
	EntityTypePatient         EntityType = "patient"
	EntityTypeAppointment     EntityType = "appointment"
	EntityTypeClinicalRecord  EntityType = "clinical_record"
	EntityTypeFinancialRecord EntityType = "financial_record"
)

// JobStats holds the row counters of a migration job. Counters only ever
// grow while the job is running; once the job reaches a terminal status
// Total == Imported + Failed + Skipped.
type JobStats struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// RowError describes a single failed row. RowIndex is zero-based in the
// order rows were read from the source file.
type RowError struct {
	RowIndex int    `json:"row_index"`
	Message  string `json:"message"`
}

// Job is the wire representation of a migration job.
type Job struct {
	Id            uuid.UUID   `json:"id"`
	Type          JobType     `json:"type"`
	Status        JobStatus   `json:"status"`
	InputFormat   InputFormat `json:"input_format"`
	SourceName    *string     `json:"source_name,omitempty"`
	Stats         *JobStats   `json:"stats,omitempty"`
	Errors        []RowError  `json:"errors,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	StartedAt     *time.Time  `json:"started_at,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	RolledBackAt  *time.Time  `json:"rolled_back_at,omitempty"`
	RollbackError *string     `json:"rollback_error,omitempty"`
}

// JobList is returned by the list endpoint.
type JobList []Job

// JobCreate is the body of the create-job request.
type JobCreate struct {
	Type        JobType     `json:"type" validate:"required,job_type"`
	InputFormat InputFormat `json:"input_format" validate:"required,input_format"`
	SourceName  *string     `json:"source_name,omitempty" validate:"omitempty,source_name"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"request_id,omitempty"`
}
