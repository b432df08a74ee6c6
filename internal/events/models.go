package events

import (
	api "github.com/clinicore/migration-engine/api/v1alpha1"
)

// JobEvent is emitted whenever a migration job starts, reaches a terminal
// status, or is rolled back, so surrounding services can observe progress
// without polling the registry.
type JobEvent struct {
	JobID  string        `json:"job_id"`
	OrgID  string        `json:"org_id"`
	Type   api.JobType   `json:"type"`
	Status api.JobStatus `json:"status"`
	Stats  api.JobStats  `json:"stats"`
}
