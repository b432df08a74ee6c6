package mappers

import (
	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/store/model"
)

func JobToApi(j model.Job) api.Job {
	stats := j.Stats()
	return api.Job{
		Id:            j.ID,
		Type:          api.JobType(j.Type),
		Status:        api.StringToJobStatus(j.Status),
		InputFormat:   api.InputFormat(j.InputFormat),
		SourceName:    j.SourceName,
		Stats:         &stats,
		Errors:        j.RowErrors(),
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
		RolledBackAt:  j.RolledBackAt,
		RollbackError: j.RollbackError,
	}
}

func JobListToApi(jobs model.JobList) api.JobList {
	jobList := []api.Job{}
	for _, j := range jobs {
		jobList = append(jobList, JobToApi(j))
	}
	return jobList
}
