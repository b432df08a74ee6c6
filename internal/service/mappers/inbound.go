package mappers

import (
	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/google/uuid"
)

func JobFromApi(id uuid.UUID, orgID string, resource *api.JobCreate) model.Job {
	return model.Job{
		ID:          id,
		OrgID:       orgID,
		Type:        string(resource.Type),
		InputFormat: string(resource.InputFormat),
		SourceName:  resource.SourceName,
		Status:      string(api.JobStatusPending),
	}
}
