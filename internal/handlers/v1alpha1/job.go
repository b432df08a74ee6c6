package v1alpha1

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/handlers/validator"
	"github.com/clinicore/migration-engine/internal/service/mappers"
	"github.com/clinicore/migration-engine/pkg/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

func (h *MigrationHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body api.JobCreate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.replyError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if err := h.validator.Struct(&body); err != nil {
		h.replyError(w, r, http.StatusBadRequest, validator.Message(err))
		return
	}

	job, err := h.svc.CreateJob(ctx, middleware.OrgFromContext(ctx), &body)
	if err != nil {
		h.replyServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mappers.JobToApi(*job))
}

func (h *MigrationHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobs, err := h.svc.ListJobs(ctx, middleware.OrgFromContext(ctx))
	if err != nil {
		h.replyServiceError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.JobListToApi(jobs))
}

func (h *MigrationHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.replyError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid job id: %v", err))
		return
	}

	job, err := h.svc.GetJob(ctx, middleware.OrgFromContext(ctx), id)
	if err != nil {
		h.replyServiceError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.JobToApi(*job))
}

// UploadJobFile accepts the source file as the multipart field "file" and
// hands the job to the workers. The part is streamed straight into the blob
// store, the payload is never held in memory.
func (h *MigrationHandler) UploadJobFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.replyError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid job id: %v", err))
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		h.replyError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read multipart form: %v", err))
		return
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.replyError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read multipart form: %v", err))
			return
		}

		if part.FormName() != "file" {
			continue
		}

		job, err := h.svc.UploadAndStart(ctx, middleware.OrgFromContext(ctx), id, part, -1)
		if err != nil {
			h.replyServiceError(w, r, err)
			return
		}

		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, mappers.JobToApi(*job))
		return
	}

	h.replyError(w, r, http.StatusBadRequest, "file is required")
}

func (h *MigrationHandler) RollbackJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.replyError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid job id: %v", err))
		return
	}

	job, err := h.svc.RollbackJob(ctx, middleware.OrgFromContext(ctx), id)
	if err != nil {
		h.replyServiceError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.JobToApi(*job))
}
