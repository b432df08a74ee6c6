package v1alpha1

import (
	"net/http"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/handlers/validator"
	"github.com/clinicore/migration-engine/internal/service"
	"github.com/clinicore/migration-engine/pkg/requestid"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// MigrationHandler exposes the migration job API. It translates HTTP into
// service calls and the service's typed errors back into status codes.
type MigrationHandler struct {
	svc       *service.MigrationService
	validator *validator.Validator
}

func NewMigrationHandler(svc *service.MigrationService) *MigrationHandler {
	v := validator.NewValidator()
	v.Register(validator.NewJobValidationRules()...)
	return &MigrationHandler{svc: svc, validator: v}
}

func (h *MigrationHandler) RegisterRoutes(router chi.Router) {
	router.Route("/api/migration", func(r chi.Router) {
		r.Get("/jobs", h.ListJobs)
		r.Post("/jobs", h.CreateJob)
		r.Get("/jobs/{id}", h.GetJob)
		r.Post("/jobs/{id}/upload", h.UploadJobFile)
		r.Post("/jobs/{id}/rollback", h.RollbackJob)
	})
}

func (h *MigrationHandler) replyError(w http.ResponseWriter, r *http.Request, code int, message string) {
	render.Status(r, code)
	render.JSON(w, r, api.Error{Message: message, RequestId: requestid.FromContextPtr(r.Context())})
}

// replyServiceError maps the service's typed errors onto status codes.
func (h *MigrationHandler) replyServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch err.(type) {
	case *service.ErrJobNotFound:
		h.replyError(w, r, http.StatusNotFound, err.Error())
	case *service.ErrInvalidJobState:
		h.replyError(w, r, http.StatusConflict, err.Error())
	case *service.ErrEngineBusy:
		h.replyError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		h.replyError(w, r, http.StatusInternalServerError, err.Error())
	}
}
