package migration

import (
	"context"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/store"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// appointmentRow requires a patient reference (internal id or document
// number), a schedule and the treating professional.
type appointmentRow struct {
	PatientID       string `validate:"required_without=PatientDocument,omitempty,uuid" column:"patient_id"`
	PatientDocument string `validate:"required_without=PatientID" column:"patient_document"`
	ScheduledAt     string `validate:"required" column:"scheduled_at"`
	Professional    string `validate:"required" column:"professional"`
	Status          string `column:"status"`
	Notes           string `column:"notes"`
}

type AppointmentImporter struct {
	entities store.EntityRepository
	validate *validator.Validate
}

// Make sure we conform to Importer interface
var _ Importer = (*AppointmentImporter)(nil)

func NewAppointmentImporter(entities store.EntityRepository, validate *validator.Validate) *AppointmentImporter {
	return &AppointmentImporter{entities: entities, validate: validate}
}

func (i *AppointmentImporter) Kind() api.JobType {
	return api.JobTypeAppointments
}

func (i *AppointmentImporter) ImportRow(ctx context.Context, orgID string, row Row) (model.LedgerEntry, error) {
	raw := appointmentRow{
		PatientID:       row.Value("patient_id"),
		PatientDocument: row.Value("patient_document"),
		ScheduledAt:     row.Value("scheduled_at"),
		Professional:    row.Value("professional"),
		Status:          row.Value("status"),
		Notes:           row.Value("notes"),
	}

	if err := i.validate.Struct(raw); err != nil {
		return model.LedgerEntry{}, NewRowValidationError(row.Index, "%s", validationMessage(err))
	}

	scheduledAt, err := parseDateTime(raw.ScheduledAt)
	if err != nil {
		return model.LedgerEntry{}, NewRowValidationError(row.Index, "column %q: %v", "scheduled_at", err)
	}

	appointment := model.Appointment{
		OrgID:           orgID,
		PatientDocument: optional(raw.PatientDocument),
		ScheduledAt:     scheduledAt,
		Professional:    raw.Professional,
		Status:          raw.Status,
		Notes:           optional(raw.Notes),
	}
	if raw.PatientID != "" {
		patientID := uuid.MustParse(raw.PatientID) // format guarded by the uuid rule
		appointment.PatientID = &patientID
	}

	id, err := i.entities.CreateAppointment(ctx, appointment)
	if err != nil {
		return model.LedgerEntry{}, NewRowRepositoryError(row.Index, err)
	}

	return model.LedgerEntry{EntityType: string(api.EntityTypeAppointment), EntityID: id}, nil
}
