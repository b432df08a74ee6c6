package migration

import (
	"context"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/store"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// clinicalRow carries one clinical history entry for an existing patient.
type clinicalRow struct {
	PatientID       string `validate:"required_without=PatientDocument,omitempty,uuid" column:"patient_id"`
	PatientDocument string `validate:"required_without=PatientID" column:"patient_document"`
	RecordedAt      string `validate:"required" column:"recorded_at"`
	Category        string `validate:"required" column:"category"`
	Notes           string `column:"notes"`
}

type ClinicalImporter struct {
	entities store.EntityRepository
	validate *validator.Validate
}

// Make sure we conform to Importer interface
var _ Importer = (*ClinicalImporter)(nil)

func NewClinicalImporter(entities store.EntityRepository, validate *validator.Validate) *ClinicalImporter {
	return &ClinicalImporter{entities: entities, validate: validate}
}

func (i *ClinicalImporter) Kind() api.JobType {
	return api.JobTypeClinical
}

func (i *ClinicalImporter) ImportRow(ctx context.Context, orgID string, row Row) (model.LedgerEntry, error) {
	raw := clinicalRow{
		PatientID:       row.Value("patient_id"),
		PatientDocument: row.Value("patient_document"),
		RecordedAt:      row.Value("recorded_at"),
		Category:        row.Value("category"),
		Notes:           row.Value("notes"),
	}

	if err := i.validate.Struct(raw); err != nil {
		return model.LedgerEntry{}, NewRowValidationError(row.Index, "%s", validationMessage(err))
	}

	recordedAt, err := parseDateTime(raw.RecordedAt)
	if err != nil {
		return model.LedgerEntry{}, NewRowValidationError(row.Index, "column %q: %v", "recorded_at", err)
	}

	record := model.ClinicalRecord{
		OrgID:           orgID,
		PatientDocument: optional(raw.PatientDocument),
		RecordedAt:      recordedAt,
		Category:        raw.Category,
		Notes:           optional(raw.Notes),
	}
	if raw.PatientID != "" {
		patientID := uuid.MustParse(raw.PatientID)
		record.PatientID = &patientID
	}

	id, err := i.entities.CreateClinicalRecord(ctx, record)
	if err != nil {
		return model.LedgerEntry{}, NewRowRepositoryError(row.Index, err)
	}

	return model.LedgerEntry{EntityType: string(api.EntityTypeClinicalRecord), EntityID: id}, nil
}
