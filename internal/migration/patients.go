package migration

import (
	"context"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/store"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/go-playground/validator/v10"
)

// patientRow mirrors the fields of the patient registry screen.
type patientRow struct {
	FirstName   string `validate:"required" column:"first_name"`
	LastName    string `validate:"required" column:"last_name"`
	DateOfBirth string `validate:"required" column:"date_of_birth"`
	Sex         string `column:"sex"`
	Document    string `column:"document"`
	Phone       string `column:"phone"`
	Email       string `validate:"omitempty,email" column:"email"`
}

type PatientImporter struct {
	entities store.EntityRepository
	validate *validator.Validate
}

// Make sure we conform to Importer interface
var _ Importer = (*PatientImporter)(nil)

func NewPatientImporter(entities store.EntityRepository, validate *validator.Validate) *PatientImporter {
	return &PatientImporter{entities: entities, validate: validate}
}

func (i *PatientImporter) Kind() api.JobType {
	return api.JobTypePatients
}

func (i *PatientImporter) ImportRow(ctx context.Context, orgID string, row Row) (model.LedgerEntry, error) {
	raw := patientRow{
		FirstName:   row.Value("first_name"),
		LastName:    row.Value("last_name"),
		DateOfBirth: row.Value("date_of_birth"),
		Sex:         row.Value("sex"),
		Document:    row.Value("document"),
		Phone:       row.Value("phone"),
		Email:       row.Value("email"),
	}

	if err := i.validate.Struct(raw); err != nil {
		return model.LedgerEntry{}, NewRowValidationError(row.Index, "%s", validationMessage(err))
	}

	dob, err := parseDate(raw.DateOfBirth)
	if err != nil {
		return model.LedgerEntry{}, NewRowValidationError(row.Index, "column %q: %v", "date_of_birth", err)
	}

	id, err := i.entities.CreatePatient(ctx, model.Patient{
		OrgID:       orgID,
		FirstName:   raw.FirstName,
		LastName:    raw.LastName,
		DateOfBirth: dob,
		Sex:         optional(raw.Sex),
		Document:    optional(raw.Document),
		Phone:       optional(raw.Phone),
		Email:       optional(raw.Email),
	})
	if err != nil {
		return model.LedgerEntry{}, NewRowRepositoryError(row.Index, err)
	}

	return model.LedgerEntry{EntityType: string(api.EntityTypePatient), EntityID: id}, nil
}
