package migration

import (
	"context"
	"time"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/store"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/go-playground/validator/v10"
)

// financialRow requires an amount and a payment method; everything else is
// optional context.
type financialRow struct {
	Amount          string `validate:"required" column:"amount"`
	Method          string `validate:"required" column:"method"`
	Description     string `column:"description"`
	PaidAt          string `column:"paid_at"`
	PatientDocument string `column:"patient_document"`
}

type FinancialImporter struct {
	entities store.EntityRepository
	validate *validator.Validate
}

// Make sure we conform to Importer interface
var _ Importer = (*FinancialImporter)(nil)

func NewFinancialImporter(entities store.EntityRepository, validate *validator.Validate) *FinancialImporter {
	return &FinancialImporter{entities: entities, validate: validate}
}

func (i *FinancialImporter) Kind() api.JobType {
	return api.JobTypeFinancial
}

func (i *FinancialImporter) ImportRow(ctx context.Context, orgID string, row Row) (model.LedgerEntry, error) {
	raw := financialRow{
		Amount:          row.Value("amount"),
		Method:          row.Value("method"),
		Description:     row.Value("description"),
		PaidAt:          row.Value("paid_at"),
		PatientDocument: row.Value("patient_document"),
	}

	if err := i.validate.Struct(raw); err != nil {
		return model.LedgerEntry{}, NewRowValidationError(row.Index, "%s", validationMessage(err))
	}

	amountCents, err := parseAmountCents(raw.Amount)
	if err != nil {
		return model.LedgerEntry{}, NewRowValidationError(row.Index, "column %q: %v", "amount", err)
	}

	var paidAt *time.Time
	if raw.PaidAt != "" {
		t, err := parseDateTime(raw.PaidAt)
		if err != nil {
			return model.LedgerEntry{}, NewRowValidationError(row.Index, "column %q: %v", "paid_at", err)
		}
		paidAt = &t
	}

	id, err := i.entities.CreateFinancialRecord(ctx, model.FinancialRecord{
		OrgID:           orgID,
		Description:     optional(raw.Description),
		AmountCents:     amountCents,
		Method:          raw.Method,
		PaidAt:          paidAt,
		PatientDocument: optional(raw.PatientDocument),
	})
	if err != nil {
		return model.LedgerEntry{}, NewRowRepositoryError(row.Index, err)
	}

	return model.LedgerEntry{EntityType: string(api.EntityTypeFinancialRecord), EntityID: id}, nil
}
