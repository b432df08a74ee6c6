package migration

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/store"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/go-playground/validator/v10"
)

// Importer is the per-domain strategy mapping raw rows into create calls
// against the entity repository. ImportRow returns the ledger entry of the
// created entity, or a *RowError the orchestrator records without aborting
// the run. It never panics for a bad row.
type Importer interface {
	Kind() api.JobType
	ImportRow(ctx context.Context, orgID string, row Row) (model.LedgerEntry, error)
}

// ImporterRegistry holds the closed set of importer variants, selected by
// the job's type.
type ImporterRegistry struct {
	importers map[api.JobType]Importer
}

func NewImporterRegistry(entities store.EntityRepository) *ImporterRegistry {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// report errors against the source column, not the Go field
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("column"); name != "" {
			return name
		}
		return fld.Name
	})

	registry := &ImporterRegistry{importers: make(map[api.JobType]Importer)}
	for _, imp := range []Importer{
		NewPatientImporter(entities, validate),
		NewAppointmentImporter(entities, validate),
		NewClinicalImporter(entities, validate),
		NewFinancialImporter(entities, validate),
	} {
		registry.importers[imp.Kind()] = imp
	}
	return registry
}

func (r *ImporterRegistry) Resolve(jobType api.JobType) (Importer, error) {
	imp, ok := r.importers[jobType]
	if !ok {
		return nil, fmt.Errorf("no importer registered for job type %q", jobType)
	}
	return imp, nil
}

// validationMessage flattens validator errors into one human-readable
// reason, naming the offending source columns.
func validationMessage(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	reasons := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		switch fieldErr.Tag() {
		case "required":
			reasons = append(reasons, fmt.Sprintf("missing required column %q", fieldErr.Field()))
		default:
			reasons = append(reasons, fmt.Sprintf("column %q failed %q validation", fieldErr.Field(), fieldErr.Tag()))
		}
	}
	return strings.Join(reasons, "; ")
}
