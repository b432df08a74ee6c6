package store

import (
	"context"
	"errors"
	"fmt"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityRepository is the engine's view of the per-domain record stores:
// the create calls the importers issue and the compensating deletes the
// rollback engine issues. Every operation is scoped to one organization.
type EntityRepository interface {
	CreatePatient(ctx context.Context, patient model.Patient) (uuid.UUID, error)
	CreateAppointment(ctx context.Context, appointment model.Appointment) (uuid.UUID, error)
	CreateClinicalRecord(ctx context.Context, record model.ClinicalRecord) (uuid.UUID, error)
	CreateFinancialRecord(ctx context.Context, record model.FinancialRecord) (uuid.UUID, error)
	Delete(ctx context.Context, orgID string, entityType api.EntityType, id uuid.UUID) error
	InitialMigration() error
}

type EntityStore struct {
	db *gorm.DB
}

// Make sure we conform to EntityRepository interface
var _ EntityRepository = (*EntityStore)(nil)

func NewEntityStore(db *gorm.DB) EntityRepository {
	return &EntityStore{db: db}
}

func (s *EntityStore) InitialMigration() error {
	return s.db.AutoMigrate(
		&model.Patient{},
		&model.Appointment{},
		&model.ClinicalRecord{},
		&model.FinancialRecord{},
	)
}

func (s *EntityStore) CreatePatient(ctx context.Context, patient model.Patient) (uuid.UUID, error) {
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&patient); result.Error != nil {
		return uuid.Nil, fmt.Errorf("creating patient: %w", result.Error)
	}
	return patient.ID, nil
}

func (s *EntityStore) CreateAppointment(ctx context.Context, appointment model.Appointment) (uuid.UUID, error) {
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&appointment); result.Error != nil {
		return uuid.Nil, fmt.Errorf("creating appointment: %w", result.Error)
	}
	return appointment.ID, nil
}

func (s *EntityStore) CreateClinicalRecord(ctx context.Context, record model.ClinicalRecord) (uuid.UUID, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&record); result.Error != nil {
		return uuid.Nil, fmt.Errorf("creating clinical record: %w", result.Error)
	}
	return record.ID, nil
}

func (s *EntityStore) CreateFinancialRecord(ctx context.Context, record model.FinancialRecord) (uuid.UUID, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&record); result.Error != nil {
		return uuid.Nil, fmt.Errorf("creating financial record: %w", result.Error)
	}
	return record.ID, nil
}

// Delete removes one entity. A missing row returns ErrRecordNotFound so the
// rollback engine can treat it as already reverted.
func (s *EntityStore) Delete(ctx context.Context, orgID string, entityType api.EntityType, id uuid.UUID) error {
	var target any
	switch entityType {
	case api.EntityTypePatient:
		target = &model.Patient{}
	case api.EntityTypeAppointment:
		target = &model.Appointment{}
	case api.EntityTypeClinicalRecord:
		target = &model.ClinicalRecord{}
	case api.EntityTypeFinancialRecord:
		target = &model.FinancialRecord{}
	default:
		return fmt.Errorf("unknown entity type %q", entityType)
	}

	result := s.getDB(ctx).Where("id = ? AND org_id = ?", id, orgID).Delete(target)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("deleting %s: %w", entityType, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *EntityStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
