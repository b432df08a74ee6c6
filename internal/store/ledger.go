package store

import (
	"context"
	"fmt"

	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger is the append-only record of entities a job created. Rollback
// consumes exactly this set: entries are removed one by one as their
// compensating delete succeeds, which makes a retried rollback idempotent.
type Ledger interface {
	Append(ctx context.Context, entry model.LedgerEntry) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]model.LedgerEntry, error)
	ListByJobReversed(ctx context.Context, jobID uuid.UUID) ([]model.LedgerEntry, error)
	Remove(ctx context.Context, seq uint64) error
	CountByJob(ctx context.Context, jobID uuid.UUID) (int64, error)
	InitialMigration() error
}

type LedgerStore struct {
	db *gorm.DB
}

// Make sure we conform to Ledger interface
var _ Ledger = (*LedgerStore)(nil)

func NewLedgerStore(db *gorm.DB) Ledger {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.LedgerEntry{})
}

func (s *LedgerStore) Append(ctx context.Context, entry model.LedgerEntry) error {
	if result := s.getDB(ctx).Create(&entry); result.Error != nil {
		return fmt.Errorf("appending ledger entry: %w", result.Error)
	}
	return nil
}

func (s *LedgerStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]model.LedgerEntry, error) {
	return s.list(ctx, jobID, "seq ASC")
}

// ListByJobReversed returns the entries latest-created first, the order the
// rollback engine compensates them in.
func (s *LedgerStore) ListByJobReversed(ctx context.Context, jobID uuid.UUID) ([]model.LedgerEntry, error) {
	return s.list(ctx, jobID, "seq DESC")
}

func (s *LedgerStore) list(ctx context.Context, jobID uuid.UUID, order string) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	result := s.getDB(ctx).Where("job_id = ?", jobID).Order(order).Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("listing ledger entries: %w", result.Error)
	}
	return entries, nil
}

func (s *LedgerStore) Remove(ctx context.Context, seq uint64) error {
	result := s.getDB(ctx).Delete(&model.LedgerEntry{}, "seq = ?", seq)
	if result.Error != nil {
		return fmt.Errorf("removing ledger entry: %w", result.Error)
	}
	return nil
}

func (s *LedgerStore) CountByJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.LedgerEntry{}).Where("job_id = ?", jobID).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("counting ledger entries: %w", result.Error)
	}
	return count, nil
}

func (s *LedgerStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
