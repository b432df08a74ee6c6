package store

import (
	"context"

	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	Ledger() Ledger
	Entity() EntityRepository
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db     *gorm.DB
	job    Job
	ledger Ledger
	entity EntityRepository
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:     db,
		job:    NewJobStore(db),
		ledger: NewLedgerStore(db),
		entity: NewEntityStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Ledger() Ledger {
	return s.ledger
}

func (s *DataStore) Entity() EntityRepository {
	return s.entity
}

func (s *DataStore) InitialMigration() error {
	if err := s.job.InitialMigration(); err != nil {
		return err
	}
	if err := s.ledger.InitialMigration(); err != nil {
		return err
	}
	return s.entity.InitialMigration()
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
