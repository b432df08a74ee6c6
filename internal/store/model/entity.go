package model

import (
	"time"

	"github.com/google/uuid"
)

// Domain records the importer writes to. These mirror the fields of the
// corresponding registry screens; the engine only ever creates and deletes
// them, full CRUD lives with the platform services.

type Patient struct {
	ID          uuid.UUID `gorm:"primaryKey"`
	OrgID       string    `gorm:"index;not null"`
	FirstName   string    `gorm:"not null"`
	LastName    string    `gorm:"not null"`
	DateOfBirth time.Time `gorm:"not null"`
	Sex         *string
	Document    *string
	Phone       *string
	Email       *string
	CreatedAt   time.Time
}

type Appointment struct {
	ID              uuid.UUID `gorm:"primaryKey"`
	OrgID           string    `gorm:"index;not null"`
	PatientID       *uuid.UUID
	PatientDocument *string
	ScheduledAt     time.Time `gorm:"not null"`
	Professional    string    `gorm:"not null"`
	Status          string
	Notes           *string
	CreatedAt       time.Time
}

type ClinicalRecord struct {
	ID              uuid.UUID `gorm:"primaryKey"`
	OrgID           string    `gorm:"index;not null"`
	PatientID       *uuid.UUID
	PatientDocument *string
	RecordedAt      time.Time `gorm:"not null"`
	Category        string    `gorm:"not null"`
	Notes           *string
	CreatedAt       time.Time
}

type FinancialRecord struct {
	ID              uuid.UUID `gorm:"primaryKey"`
	OrgID           string    `gorm:"index;not null"`
	Description     *string
	AmountCents     int64  `gorm:"not null"`
	Method          string `gorm:"not null"`
	PaidAt          *time.Time
	PatientDocument *string
	CreatedAt       time.Time
}
