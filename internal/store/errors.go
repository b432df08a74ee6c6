package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")

	// ErrInvalidTransition is returned when a caller requests a job state
	// change that is not valid from the job's current status. No mutation
	// happens in that case.
	ErrInvalidTransition = errors.New("invalid job transition")
)
