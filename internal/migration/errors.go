package migration

import (
	"errors"
	"fmt"
)

// RowErrorKind classifies why a single row was skipped.
type RowErrorKind string

const (
	RowErrorParse      RowErrorKind = "parse"
	RowErrorValidation RowErrorKind = "validation"
	RowErrorRepository RowErrorKind = "repository"
)

// RowError is a failure scoped to one source row. It is recorded on the job
// and the run continues; it never aborts the import loop.
type RowError struct {
	RowIndex int
	Kind     RowErrorKind
	Message  string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowIndex, e.Message)
}

func NewRowParseError(rowIndex int, format string, args ...any) *RowError {
	return &RowError{RowIndex: rowIndex, Kind: RowErrorParse, Message: fmt.Sprintf(format, args...)}
}

func NewRowValidationError(rowIndex int, format string, args ...any) *RowError {
	return &RowError{RowIndex: rowIndex, Kind: RowErrorValidation, Message: fmt.Sprintf(format, args...)}
}

func NewRowRepositoryError(rowIndex int, cause error) *RowError {
	return &RowError{RowIndex: rowIndex, Kind: RowErrorRepository, Message: cause.Error()}
}

// FatalStreamError invalidates the whole run: the upload cannot be parsed at
// all or the downstream store is unreachable. The job fails immediately and
// unread rows are counted as skipped.
type FatalStreamError struct {
	Cause error
}

func (e *FatalStreamError) Error() string {
	return fmt.Sprintf("fatal stream error: %v", e.Cause)
}

func (e *FatalStreamError) Unwrap() error {
	return e.Cause
}

func NewFatalStreamError(cause error) *FatalStreamError {
	return &FatalStreamError{Cause: cause}
}

// AsRowError reports whether err is recoverable at the row level.
func AsRowError(err error) (*RowError, bool) {
	var rowErr *RowError
	if errors.As(err, &rowErr) {
		return rowErr, true
	}
	return nil, false
}
