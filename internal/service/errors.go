package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrJobNotFound struct {
	error
}

func NewErrJobNotFound(id uuid.UUID) *ErrJobNotFound {
	return &ErrJobNotFound{fmt.Errorf("job %s not found", id)}
}

// ErrInvalidJobState is returned when an operation is applied to a job whose
// lifecycle state does not allow it, e.g. uploading into a running job or
// rolling back a pending one.
type ErrInvalidJobState struct {
	error
}

func NewErrInvalidJobState(id uuid.UUID, current, required string) *ErrInvalidJobState {
	return &ErrInvalidJobState{fmt.Errorf("job %s is %s, operation requires %s", id, current, required)}
}

// ErrEngineBusy is returned when the worker queue is at capacity and cannot
// accept another job.
type ErrEngineBusy struct {
	error
}

func NewErrEngineBusy() *ErrEngineBusy {
	return &ErrEngineBusy{fmt.Errorf("migration engine is at capacity, retry later")}
}

// ErrRollbackIncomplete is returned when a compensating delete failed. The
// job keeps its terminal status and the rollback may be retried.
type ErrRollbackIncomplete struct {
	error
}

func NewErrRollbackIncomplete(id uuid.UUID, cause error) *ErrRollbackIncomplete {
	return &ErrRollbackIncomplete{fmt.Errorf("rollback of job %s did not finish: %w", id, cause)}
}
