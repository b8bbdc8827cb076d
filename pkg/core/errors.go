package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrNotFound means the document vanished, usually because another mover
	// got to it first. Callers skip it.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists means a naming collision in the target stage.
	ErrAlreadyExists = errors.New("document already exists")

	// ErrStorage marks unrecoverable storage failures (permission denied,
	// disk full, read-only filesystem). They terminate the run.
	ErrStorage = errors.New("storage failure")

	// ErrInvalidTransition is returned for moves the stage graph forbids.
	ErrInvalidTransition = errors.New("invalid stage transition")
)

// ProcessingError is a per-document failure inside a component. It is caught
// at the document boundary, audited, and the batch continues.
type ProcessingError struct {
	Component string
	Document  string
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: processing %s: %v", e.Component, e.Document, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// CycleError is a failure that escaped a whole cycle.
type CycleError struct {
	Step string
	Err  error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle aborted in %s: %v", e.Step, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// Fatal reports whether err must terminate the process rather than be
// retried on the next cycle.
func Fatal(err error) bool {
	return errors.Is(err, ErrStorage)
}

// Skippable reports whether err is a benign race (vanished document or
// naming collision).
func Skippable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists)
}
