package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a refresh cycle or one of its stages failed.
type ErrorKind string

const (
	KindSourceUnavailable  ErrorKind = "source_unavailable"
	KindConfigInvalid      ErrorKind = "config_invalid"
	KindColumnMissing      ErrorKind = "column_missing"
	KindRenderFailure      ErrorKind = "render_failure"
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

// CycleError is a stage failure carrying its ErrorKind.
type CycleError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

// NewCycleError wraps err as a failure of stage.
func NewCycleError(kind ErrorKind, stage string, err error) *CycleError {
	return &CycleError{Kind: kind, Stage: stage, Err: err}
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
