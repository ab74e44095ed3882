package repo

import (
	"errors"
	"fmt"
)

// ErrNotFound covers both "id does not exist" and "exists but belongs to
// another psychologist". Callers must not be able to tell the two apart.
var ErrNotFound = errors.New("registro não encontrado")

// ValidationError is a caller-fixable input problem (missing/invalid fields,
// unknown ids inside a payload). Maps to HTTP 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, a ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, a...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConflictError is a scheduling double-booking: the request is well-formed
// but collides with existing state. Maps to HTTP 409.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflictf(format string, a ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, a...)}
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
