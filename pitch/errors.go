package pitch

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrInvalidNoteSource = errors.New("invalid note source")
	ErrInvalidTuning     = errors.New("invalid tuning reference")
	ErrNumberRange       = errors.New("note number out of range")
)

// MaxNumber bounds the magnitude of a note number, detune included.
const MaxNumber = 1e9

// InvalidNoteSourceError reports a value a Note cannot be built from.
type InvalidNoteSourceError struct {
	Value any
	Err   error // parse failure, if any
}

func (e *InvalidNoteSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot create Note from %#v: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("cannot create Note from %T %#v", e.Value, e.Value)
}

func (e *InvalidNoteSourceError) Is(target error) bool {
	return target == ErrInvalidNoteSource
}

func (e *InvalidNoteSourceError) Unwrap() error {
	return e.Err
}
