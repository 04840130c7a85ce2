package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks lookups of identifiers with no backing record. Repository
	// methods report absence through their ok results; services surface it as an error.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by Add when the requested identifier is occupied.
	ErrConflict = errors.New("identifier already in use")
	// ErrMissingID is returned by Update for entities that were never assigned an id.
	ErrMissingID = errors.New("entity has no identifier")
	// ErrBackend matches every *BackendError via errors.Is.
	ErrBackend = errors.New("backend failure")
	// ErrFormat matches every *FormatError via errors.Is.
	ErrFormat = errors.New("unexpected external format")
)

// BackendError wraps network, storage-engine and codec failures.
type BackendError struct {
	Op    string
	Table string
	Err   error
}

func (e *BackendError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrBackend) match any BackendError.
func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// FormatError reports a response from an external service whose shape could
// not be interpreted.
type FormatError struct {
	Source string
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: unexpected response format: %s", e.Source, e.Detail)
}

// Is lets errors.Is(err, ErrFormat) match any FormatError.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }
