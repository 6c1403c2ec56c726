package catalog

import (
	"errors"
	"fmt"
)

// ErrCommitConflict is returned by MetadataStore implementations when a
// conditional commit loses the compare-and-swap against the current pointer.
// It never crosses the direct-create boundary, Create translates it to
// AlreadyExistsError.
var ErrCommitConflict = errors.New("metastore: commit conflict")

type NoSuchTableError struct {
	Identifier TableIdentifier
	Reason     string
}

func (e *NoSuchTableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Identifier)
	}
	return fmt.Sprintf("table does not exist: %s", e.Identifier)
}

type AlreadyExistsError struct {
	Identifier TableIdentifier
	Err        error
}

func (e *AlreadyExistsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("table was created concurrently: %s", e.Identifier)
	}
	return fmt.Sprintf("table already exists: %s", e.Identifier)
}

func (e *AlreadyExistsError) Unwrap() error {
	return e.Err
}

type InvalidIdentifierError struct {
	Identifier TableIdentifier
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid table identifier: %s", e.Identifier)
}

func IsNoSuchTable(err error) bool {
	var e *NoSuchTableError
	return errors.As(err, &e)
}

func IsAlreadyExists(err error) bool {
	var e *AlreadyExistsError
	return errors.As(err, &e)
}

func IsInvalidIdentifier(err error) bool {
	var e *InvalidIdentifierError
	return errors.As(err, &e)
}
