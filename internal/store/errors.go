package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Sentinel errors for catalog failure modes
var (
	// ErrNotFound indicates a referenced id does not exist
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation indicates a uniqueness or required-field violation
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrReferentialIntegrity indicates a foreign key target is absent at
	// write time. Errors of this kind also match ErrConstraintViolation.
	ErrReferentialIntegrity = errors.New("referential integrity violation")

	// ErrTransactionAborted indicates a conflict with a concurrent writer;
	// the caller may retry
	ErrTransactionAborted = errors.New("transaction aborted")
)

// referentialError matches both ErrReferentialIntegrity and ErrConstraintViolation
type referentialError struct {
	err error
}

func (e *referentialError) Error() string {
	return ErrReferentialIntegrity.Error() + ": " + e.err.Error()
}

func (e *referentialError) Unwrap() []error {
	return []error{ErrReferentialIntegrity, ErrConstraintViolation, e.err}
}

// kindError tags a driver error with one of the sentinel kinds
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.err}
}

// IsAborted reports whether err is a transaction conflict worth retrying
func IsAborted(err error) bool {
	return errors.Is(err, ErrTransactionAborted)
}

// classify maps SQLite driver errors onto the catalog's error kinds.
// Errors already carrying a kind pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConstraintViolation) ||
		errors.Is(err, ErrTransactionAborted) {
		return err
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
			strings.Contains(se.Error(), "FOREIGN KEY constraint failed"):
			return &referentialError{err: err}
		case code&0xff == sqlite3.SQLITE_CONSTRAINT:
			return &kindError{kind: ErrConstraintViolation, err: err}
		case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
			return &kindError{kind: ErrTransactionAborted, err: err}
		}
		return err
	}

	// Message fallback for errors surfaced without a typed code
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &referentialError{err: err}
	case strings.Contains(msg, "constraint failed"):
		return &kindError{kind: ErrConstraintViolation, err: err}
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return &kindError{kind: ErrTransactionAborted, err: err}
	}

	return err
}

// constraintf builds a validation error that matches ErrConstraintViolation
func constraintf(msg string) error {
	return &kindError{kind: ErrConstraintViolation, err: errors.New(msg)}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
