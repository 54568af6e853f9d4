package fixture

import (
	"errors"
	"fmt"
)

// UnresolvedDependencyError reports a fixture that could not be created
// because one of its references did not resolve.
//
// It is a data error: the batch holding the fixture aborts and rolls back,
// and nothing is corrupted.
type UnresolvedDependencyError struct {
	// Fixture is the fixture that could not be loaded.
	Fixture *Fixture

	// Dependency is the first reference that failed to resolve.
	Dependency *Fixture
}

// Error implements the error interface.
func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("unresolved dependency: %s requires %s", e.Fixture, e.Dependency)
}

// ProgrammingError signals a defect in a Kind implementation or a misuse of
// the Fixture API. It is never a data issue and is never handled internally.
type ProgrammingError struct {
	// Code identifies the error category.
	Code ProgrammingErrorCode

	// Message is a human-readable description.
	Message string
}

// ProgrammingErrorCode categorizes programming errors.
type ProgrammingErrorCode string

const (
	// ErrCodeRefResolvedToRef indicates ResolveSelf returned another reference.
	ErrCodeRefResolvedToRef ProgrammingErrorCode = "REF_RESOLVED_TO_REF"

	// ErrCodeNotAttempted indicates resolvability was queried before resolution.
	ErrCodeNotAttempted ProgrammingErrorCode = "RESOLUTION_NOT_ATTEMPTED"

	// ErrCodeForeignReferent indicates a reference whose target is not a *Fixture.
	ErrCodeForeignReferent ProgrammingErrorCode = "FOREIGN_REFERENT"

	// ErrCodeRawReference indicates resolved data still holds a reference.
	ErrCodeRawReference ProgrammingErrorCode = "RAW_REFERENCE_IN_DATA"
)

// Error implements the error interface.
func (e *ProgrammingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnresolved returns true if the error is an unresolved dependency error.
// Uses errors.As to handle wrapped errors.
func IsUnresolved(err error) bool {
	var ue *UnresolvedDependencyError
	return errors.As(err, &ue)
}

// IsProgrammingError returns true if the error is a programming error.
// Uses errors.As to handle wrapped errors.
func IsProgrammingError(err error) bool {
	var pe *ProgrammingError
	return errors.As(err, &pe)
}

func programmingError(code ProgrammingErrorCode, format string, args ...any) *ProgrammingError {
	return &ProgrammingError{Code: code, Message: fmt.Sprintf(format, args...)}
}
