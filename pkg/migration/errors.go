package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrPreconditionViolation is returned when a source/destination pair cannot be validated at all
	ErrPreconditionViolation = errors.New("precondition violated")

	// ErrCollectionFailed is returned when the persisted features of a database cannot be read
	ErrCollectionFailed = errors.New("feature collection failed")

	// ErrUnknownEdition is returned when an edition is not in the editions registry
	ErrUnknownEdition = errors.New("unknown edition")

	// ErrInvalidVersion is returned when a version string cannot be turned into a version number
	ErrInvalidVersion = errors.New("invalid version string")
)

// Rule names a precondition.
type Rule string

const (
	RuleSystemDatabase   Rule = "system-database"
	RuleCrossEra         Rule = "cross-era"
	RuleVersionDirection Rule = "version-direction"
	RuleVersionFloor     Rule = "version-floor"
)

// PreconditionError reports the first precondition a run failed.
type PreconditionError struct {
	Rule    Rule
	Message string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// Is checks if the error is ErrPreconditionViolation.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionViolation
}

// CollectionError wraps a failure to read the features of one database.
type CollectionError struct {
	Server   string
	Database string
	Cause    error
}

// Error implements the error interface.
func (e *CollectionError) Error() string {
	return fmt.Sprintf("unable to collect features of database %s on %s: %v", e.Database, e.Server, e.Cause)
}

// Unwrap returns the underlying error.
func (e *CollectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrCollectionFailed.
func (e *CollectionError) Is(target error) bool {
	return target == ErrCollectionFailed
}

// UnknownEditionError is returned when an edition weight comparison meets an
// edition outside the registry.
type UnknownEditionError struct {
	Server  string
	Edition string
}

// Error implements the error interface.
func (e *UnknownEditionError) Error() string {
	return fmt.Sprintf("edition %q of %s is not recognized; cannot compare edition capabilities", e.Edition, e.Server)
}

// Is checks if the error is ErrUnknownEdition.
func (e *UnknownEditionError) Is(target error) bool {
	return target == ErrUnknownEdition
}
