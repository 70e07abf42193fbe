package engine

import (
	"errors"
	"fmt"
)

// RunErrorCode categorizes pass failures.
type RunErrorCode string

const (
	// CodeInvalidConfiguration indicates a malformed pipeline definition.
	// Raised before any storage access.
	CodeInvalidConfiguration RunErrorCode = "INVALID_CONFIGURATION"

	// CodeMissingAttribute indicates a monitored attribute absent from a
	// fetched record (schema drift between source and configuration).
	CodeMissingAttribute RunErrorCode = "MISSING_ATTRIBUTE"

	// CodeDuplicateKey indicates two source records with the same business
	// key. The pass aborts rather than picking one.
	CodeDuplicateKey RunErrorCode = "DUPLICATE_KEY"

	// CodeInvariantViolation indicates the history table holds two current
	// rows for one key. Merging on top of that would corrupt the history,
	// so the pass aborts.
	CodeInvariantViolation RunErrorCode = "INVARIANT_VIOLATION"

	// CodeStorageUnavailable indicates a transient connectivity or lock
	// failure. The orchestrator retries extraction a bounded number of
	// times before escalating.
	CodeStorageUnavailable RunErrorCode = "STORAGE_UNAVAILABLE"

	// CodeTransactionConflict indicates the merge transaction could not
	// commit. No partial writes are visible; the pass is safe to re-run.
	CodeTransactionConflict RunErrorCode = "TRANSACTION_CONFLICT"
)

// RunError is a structured pass failure with a code for programmatic
// handling and optional key/attribute context for diagnostics.
type RunError struct {
	Code      RunErrorCode
	Message   string
	Key       string
	Attribute string
	Err       error
}

func (e *RunError) Error() string {
	switch {
	case e.Key != "":
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	case e.Attribute != "":
		return fmt.Sprintf("%s: %s (attribute=%s)", e.Code, e.Message, e.Attribute)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *RunError) Unwrap() error { return e.Err }

// NewInvalidConfigurationError creates a RunError for a bad pipeline
// definition.
func NewInvalidConfigurationError(message string) *RunError {
	return &RunError{Code: CodeInvalidConfiguration, Message: message}
}

// NewMissingAttributeError creates a RunError for schema drift.
func NewMissingAttributeError(attribute string) *RunError {
	return &RunError{
		Code:      CodeMissingAttribute,
		Message:   "monitored attribute missing from source record",
		Attribute: attribute,
	}
}

// NewDuplicateKeyError creates a RunError for a duplicated business key in
// the source snapshot.
func NewDuplicateKeyError(key string) *RunError {
	return &RunError{
		Code:    CodeDuplicateKey,
		Message: "business key appears twice in source snapshot",
		Key:     key,
	}
}

// NewInvariantViolationError creates a RunError for corrupted history
// state.
func NewInvariantViolationError(key, message string) *RunError {
	return &RunError{Code: CodeInvariantViolation, Message: message, Key: key}
}

// NewStorageUnavailableError wraps a transient storage failure.
func NewStorageUnavailableError(message string, err error) *RunError {
	return &RunError{Code: CodeStorageUnavailable, Message: message, Err: err}
}

// NewTransactionConflictError wraps a merge commit failure.
func NewTransactionConflictError(err error) *RunError {
	return &RunError{
		Code:    CodeTransactionConflict,
		Message: "merge transaction failed to commit",
		Err:     err,
	}
}

func hasCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsInvalidConfiguration reports whether err is an INVALID_CONFIGURATION
// failure. Handles wrapped errors via errors.As.
func IsInvalidConfiguration(err error) bool { return hasCode(err, CodeInvalidConfiguration) }

// IsMissingAttribute reports whether err is a MISSING_ATTRIBUTE failure.
func IsMissingAttribute(err error) bool { return hasCode(err, CodeMissingAttribute) }

// IsDuplicateKey reports whether err is a DUPLICATE_KEY failure.
func IsDuplicateKey(err error) bool { return hasCode(err, CodeDuplicateKey) }

// IsInvariantViolation reports whether err is an INVARIANT_VIOLATION
// failure.
func IsInvariantViolation(err error) bool { return hasCode(err, CodeInvariantViolation) }

// IsStorageUnavailable reports whether err is a retryable
// STORAGE_UNAVAILABLE failure.
func IsStorageUnavailable(err error) bool { return hasCode(err, CodeStorageUnavailable) }

// IsTransactionConflict reports whether err is a TRANSACTION_CONFLICT
// failure.
func IsTransactionConflict(err error) bool { return hasCode(err, CodeTransactionConflict) }
