// Package kbench structured error types for harness failures
package kbench

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Configuration errors (tolerances, iteration counts, duplicate names)
	ErrTypeConfig ErrorType = iota
	// Invalid argument errors
	ErrTypeInvalidArg
	// Timing source errors; always fatal for a run
	ErrTypeTiming
	// Implementation returned an error or panicked
	ErrTypeExecution
	// Output comparison could not be carried out
	ErrTypeValidation
	// Plugin failures
	ErrTypePlugin
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
	Context any    // Additional context
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kbench %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("kbench %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by type, op and message so that a wrapped
// copy of a sentinel still satisfies errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Op == t.Op && e.Message == t.Message
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConfig:
		return "Config"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeTiming:
		return "Timing"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeValidation:
		return "Validation"
	case ErrTypePlugin:
		return "Plugin"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewConfigError creates a configuration error
func NewConfigError(op string, message string) error {
	return &Error{Type: ErrTypeConfig, Op: op, Message: message}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{Type: ErrTypeInvalidArg, Op: op, Message: message}
}

// NewTimingError creates a timing-source error
func NewTimingError(op string, message string, err error) error {
	return &Error{Type: ErrTypeTiming, Op: op, Message: message, Err: err}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &Error{Type: ErrTypeExecution, Op: op, Message: message, Err: err}
}

// NewValidationError creates a validation error carrying diagnostic context
func NewValidationError(op string, message string, context any) error {
	return &Error{Type: ErrTypeValidation, Op: op, Message: message, Context: context}
}

// NewPluginError creates a plugin error
func NewPluginError(op string, message string, err error) error {
	return &Error{Type: ErrTypePlugin, Op: op, Message: message, Err: err}
}

// Common pre-defined errors

var (
	// ErrNoReference indicates Run was called without a reference implementation
	ErrNoReference = NewConfigError("Run", "no reference implementation set")

	// ErrNoImplementations indicates Run was called with nothing to compare
	ErrNoImplementations = NewConfigError("Run", "no implementations added")

	// ErrDuplicateName indicates two implementations share a display name
	ErrDuplicateName = NewConfigError("Run", "duplicate implementation name")

	// ErrBusy indicates a second concurrent Run on the same comparison
	ErrBusy = NewConfigError("Run", "comparison is already running")

	// ErrClockUnavailable indicates the clock returned no reading
	ErrClockUnavailable = NewTimingError("Clock", "clock returned a zero time", nil)

	// ErrClockSkew indicates an elapsed span came out negative
	ErrClockSkew = NewTimingError("Clock", "clock went backwards", nil)

	// ErrNegativeDuration indicates a negative or NaN duration was accumulated
	ErrNegativeDuration = NewInvalidArgError("Duration", "duration must be non-negative")

	// ErrInvalidTolerance indicates a negative or NaN tolerance
	ErrInvalidTolerance = NewInvalidArgError("SetTolerance", "tolerance must be non-negative")

	// ErrLengthMismatch indicates aggregate outputs of different lengths
	ErrLengthMismatch = NewValidationError("Compare", "output lengths differ", nil)

	// ErrPrecisionMismatch indicates reference and candidate have different numeric types
	ErrPrecisionMismatch = NewValidationError("Compare", "reference and candidate precision differ", nil)

	// ErrUnsupportedOutput indicates no comparator exists for the output type
	ErrUnsupportedOutput = NewConfigError("Comparator", "no comparator for output type")

	// ErrNotRun indicates outputs were requested before Run
	ErrNotRun = NewConfigError("Output", "run has not been executed")

	// ErrUnknownImplementation indicates a lookup by an unregistered name
	ErrUnknownImplementation = NewInvalidArgError("Output", "unknown implementation")

	// ErrTimerMisuse indicates unbalanced Start/Stop calls on a Timer
	ErrTimerMisuse = NewExecutionError("Timer", "unbalanced start/stop", nil)
)

func hasType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool { return hasType(err, ErrTypeConfig) }

// IsTimingError checks if an error came from the timing source
func IsTimingError(err error) bool { return hasType(err, ErrTypeTiming) }

// IsExecutionError checks if an error came from an implementation
func IsExecutionError(err error) bool { return hasType(err, ErrTypeExecution) }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return hasType(err, ErrTypeValidation) }

// IsPluginError checks if an error came from a plugin
func IsPluginError(err error) bool { return hasType(err, ErrTypePlugin) }
