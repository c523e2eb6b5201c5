package progress

import (
	"errors"
	"fmt"
)

// Base errors for errors.Is checks.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// DomainError carries the failing operation and the base error kind.
type DomainError struct {
	Op      string // e.g. "Lesson.UpdateProgress"
	Kind    error  // ErrValidation, ErrNotFound
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches both the kind and the wrapped error.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func validationError(op, message string) *DomainError {
	return &DomainError{Op: op, Kind: ErrValidation, Message: message}
}

var (
	ErrNegativeWatchTime      = validationError("Lesson.UpdateProgress", "watched time cannot be negative")
	ErrNegativeDuration       = validationError("NewLesson", "duration cannot be negative")
	ErrNegativeXP             = validationError("User.AddXP", "xp amount cannot be negative")
	ErrPercentOutOfRange      = validationError("NewRequirements", "percentage must be between 0 and 100")
	ErrMinQuestions           = validationError("NewRequirements", "min evaluation questions must be at least 1")
	ErrPassingScoreOutOfRange = validationError("NewRequirements", "evaluation passing score must be between 0 and 100")
	ErrInvalidQuiz            = validationError("NewQuiz", "invalid quiz")
)

// NotFound builds a not-found error for the given entity.
func NotFound(entity, id string) error {
	return &DomainError{
		Op:      entity + ".Find",
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("%s not found with identifier: %s", entity, id),
	}
}

// Invalid builds a validation error with a custom message.
func Invalid(op, message string) error {
	return validationError(op, message)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
