package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to create a duplicate entity
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrQueueDuplicate is returned when an active queue entry with the
	// same phone already exists for the store
	ErrQueueDuplicate = errors.New("an active queue entry with this phone already exists")

	// ErrSlotUnavailable is returned when the requested reservation slot
	// has no capacity left
	ErrSlotUnavailable = errors.New("no availability for the requested slot")

	// ErrTableUnavailable is returned when a requested table collides with
	// an overlapping reservation
	ErrTableUnavailable = errors.New("table is not available for the requested window")

	// ErrReservationsDisabled is returned while the reservation system is
	// switched off in configuration
	ErrReservationsDisabled = errors.New("reservations are currently disabled")
)

// ValidationError wraps field-specific validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// BusinessError is a domain-rule rejection: the request was well formed
// but the operation is not allowed in the current state.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

// NewBusinessError creates a new business-rule error
func NewBusinessError(format string, args ...any) error {
	return &BusinessError{Message: fmt.Sprintf(format, args...)}
}

// IsBusinessError checks if an error is a business-rule error
func IsBusinessError(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}
