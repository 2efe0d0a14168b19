package document

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound is returned when a document is not found
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentNumberTaken is returned when a document number already exists
	ErrDocumentNumberTaken = errors.New("document number already exists")

	// ErrInvoiceAlreadyPaid indicates that an invoice selected for settlement
	// has nothing outstanding
	ErrInvoiceAlreadyPaid = errors.New("invoice already paid")
)

// ValidationError represents an error that occurs during document validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
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
