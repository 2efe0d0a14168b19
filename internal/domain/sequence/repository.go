package sequence

import (
	"context"

	"github.com/numera/numera/internal/types"
)

// Repository defines the interface for sequence counter persistence.
// Implementations must honor the ambient store transaction when one is
// present in the context; a counter read inside a transaction is version
// checked at commit so two concurrent allocations can never observe the
// same value.
type Repository interface {
	// Get retrieves the counter for a partition. A missing counter returns
	// a zero valued Counter, not an error.
	Get(ctx context.Context, customerID string, docType types.DocumentType, year int) (*Counter, error)

	// Save persists the counter state
	Save(ctx context.Context, counter *Counter) error
}
