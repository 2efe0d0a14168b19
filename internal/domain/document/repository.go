package document

import (
	"context"

	"github.com/numera/numera/internal/types"
)

// Repository defines the interface for ledger document persistence operations.
// Implementations must honor the ambient store transaction when one is
// present in the context.
type Repository interface {
	// Create persists a new document, failing with AlreadyExists when the
	// document number is taken
	Create(ctx context.Context, doc *LedgerDocument) error

	// Get retrieves a document by its customer scoped number
	Get(ctx context.Context, customerID, documentNumber string) (*LedgerDocument, error)

	// Update persists payment state changes to an existing document
	Update(ctx context.Context, doc *LedgerDocument) error

	// List retrieves documents based on filter criteria
	List(ctx context.Context, filter *types.DocumentFilter) ([]*LedgerDocument, error)

	// Count returns the total count of documents based on filter criteria
	Count(ctx context.Context, filter *types.DocumentFilter) (int, error)
}
