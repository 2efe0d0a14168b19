package expense

import (
	"context"

	"github.com/numera/numera/internal/types"
)

// Repository defines the read only interface over the inbound invoice ledger
type Repository interface {
	// Get retrieves a single inbound invoice by ID
	Get(ctx context.Context, customerID, id string) (*InboundInvoice, error)

	// List retrieves inbound invoices based on filter criteria
	List(ctx context.Context, filter *types.ExpenseFilter) ([]*InboundInvoice, error)

	// Count returns the total count of inbound invoices based on filter criteria
	Count(ctx context.Context, filter *types.ExpenseFilter) (int, error)
}
