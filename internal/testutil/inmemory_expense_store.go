package testutil

import (
	"context"

	"github.com/numera/numera/internal/domain/expense"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
)

// InMemoryExpenseStore implements expense.Repository. The expense ledger is
// written by the ingestion pipeline, not by this codebase, so the store adds
// a seeding helper instead of a repository Create.
type InMemoryExpenseStore struct {
	*InMemoryStore[*expense.InboundInvoice]
}

// NewInMemoryExpenseStore creates a new in-memory expense store
func NewInMemoryExpenseStore() *InMemoryExpenseStore {
	return &InMemoryExpenseStore{
		InMemoryStore: NewInMemoryStore[*expense.InboundInvoice](),
	}
}

func copyInboundInvoice(inv *expense.InboundInvoice) *expense.InboundInvoice {
	if inv == nil {
		return nil
	}
	copied := *inv
	if inv.ProcessedAt != nil {
		processedAt := *inv.ProcessedAt
		copied.ProcessedAt = &processedAt
	}
	copied.Metadata = inv.Metadata.Copy()
	return &copied
}

// Add seeds an inbound invoice row, standing in for the ingestion pipeline.
func (s *InMemoryExpenseStore) Add(ctx context.Context, inv *expense.InboundInvoice) error {
	return s.InMemoryStore.Create(ctx, inv.CustomerID+"/"+inv.ID, copyInboundInvoice(inv))
}

func (s *InMemoryExpenseStore) Get(ctx context.Context, customerID, id string) (*expense.InboundInvoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, customerID+"/"+id)
	if err != nil || inv.Status != types.StatusPublished {
		return nil, ierr.NewError("inbound invoice not found").
			WithHintf("Expense record %s was not found", id).
			WithReportableDetails(map[string]any{
				"customer_id": customerID,
				"expense_id":  id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyInboundInvoice(inv), nil
}

func (s *InMemoryExpenseStore) List(ctx context.Context, filter *types.ExpenseFilter) ([]*expense.InboundInvoice, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	asc := filter.GetOrder() == types.OrderAsc
	rows, err := s.InMemoryStore.List(ctx, filter, expenseMatchesFilter, func(i, j *expense.InboundInvoice) bool {
		if i.DocumentDate.Equal(j.DocumentDate) {
			if asc {
				return i.ID < j.ID
			}
			return i.ID > j.ID
		}
		if asc {
			return i.DocumentDate.Before(j.DocumentDate)
		}
		return i.DocumentDate.After(j.DocumentDate)
	})
	if err != nil {
		return nil, err
	}

	copied := make([]*expense.InboundInvoice, len(rows))
	for i, row := range rows {
		copied[i] = copyInboundInvoice(row)
	}
	return copied, nil
}

func (s *InMemoryExpenseStore) Count(ctx context.Context, filter *types.ExpenseFilter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	return s.InMemoryStore.Count(ctx, filter, expenseMatchesFilter)
}

func expenseMatchesFilter(_ context.Context, inv *expense.InboundInvoice, raw interface{}) bool {
	filter, ok := raw.(*types.ExpenseFilter)
	if !ok {
		return false
	}
	if inv.CustomerID != filter.CustomerID {
		return false
	}
	if string(inv.Status) != filter.GetStatus() {
		return false
	}
	if filter.ExpenseStatus != "" && inv.ExpenseStatus != filter.ExpenseStatus {
		return false
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil && inv.DocumentDate.Before(*filter.StartTime) {
			return false
		}
		if filter.EndTime != nil && inv.DocumentDate.After(*filter.EndTime) {
			return false
		}
	}
	return true
}
