package types

import (
	ierr "github.com/numera/numera/internal/errors"
	"github.com/samber/lo"
)

// ExpenseStatus tracks an inbound invoice through the ingestion pipeline.
// Only processed rows are trusted for reporting.
type ExpenseStatus string

const (
	ExpenseStatusPending   ExpenseStatus = "pending"
	ExpenseStatusProcessed ExpenseStatus = "processed"
	ExpenseStatusFailed    ExpenseStatus = "failed"
)

func (s ExpenseStatus) String() string {
	return string(s)
}

func (s ExpenseStatus) Validate() error {
	allowed := []ExpenseStatus{
		ExpenseStatusPending,
		ExpenseStatusProcessed,
		ExpenseStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid expense status").
			WithHint("Please provide a valid expense status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ExpenseFilter represents the filter options for reading the inbound
// invoice ledger
type ExpenseFilter struct {
	*QueryFilter
	*TimeRangeFilter

	// customer_id scopes the query to one ledger partition and is required
	CustomerID string `json:"customer_id,omitempty" form:"customer_id"`

	// expense_status restricts results to rows in the given pipeline state
	ExpenseStatus ExpenseStatus `json:"expense_status,omitempty" form:"expense_status"`
}

// NewNoLimitExpenseFilter creates a new expense filter without pagination
func NewNoLimitExpenseFilter() *ExpenseFilter {
	return &ExpenseFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *ExpenseFilter) Validate() error {
	if f.CustomerID == "" {
		return ierr.NewError("customer_id is required").
			WithHint("Expense queries are scoped to a single customer ledger").
			Mark(ierr.ErrValidation)
	}
	if f.ExpenseStatus != "" {
		if err := f.ExpenseStatus.Validate(); err != nil {
			return err
		}
	}
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return ierr.WithError(err).WithHint("invalid query filter").Mark(ierr.ErrValidation)
		}
	}
	if f.TimeRangeFilter != nil {
		if err := f.TimeRangeFilter.Validate(); err != nil {
			return ierr.WithError(err).WithHint("invalid time range").Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// GetLimit implements BaseFilter interface
func (f *ExpenseFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset implements BaseFilter interface
func (f *ExpenseFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

// GetSort implements BaseFilter interface
func (f *ExpenseFilter) GetSort() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetSort()
	}
	return f.QueryFilter.GetSort()
}

// GetOrder implements BaseFilter interface
func (f *ExpenseFilter) GetOrder() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOrder()
	}
	return f.QueryFilter.GetOrder()
}

// GetStatus implements BaseFilter interface
func (f *ExpenseFilter) GetStatus() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetStatus()
	}
	return f.QueryFilter.GetStatus()
}

func (f *ExpenseFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().IsUnlimited()
	}
	return f.QueryFilter.IsUnlimited()
}
