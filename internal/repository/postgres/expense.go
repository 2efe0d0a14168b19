package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/numera/numera/internal/domain/expense"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/postgres"
	"github.com/numera/numera/internal/types"
)

type expenseRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewExpenseRepository(db *postgres.DB, logger *logger.Logger) expense.Repository {
	return &expenseRepository{db: db, logger: logger}
}

const inboundInvoiceColumns = `
	id, customer_id, vendor_name, vendor_tax_id, category, description,
	total_amount, currency, expense_status, document_date, processed_at,
	source_ref, metadata, status, created_at, updated_at, created_by, updated_by
`

func (r *expenseRepository) Get(ctx context.Context, customerID, id string) (*expense.InboundInvoice, error) {
	span := StartRepositorySpan(ctx, "expense", "get", map[string]interface{}{
		"customer_id": customerID,
		"expense_id":  id,
	})
	defer FinishSpan(span)

	query := fmt.Sprintf(`
	SELECT %s
	FROM inbound_invoices
	WHERE customer_id = $1 AND id = $2 AND status = $3
	`, inboundInvoiceColumns)

	var inv expense.InboundInvoice
	err := r.db.GetQuerier(ctx).GetContext(ctx, &inv, query, customerID, id, types.StatusPublished)
	if err != nil {
		SetSpanError(span, err)
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("inbound invoice not found").
				WithHintf("Expense record %s was not found", id).
				WithReportableDetails(map[string]any{
					"customer_id": customerID,
					"expense_id":  id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read inbound invoice").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return &inv, nil
}

func (r *expenseRepository) List(ctx context.Context, filter *types.ExpenseFilter) ([]*expense.InboundInvoice, error) {
	span := StartRepositorySpan(ctx, "expense", "list", map[string]interface{}{
		"customer_id": filter.CustomerID,
	})
	defer FinishSpan(span)

	if err := filter.Validate(); err != nil {
		SetSpanError(span, err)
		return nil, err
	}

	where, args := r.buildWhere(filter)

	query := fmt.Sprintf(`
	SELECT %s
	FROM inbound_invoices
	%s
	ORDER BY document_date %s, id %s
	`, inboundInvoiceColumns, where, sortDirection(filter), sortDirection(filter))

	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	var invoices []*expense.InboundInvoice
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &invoices, query, args...); err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list inbound invoices").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return invoices, nil
}

func (r *expenseRepository) Count(ctx context.Context, filter *types.ExpenseFilter) (int, error) {
	span := StartRepositorySpan(ctx, "expense", "count", map[string]interface{}{
		"customer_id": filter.CustomerID,
	})
	defer FinishSpan(span)

	if err := filter.Validate(); err != nil {
		SetSpanError(span, err)
		return 0, err
	}

	where, args := r.buildWhere(filter)

	query := fmt.Sprintf(`SELECT COUNT(*) FROM inbound_invoices %s`, where)

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		SetSpanError(span, err)
		return 0, ierr.WithError(err).
			WithHint("Failed to count inbound invoices").
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return count, nil
}

func (r *expenseRepository) buildWhere(filter *types.ExpenseFilter) (string, []interface{}) {
	conditions := []string{"customer_id = $1", "status = $2"}
	args := []interface{}{filter.CustomerID, types.StatusPublished}

	if filter.ExpenseStatus != "" {
		args = append(args, filter.ExpenseStatus)
		conditions = append(conditions, fmt.Sprintf("expense_status = $%d", len(args)))
	}

	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			args = append(args, *filter.StartTime)
			conditions = append(conditions, fmt.Sprintf("document_date >= $%d", len(args)))
		}
		if filter.EndTime != nil {
			args = append(args, *filter.EndTime)
			conditions = append(conditions, fmt.Sprintf("document_date <= $%d", len(args)))
		}
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func sortDirection(filter *types.ExpenseFilter) string {
	if filter.GetOrder() == types.OrderAsc {
		return "ASC"
	}
	return "DESC"
}
