package service

import (
	"context"

	"github.com/numera/numera/internal/cache"
	"github.com/numera/numera/internal/domain/document"
	"github.com/numera/numera/internal/domain/expense"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// ReportDataService flattens both ledgers into normalized report rows.
// Revenue rows come from the outbound document ledger, selected by
// generation timestamp; expense rows come from the processed inbound
// invoice ledger, selected by document date. Rows missing a counterparty
// name or carrying a non positive amount are skipped and logged, never
// errored on.
type ReportDataService interface {
	// FetchForRange returns the normalized rows for one report side. For
	// balance reports both sides are fetched concurrently and concatenated,
	// revenue first.
	FetchForRange(ctx context.Context, customerID string, dateRange types.DateRange, kind types.ReportKind) ([]types.NormalizedRecord, error)

	// FetchRevenueRecords returns the normalized outbound documents whose
	// generation timestamp falls inside the range
	FetchRevenueRecords(ctx context.Context, customerID string, dateRange types.DateRange) ([]types.NormalizedRecord, error)

	// FetchExpenseRecords returns the normalized processed inbound invoices
	// whose document date falls inside the range
	FetchExpenseRecords(ctx context.Context, customerID string, dateRange types.DateRange) ([]types.NormalizedRecord, error)

	// FetchBalanceSides fetches both report sides concurrently
	FetchBalanceSides(ctx context.Context, customerID string, dateRange types.DateRange) (revenue []types.NormalizedRecord, expenses []types.NormalizedRecord, err error)
}

type reportDataService struct {
	ServiceParams
}

func NewReportDataService(params ServiceParams) ReportDataService {
	return &reportDataService{
		ServiceParams: params,
	}
}

func (s *reportDataService) FetchForRange(ctx context.Context, customerID string, dateRange types.DateRange, kind types.ReportKind) ([]types.NormalizedRecord, error) {
	if customerID == "" {
		return nil, ierr.NewError("customer_id is required").
			WithHint("Reports are scoped to a single customer ledger").
			Mark(ierr.ErrValidation)
	}
	if err := dateRange.Validate(); err != nil {
		return nil, err
	}
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	switch kind {
	case types.ReportKindRevenue:
		return s.FetchRevenueRecords(ctx, customerID, dateRange)
	case types.ReportKindExpenses:
		return s.FetchExpenseRecords(ctx, customerID, dateRange)
	default:
		revenue, expenses, err := s.FetchBalanceSides(ctx, customerID, dateRange)
		if err != nil {
			return nil, err
		}
		return append(revenue, expenses...), nil
	}
}

func (s *reportDataService) FetchRevenueRecords(ctx context.Context, customerID string, dateRange types.DateRange) ([]types.NormalizedRecord, error) {
	filter := types.NewNoLimitDocumentFilter()
	filter.CustomerID = customerID
	filter.TimeRangeFilter = types.NewTimeRangeFilter(dateRange)

	docs, err := s.DocumentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	records := make([]types.NormalizedRecord, 0, len(docs))
	for _, doc := range docs {
		if doc.CustomerName == "" || !doc.Amount.GreaterThan(decimal.Zero) {
			s.Logger.Warnw("skipping unreportable document",
				"customer_id", customerID,
				"document_number", doc.DocumentNumber,
				"customer_name", doc.CustomerName,
				"amount", doc.Amount,
			)
			continue
		}
		records = append(records, normalizeDocument(doc))
	}

	s.Logger.Debugw("fetched revenue records",
		"customer_id", customerID,
		"from", dateRange.Start,
		"to", dateRange.End,
		"count", len(records),
	)
	return records, nil
}

func (s *reportDataService) FetchExpenseRecords(ctx context.Context, customerID string, dateRange types.DateRange) ([]types.NormalizedRecord, error) {
	if cached := s.getCachedExpenseRange(ctx, customerID, dateRange); cached != nil {
		return cached, nil
	}

	filter := types.NewNoLimitExpenseFilter()
	filter.CustomerID = customerID
	filter.ExpenseStatus = types.ExpenseStatusProcessed
	filter.TimeRangeFilter = types.NewTimeRangeFilter(dateRange)

	rows, err := s.ExpenseRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	records := make([]types.NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		if !row.IsReportable() {
			s.Logger.Warnw("skipping unreportable inbound invoice",
				"customer_id", customerID,
				"inbound_invoice_id", row.ID,
				"vendor_name", row.VendorName,
				"total_amount", row.TotalAmount,
			)
			continue
		}
		records = append(records, normalizeInboundInvoice(row))
	}

	s.Logger.Debugw("fetched expense records",
		"customer_id", customerID,
		"from", dateRange.Start,
		"to", dateRange.End,
		"count", len(records),
	)
	s.setCachedExpenseRange(ctx, customerID, dateRange, records)
	return records, nil
}

func (s *reportDataService) FetchBalanceSides(ctx context.Context, customerID string, dateRange types.DateRange) ([]types.NormalizedRecord, []types.NormalizedRecord, error) {
	var revenue, expenses []types.NormalizedRecord

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		revenue, err = s.FetchRevenueRecords(ctx, customerID, dateRange)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		expenses, err = s.FetchExpenseRecords(ctx, customerID, dateRange)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}

	return revenue, expenses, nil
}

// getCachedExpenseRange returns a previously fetched expense range. The
// inbound ledger is written by the ingestion pipeline only, so a short cache
// is safe on our read path.
func (s *reportDataService) getCachedExpenseRange(ctx context.Context, customerID string, dateRange types.DateRange) []types.NormalizedRecord {
	if s.Cache == nil {
		return nil
	}

	span := cache.StartCacheSpan(ctx, "expense_range", "get", map[string]interface{}{
		"customer_id": customerID,
	})
	defer cache.FinishSpan(span)

	key := cache.GenerateKey(cache.PrefixExpenseRange, customerID, dateRange.Start.UnixMilli(), dateRange.End.UnixMilli())
	if value, found := s.Cache.Get(ctx, key); found {
		if records, ok := value.([]types.NormalizedRecord); ok {
			cache.SetSpanSuccess(span)
			s.Logger.Debugw("cache hit", "key", key)
			return records
		}
	}
	s.Logger.Debugw("cache miss", "key", key)
	return nil
}

func (s *reportDataService) setCachedExpenseRange(ctx context.Context, customerID string, dateRange types.DateRange, records []types.NormalizedRecord) {
	if s.Cache == nil {
		return
	}

	span := cache.StartCacheSpan(ctx, "expense_range", "set", map[string]interface{}{
		"customer_id": customerID,
	})
	defer cache.FinishSpan(span)

	key := cache.GenerateKey(cache.PrefixExpenseRange, customerID, dateRange.Start.UnixMilli(), dateRange.End.UnixMilli())
	s.Cache.Set(ctx, key, records, cache.ExpiryDefaultInMemory)
}

// normalizeDocument maps an outbound ledger document to a report row. The
// row carries the document's issue date; range selection already happened on
// the generation timestamp.
func normalizeDocument(doc *document.LedgerDocument) types.NormalizedRecord {
	paymentMethod := ""
	if doc.PaymentMethod != nil {
		paymentMethod = doc.PaymentMethod.String()
	}

	isLinked := doc.DocumentType == types.DocumentTypeReceipt && doc.Linkage.IsLinked()
	related := ""
	if isLinked {
		related = doc.Linkage.PrimaryInvoiceNumber()
	}

	return types.NormalizedRecord{
		Number:               doc.DocumentNumber,
		Date:                 doc.IssueDate,
		CustomerName:         doc.CustomerName,
		Amount:               doc.Amount,
		Currency:             doc.Currency,
		PaymentMethod:        paymentMethod,
		DocumentType:         doc.DocumentType,
		PaymentStatus:        doc.PaymentStatus,
		PaidAmount:           doc.PaidAmount,
		RemainingBalance:     doc.RemainingBalance,
		RelatedInvoiceNumber: related,
		IsLinkedReceipt:      isLinked,
	}
}

// normalizeInboundInvoice maps a processed expense row to a report row.
// Expenses are modeled as invoices paid in full; the money left when the
// vendor was paid.
func normalizeInboundInvoice(row *expense.InboundInvoice) types.NormalizedRecord {
	number := row.SourceRef
	if number == "" {
		number = row.ID
	}

	return types.NormalizedRecord{
		Number:           number,
		Date:             row.DocumentDate,
		CustomerName:     row.VendorName,
		Amount:           row.TotalAmount,
		Currency:         row.Currency,
		Category:         row.Category,
		DocumentType:     types.DocumentTypeInvoice,
		PaymentStatus:    types.PaymentStatusPaid,
		PaidAmount:       row.TotalAmount,
		RemainingBalance: decimal.Zero,
	}
}
