package service

import (
	"context"

	"github.com/numera/numera/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MetricsService aggregates normalized report rows into multi currency
// metrics. Aggregation is pure: it never touches a store, it only folds the
// rows it is handed.
type MetricsService interface {
	// CalculateMetrics aggregates one report side. Linked receipts are
	// dropped first so money settling an invoice is never counted twice:
	// once on the invoice, once on the receipt.
	CalculateMetrics(ctx context.Context, records []types.NormalizedRecord) *types.ReportMetrics

	// CalculateBalanceMetrics nets the revenue side against the expense
	// side per currency and derives profit from the primary currency's net
	// cash flow
	CalculateBalanceMetrics(ctx context.Context, revenueRecords, expenseRecords []types.NormalizedRecord) *types.ReportMetrics
}

type metricsService struct {
	ServiceParams
}

func NewMetricsService(params ServiceParams) MetricsService {
	return &metricsService{
		ServiceParams: params,
	}
}

func (s *metricsService) CalculateMetrics(ctx context.Context, records []types.NormalizedRecord) *types.ReportMetrics {
	kept := lo.Filter(records, func(r types.NormalizedRecord, _ int) bool {
		return !r.IsLinkedReceipt
	})

	groups := make(map[string]*types.CurrencyMetrics)
	var order []string

	for _, record := range kept {
		code := types.NormalizeCurrency(record.Currency)
		group, ok := groups[code]
		if !ok {
			group = &types.CurrencyMetrics{
				Currency:       code,
				PaymentMethods: make(map[string]decimal.Decimal),
			}
			groups[code] = group
			order = append(order, code)
		}
		foldRecord(group, record)
	}

	metrics := &types.ReportMetrics{
		DocumentCount: len(kept),
		Currencies:    make([]*types.CurrencyMetrics, 0, len(order)),
	}
	for _, code := range order {
		group := groups[code]
		if group.InvoiceCount > 0 {
			group.AverageAmount = group.TotalInvoiced.
				Div(decimal.NewFromInt(int64(group.InvoiceCount))).
				Round(2)
		}
		metrics.Currencies = append(metrics.Currencies, group)
	}

	if primary := primaryByInvoiced(metrics.Currencies); primary != nil {
		metrics.PrimaryCurrency = primary.Currency
		metrics.TotalInvoiced = primary.TotalInvoiced
		metrics.TotalReceived = primary.TotalReceived
		metrics.TotalOutstanding = primary.TotalOutstanding
	}

	s.Logger.Debugw("calculated report metrics",
		"records", len(records),
		"aggregated", len(kept),
		"currencies", len(metrics.Currencies),
		"primary_currency", metrics.PrimaryCurrency,
	)
	return metrics
}

func (s *metricsService) CalculateBalanceMetrics(ctx context.Context, revenueRecords, expenseRecords []types.NormalizedRecord) *types.ReportMetrics {
	revenue := s.CalculateMetrics(ctx, revenueRecords)
	expenses := s.CalculateMetrics(ctx, expenseRecords)

	// Union of both sides' currencies, revenue side order first
	var order []string
	seen := make(map[string]bool)
	for _, group := range revenue.Currencies {
		order = append(order, group.Currency)
		seen[group.Currency] = true
	}
	for _, group := range expenses.Currencies {
		if !seen[group.Currency] {
			order = append(order, group.Currency)
			seen[group.Currency] = true
		}
	}

	metrics := &types.ReportMetrics{
		DocumentCount: revenue.DocumentCount + expenses.DocumentCount,
		Currencies:    make([]*types.CurrencyMetrics, 0, len(order)),
	}
	for _, code := range order {
		var revInvoiced, revReceived, revOutstanding decimal.Decimal
		var expInvoiced, expReceived decimal.Decimal
		var invoiceCount int

		if rev := revenue.Currency(code); rev != nil {
			revInvoiced = rev.TotalInvoiced
			revReceived = rev.TotalReceived
			revOutstanding = rev.TotalOutstanding
			invoiceCount = rev.InvoiceCount
		}
		if exp := expenses.Currency(code); exp != nil {
			expInvoiced = exp.TotalInvoiced
			expReceived = exp.TotalReceived
		}

		// Currencies present on one side only net against zero
		metrics.Currencies = append(metrics.Currencies, &types.CurrencyMetrics{
			Currency:         code,
			TotalInvoiced:    revInvoiced,
			TotalReceived:    revReceived,
			TotalOutstanding: revOutstanding,
			InvoiceCount:     invoiceCount,
			NetInvoiced:      revInvoiced.Sub(expInvoiced),
			NetCashFlow:      revReceived.Sub(expReceived),
		})
	}

	if primary := primaryByCashFlow(metrics.Currencies); primary != nil {
		metrics.PrimaryCurrency = primary.Currency
		metrics.TotalInvoiced = primary.TotalInvoiced
		metrics.TotalReceived = primary.TotalReceived
		metrics.TotalOutstanding = primary.TotalOutstanding
		metrics.Profit = primary.NetCashFlow

		// Margin is profit relative to the revenue actually received in the
		// primary currency; nothing received means no meaningful margin
		if primary.TotalReceived.GreaterThan(decimal.Zero) {
			metrics.ProfitMargin = metrics.Profit.
				Div(primary.TotalReceived).
				Mul(hundred).
				Round(2)
		}
	}

	s.Logger.Debugw("calculated balance metrics",
		"currencies", len(metrics.Currencies),
		"primary_currency", metrics.PrimaryCurrency,
		"profit", metrics.Profit,
		"profit_margin", metrics.ProfitMargin,
	)
	return metrics
}

// foldRecord folds one normalized row into its currency group. Every row
// counts as invoiced; how much of it counts as received or outstanding
// depends on the document type and payment status. A partially paid invoice
// contributes to both sides and to both counts.
func foldRecord(group *types.CurrencyMetrics, record types.NormalizedRecord) {
	group.TotalInvoiced = group.TotalInvoiced.Add(record.Amount)
	group.InvoiceCount++

	if group.InvoiceCount == 1 {
		group.MaxAmount = record.Amount
		group.MinAmount = record.Amount
	} else {
		group.MaxAmount = decimal.Max(group.MaxAmount, record.Amount)
		group.MinAmount = decimal.Min(group.MinAmount, record.Amount)
	}

	switch record.DocumentType {
	case types.DocumentTypeInvoice:
		switch record.PaymentStatus {
		case types.PaymentStatusPaid:
			group.TotalReceived = group.TotalReceived.Add(record.Amount)
			group.ReceivedCount++
			addReceivedByMethod(group, record.PaymentMethod, record.Amount)
		case types.PaymentStatusPartial:
			group.TotalReceived = group.TotalReceived.Add(record.PaidAmount)
			group.TotalOutstanding = group.TotalOutstanding.Add(record.RemainingBalance)
			group.ReceivedCount++
			group.OutstandingCount++
			addReceivedByMethod(group, record.PaymentMethod, record.PaidAmount)
		default:
			group.TotalOutstanding = group.TotalOutstanding.Add(record.Amount)
			group.OutstandingCount++
		}
	case types.DocumentTypeReceipt, types.DocumentTypeInvoiceReceipt:
		group.TotalReceived = group.TotalReceived.Add(record.Amount)
		group.ReceivedCount++
		addReceivedByMethod(group, record.PaymentMethod, record.Amount)
	}
}

// addReceivedByMethod attributes received money to its payment method. Only
// money that actually moved lands here; outstanding balances have no method.
func addReceivedByMethod(group *types.CurrencyMetrics, method string, amount decimal.Decimal) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return
	}
	if method == "" {
		method = types.PaymentMethodUnspecified
	}
	group.PaymentMethods[method] = group.PaymentMethods[method].Add(amount)
}

// primaryByInvoiced picks the currency group with the largest invoiced
// total, first seen winning ties
func primaryByInvoiced(groups []*types.CurrencyMetrics) *types.CurrencyMetrics {
	var primary *types.CurrencyMetrics
	for _, group := range groups {
		if primary == nil || group.TotalInvoiced.GreaterThan(primary.TotalInvoiced) {
			primary = group
		}
	}
	return primary
}

// primaryByCashFlow picks the currency group with the largest absolute net
// cash flow, breaking ties by absolute net invoiced, then by first seen
func primaryByCashFlow(groups []*types.CurrencyMetrics) *types.CurrencyMetrics {
	var primary *types.CurrencyMetrics
	for _, group := range groups {
		if primary == nil {
			primary = group
			continue
		}
		flow := group.NetCashFlow.Abs()
		best := primary.NetCashFlow.Abs()
		if flow.GreaterThan(best) {
			primary = group
		} else if flow.Equal(best) && group.NetInvoiced.Abs().GreaterThan(primary.NetInvoiced.Abs()) {
			primary = group
		}
	}
	return primary
}
