package types

import (
	"time"

	ierr "github.com/numera/numera/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ReportKind selects which side of the books a report covers
type ReportKind string

const (
	// ReportKindRevenue covers outbound ledger documents
	ReportKindRevenue ReportKind = "revenue"
	// ReportKindExpenses covers the processed inbound invoice ledger
	ReportKindExpenses ReportKind = "expenses"
	// ReportKindBalance nets revenue against expenses
	ReportKindBalance ReportKind = "balance"
)

func (k ReportKind) String() string {
	return string(k)
}

func (k ReportKind) Validate() error {
	allowed := []ReportKind{
		ReportKindRevenue,
		ReportKindExpenses,
		ReportKindBalance,
	}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid report kind").
			WithHint("Please provide a valid report kind").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// NormalizedRecord is the flat report row every ledger source is mapped to
// before aggregation. Revenue documents and inbound expense invoices both
// normalize to this shape so the aggregator never needs to know where a row
// came from.
type NormalizedRecord struct {
	Number               string          `json:"number"`
	Date                 time.Time       `json:"date"`
	CustomerName         string          `json:"customer_name"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	PaymentMethod        string          `json:"payment_method,omitempty"`
	Category             string          `json:"category,omitempty"`
	DocumentType         DocumentType    `json:"document_type"`
	PaymentStatus        PaymentStatus   `json:"payment_status"`
	PaidAmount           decimal.Decimal `json:"paid_amount"`
	RemainingBalance     decimal.Decimal `json:"remaining_balance"`
	RelatedInvoiceNumber string          `json:"related_invoice_number,omitempty"`
	IsLinkedReceipt      bool            `json:"is_linked_receipt"`
}

// CurrencyMetrics aggregates one currency group of a report
type CurrencyMetrics struct {
	Currency         string          `json:"currency"`
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalReceived    decimal.Decimal `json:"total_received"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`

	InvoiceCount     int `json:"invoice_count"`
	ReceivedCount    int `json:"received_count"`
	OutstandingCount int `json:"outstanding_count"`

	AverageAmount decimal.Decimal `json:"average_amount"`
	MaxAmount     decimal.Decimal `json:"max_amount"`
	MinAmount     decimal.Decimal `json:"min_amount"`

	// PaymentMethods holds only money actually received, keyed by method
	PaymentMethods map[string]decimal.Decimal `json:"payment_methods,omitempty"`

	// NetInvoiced and NetCashFlow are populated by the balance calculation
	// only, netting revenue against expenses for this currency
	NetInvoiced decimal.Decimal `json:"net_invoiced,omitempty"`
	NetCashFlow decimal.Decimal `json:"net_cash_flow,omitempty"`
}

// ReportMetrics is the aggregated result of a report run. The top level
// totals echo the primary currency group. Profit and ProfitMargin are
// populated by the balance calculation only.
type ReportMetrics struct {
	PrimaryCurrency  string          `json:"primary_currency"`
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalReceived    decimal.Decimal `json:"total_received"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	DocumentCount    int             `json:"document_count"`

	Currencies []*CurrencyMetrics `json:"currencies"`

	Profit       decimal.Decimal `json:"profit,omitempty"`
	ProfitMargin decimal.Decimal `json:"profit_margin,omitempty"`
}

// Currency returns the metrics group for a currency code, or nil when the
// report has no rows in that currency
func (m *ReportMetrics) Currency(code string) *CurrencyMetrics {
	for _, group := range m.Currencies {
		if IsMatchingCurrency(group.Currency, code) {
			return group
		}
	}
	return nil
}
