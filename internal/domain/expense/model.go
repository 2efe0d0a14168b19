package expense

import (
	"time"

	"github.com/numera/numera/internal/types"
	"github.com/shopspring/decimal"
)

// InboundInvoice is one row of the separate expense ledger filled by the
// document ingestion pipeline. The ledger engine only ever reads this data;
// writes happen upstream.
type InboundInvoice struct {
	ID            string              `db:"id" json:"id"`
	CustomerID    string              `db:"customer_id" json:"customer_id"`
	VendorName    string              `db:"vendor_name" json:"vendor_name"`
	VendorTaxID   string              `db:"vendor_tax_id" json:"vendor_tax_id,omitempty"`
	Category      string              `db:"category" json:"category,omitempty"`
	Description   string              `db:"description" json:"description,omitempty"`
	TotalAmount   decimal.Decimal     `db:"total_amount" json:"total_amount"`
	Currency      string              `db:"currency" json:"currency"`
	ExpenseStatus types.ExpenseStatus `db:"expense_status" json:"expense_status"`
	DocumentDate  time.Time           `db:"document_date" json:"document_date"`
	ProcessedAt   *time.Time          `db:"processed_at" json:"processed_at,omitempty"`
	SourceRef     string              `db:"source_ref" json:"source_ref,omitempty"`
	Metadata      types.Metadata      `db:"metadata" json:"metadata,omitempty"`
	types.BaseModel
}

// IsReportable reports whether the row is trustworthy enough to feed into
// report aggregation. Rows that never finished ingestion, rows with no
// vendor and rows with a non positive amount are skipped, never errored on.
func (i *InboundInvoice) IsReportable() bool {
	if i.ExpenseStatus != types.ExpenseStatusProcessed {
		return false
	}
	if i.VendorName == "" {
		return false
	}
	return i.TotalAmount.GreaterThan(decimal.Zero)
}
