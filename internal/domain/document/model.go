package document

import (
	"time"

	"github.com/numera/numera/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// LedgerDocument represents one outbound document in a customer's ledger:
// an invoice, a receipt or a combined invoice-receipt. Documents are keyed
// by (customer_id, document_number) and never deleted; payment state is the
// only part that changes after creation.
type LedgerDocument struct {
	ID             string             `json:"id"`
	CustomerID     string             `json:"customer_id"`
	DocumentNumber string             `json:"document_number"`
	DocumentType   types.DocumentType `json:"document_type"`

	// CustomerName and CustomerTaxID describe the billed party, not the
	// ledger owner
	CustomerName  string `json:"customer_name"`
	CustomerTaxID string `json:"customer_tax_id,omitempty"`
	Description   string `json:"description,omitempty"`

	Amount        decimal.Decimal      `json:"amount"`
	Currency      string               `json:"currency"`
	PaymentMethod *types.PaymentMethod `json:"payment_method,omitempty"`

	IssueDate   time.Time         `json:"issue_date"`
	GeneratedAt time.Time         `json:"generated_at"`
	GeneratedBy types.GeneratedBy `json:"generated_by"`

	PaymentStatus     types.PaymentStatus `json:"payment_status"`
	PaidAmount        decimal.Decimal     `json:"paid_amount"`
	RemainingBalance  decimal.Decimal     `json:"remaining_balance"`
	RelatedReceiptIDs []string            `json:"related_receipt_ids,omitempty"`

	// Linkage is meaningful on receipts only and records which invoices the
	// receipt settles
	Linkage ReceiptLinkage `json:"linkage"`

	// ArtifactID is the short human-readable reference assigned when a
	// rendered copy is attached
	ArtifactID string `json:"artifact_id,omitempty"`
	StorageKey string `json:"storage_key,omitempty"`
	StorageURL string `json:"storage_url,omitempty"`

	Metadata types.Metadata `json:"metadata,omitempty"`
	Version  int64          `json:"version"`
	types.BaseModel
}

// InitializePaymentFields sets the payment state a freshly created document
// starts in. Invoices await payment; receipts and invoice-receipts document
// money already received.
func (d *LedgerDocument) InitializePaymentFields() {
	switch d.DocumentType {
	case types.DocumentTypeInvoice:
		d.PaymentStatus = types.PaymentStatusUnpaid
		d.PaidAmount = decimal.Zero
		d.RemainingBalance = d.Amount
	case types.DocumentTypeReceipt, types.DocumentTypeInvoiceReceipt:
		d.PaymentStatus = types.PaymentStatusPaid
		d.PaidAmount = d.Amount
		d.RemainingBalance = decimal.Zero
	}
}

// ApplyPayment records a payment against an invoice. Both paid amount and
// remaining balance are clamped so that paid + remaining always equals the
// document amount, and the payment status is re-derived from the result.
func (d *LedgerDocument) ApplyPayment(payment decimal.Decimal, receiptNumber string) error {
	if d.DocumentType != types.DocumentTypeInvoice {
		return NewValidationError("document_type", "payments can only be applied to invoices")
	}
	if payment.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("payment_amount", "must be positive")
	}

	d.PaidAmount = decimal.Min(d.Amount, d.PaidAmount.Add(payment))
	d.RemainingBalance = d.Amount.Sub(d.PaidAmount)
	d.PaymentStatus = types.DerivePaymentStatus(d.PaidAmount, d.Amount)
	d.AttachReceipt(receiptNumber)
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// SettleInFull marks an invoice fully paid regardless of how much was
// outstanding before
func (d *LedgerDocument) SettleInFull(receiptNumber string) error {
	if d.DocumentType != types.DocumentTypeInvoice {
		return NewValidationError("document_type", "only invoices can be settled")
	}

	d.PaidAmount = d.Amount
	d.RemainingBalance = decimal.Zero
	d.PaymentStatus = types.PaymentStatusPaid
	d.AttachReceipt(receiptNumber)
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// AttachReceipt adds a receipt number to the invoice's receipt set. The set
// keeps first-append order and never holds duplicates.
func (d *LedgerDocument) AttachReceipt(receiptNumber string) {
	if receiptNumber == "" {
		return
	}
	if !lo.Contains(d.RelatedReceiptIDs, receiptNumber) {
		d.RelatedReceiptIDs = append(d.RelatedReceiptIDs, receiptNumber)
	}
}

// CanBeSettled reports whether the document is an invoice with money still
// outstanding
func (d *LedgerDocument) CanBeSettled() bool {
	return d.DocumentType == types.DocumentTypeInvoice &&
		d.RemainingBalance.GreaterThan(decimal.Zero)
}

func (d *LedgerDocument) Validate() error {
	if err := d.DocumentType.Validate(); err != nil {
		return err
	}

	if d.CustomerID == "" {
		return NewValidationError("customer_id", "is required")
	}

	if d.DocumentNumber == "" {
		return NewValidationError("document_number", "is required")
	}

	if d.CustomerName == "" {
		return NewValidationError("customer_name", "is required")
	}

	if d.Currency == "" {
		return NewValidationError("currency", "is required")
	}

	if d.IssueDate.IsZero() {
		return NewValidationError("issue_date", "is required")
	}

	// amount validations
	if !d.Amount.GreaterThan(decimal.Zero) {
		return NewValidationError("amount", "must be positive")
	}

	if d.PaidAmount.IsNegative() {
		return NewValidationError("paid_amount", "must be non negative")
	}

	if d.RemainingBalance.IsNegative() {
		return NewValidationError("remaining_balance", "must be non negative")
	}

	drift := d.PaidAmount.Add(d.RemainingBalance).Sub(d.Amount).Abs()
	if drift.GreaterThan(types.AmountTolerance) {
		return NewValidationError("remaining_balance", "paid_amount + remaining_balance must equal amount")
	}

	if err := d.PaymentStatus.Validate(); err != nil {
		return err
	}

	if d.PaymentStatus != types.DerivePaymentStatus(d.PaidAmount, d.Amount) {
		return NewValidationError("payment_status", "does not match paid and total amounts")
	}

	if d.DocumentType.RequiresPaymentMethod() {
		if d.PaymentMethod == nil {
			return NewValidationError("payment_method", "is required for receipts and invoice receipts")
		}
	}
	if d.PaymentMethod != nil {
		if err := d.PaymentMethod.Validate(); err != nil {
			return err
		}
	}

	if err := d.Linkage.Validate(); err != nil {
		return err
	}
	if d.Linkage.IsLinked() && d.DocumentType != types.DocumentTypeReceipt {
		return NewValidationError("linkage", "only receipts can settle invoices")
	}

	return nil
}
