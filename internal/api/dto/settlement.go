package dto

import (
	"github.com/numera/numera/internal/domain/document"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
	"github.com/numera/numera/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// SettleSingleInvoiceRequest applies one payment against one invoice
type SettleSingleInvoiceRequest struct {
	// customer_id is the unique identifier of the ledger owner
	CustomerID string `json:"customer_id" validate:"required"`

	// invoice_number is the invoice the payment applies to
	InvoiceNumber string `json:"invoice_number" validate:"required"`

	// receipt_number is the receipt documenting the payment
	ReceiptNumber string `json:"receipt_number" validate:"required"`

	// payment_amount is the amount being applied
	PaymentAmount decimal.Decimal `json:"payment_amount" validate:"required"`
}

func (r *SettleSingleInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if !r.PaymentAmount.GreaterThan(decimal.Zero) {
		return ierr.NewError("payment_amount must be positive").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]any{
				"payment_amount": r.PaymentAmount.String(),
			}).Mark(ierr.ErrValidation)
	}

	if _, _, _, err := types.ParseDocumentNumber(r.InvoiceNumber); err != nil {
		return err
	}
	if _, _, _, err := types.ParseDocumentNumber(r.ReceiptNumber); err != nil {
		return err
	}

	return nil
}

// SettleMultipleInvoicesRequest settles a batch of invoices in full with one
// receipt
type SettleMultipleInvoicesRequest struct {
	// customer_id is the unique identifier of the ledger owner
	CustomerID string `json:"customer_id" validate:"required"`

	// invoice_numbers are the invoices the receipt settles, each paid in full
	InvoiceNumbers []string `json:"invoice_numbers" validate:"required,min=1,max=10"`

	// receipt_number is the receipt documenting the payment
	ReceiptNumber string `json:"receipt_number" validate:"required"`

	// receipt_amount is the receipt total; it must cover the invoices exactly
	ReceiptAmount decimal.Decimal `json:"receipt_amount" validate:"required"`
}

func (r *SettleMultipleInvoicesRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if !r.ReceiptAmount.GreaterThan(decimal.Zero) {
		return ierr.NewError("receipt_amount must be positive").
			WithHint("Receipt amount must be greater than zero").
			WithReportableDetails(map[string]any{
				"receipt_amount": r.ReceiptAmount.String(),
			}).Mark(ierr.ErrValidation)
	}

	if len(lo.Uniq(r.InvoiceNumbers)) != len(r.InvoiceNumbers) {
		return ierr.NewError("invoice_numbers contains duplicates").
			WithHint("Each invoice can appear only once in a settlement").
			Mark(ierr.ErrValidation)
	}

	for _, number := range r.InvoiceNumbers {
		if _, _, _, err := types.ParseDocumentNumber(number); err != nil {
			return err
		}
	}
	if _, _, _, err := types.ParseDocumentNumber(r.ReceiptNumber); err != nil {
		return err
	}

	return nil
}

// ValidateSettlementRequest checks a settlement selection before any receipt
// is issued
type ValidateSettlementRequest struct {
	// customer_id is the unique identifier of the ledger owner
	CustomerID string `json:"customer_id" validate:"required"`

	// invoice_numbers are the invoices selected for settlement
	InvoiceNumbers []string `json:"invoice_numbers" validate:"required,min=1,max=10"`

	// receipt_amount is the receipt total the caller intends to issue
	ReceiptAmount decimal.Decimal `json:"receipt_amount" validate:"required"`
}

func (r *ValidateSettlementRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if len(lo.Uniq(r.InvoiceNumbers)) != len(r.InvoiceNumbers) {
		return ierr.NewError("invoice_numbers contains duplicates").
			WithHint("Each invoice can appear only once in a settlement").
			Mark(ierr.ErrValidation)
	}

	for _, number := range r.InvoiceNumbers {
		if _, _, _, err := types.ParseDocumentNumber(number); err != nil {
			return err
		}
	}

	return nil
}

// SettlementResponse reports the invoices touched by a settlement
type SettlementResponse struct {
	// receipt_number is the receipt the settlement was recorded under
	ReceiptNumber string `json:"receipt_number"`

	// invoices are the updated invoices after the settlement
	Invoices []*DocumentResponse `json:"invoices"`
}

// NewSettlementResponse creates a settlement response from updated invoices
func NewSettlementResponse(receiptNumber string, invoices []*document.LedgerDocument) *SettlementResponse {
	return &SettlementResponse{
		ReceiptNumber: receiptNumber,
		Invoices: lo.Map(invoices, func(doc *document.LedgerDocument, _ int) *DocumentResponse {
			return NewDocumentResponse(doc)
		}),
	}
}

// ValidateSettlementResponse reports whether a settlement selection is valid
type ValidateSettlementResponse struct {
	// valid reports whether the selection can be settled as-is
	Valid bool `json:"valid"`

	// message explains why the selection was rejected, when it was
	Message string `json:"message,omitempty"`
}
