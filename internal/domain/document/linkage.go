package document

import (
	"github.com/numera/numera/internal/types"
	"github.com/samber/lo"
)

// LinkageKind discriminates the receipt linkage union
type LinkageKind string

const (
	// LinkageKindNone marks a standalone receipt
	LinkageKindNone LinkageKind = "none"
	// LinkageKindSingleInvoice settles one invoice with an arbitrary payment
	// amount, possibly leaving it partial
	LinkageKindSingleInvoice LinkageKind = "single_invoice"
	// LinkageKindMultiInvoice settles up to ten invoices in full at once
	LinkageKindMultiInvoice LinkageKind = "multi_invoice"
)

// ReceiptLinkage is a tagged union recording which invoices a receipt
// settles. The kind is always explicit; there is no implicit "maybe linked"
// state and no scanning across document types to find out.
type ReceiptLinkage struct {
	Kind           LinkageKind `json:"kind"`
	InvoiceNumbers []string    `json:"invoice_numbers,omitempty"`
}

// NoLinkage returns the linkage of a standalone receipt
func NoLinkage() ReceiptLinkage {
	return ReceiptLinkage{Kind: LinkageKindNone}
}

// SingleInvoiceLinkage links a receipt to exactly one invoice
func SingleInvoiceLinkage(invoiceNumber string) ReceiptLinkage {
	return ReceiptLinkage{
		Kind:           LinkageKindSingleInvoice,
		InvoiceNumbers: []string{invoiceNumber},
	}
}

// MultiInvoiceLinkage links a receipt to a batch of invoices settled in full
func MultiInvoiceLinkage(invoiceNumbers []string) ReceiptLinkage {
	return ReceiptLinkage{
		Kind:           LinkageKindMultiInvoice,
		InvoiceNumbers: invoiceNumbers,
	}
}

// IsLinked reports whether the receipt settles any invoice
func (l ReceiptLinkage) IsLinked() bool {
	return l.Kind == LinkageKindSingleInvoice || l.Kind == LinkageKindMultiInvoice
}

// PrimaryInvoiceNumber returns the first linked invoice number, or empty for
// standalone receipts
func (l ReceiptLinkage) PrimaryInvoiceNumber() string {
	if len(l.InvoiceNumbers) == 0 {
		return ""
	}
	return l.InvoiceNumbers[0]
}

func (l ReceiptLinkage) Validate() error {
	switch l.Kind {
	case "", LinkageKindNone:
		if len(l.InvoiceNumbers) != 0 {
			return NewValidationError("linkage", "standalone receipts cannot carry invoice numbers")
		}
	case LinkageKindSingleInvoice:
		if len(l.InvoiceNumbers) != 1 {
			return NewValidationError("linkage", "single invoice linkage requires exactly one invoice number")
		}
		if l.InvoiceNumbers[0] == "" {
			return NewValidationError("linkage", "invoice number cannot be empty")
		}
	case LinkageKindMultiInvoice:
		if len(l.InvoiceNumbers) < types.MinReceiptInvoices || len(l.InvoiceNumbers) > types.MaxReceiptInvoices {
			return NewValidationError("linkage", "multi invoice linkage requires between 1 and 10 invoice numbers")
		}
		if lo.Contains(l.InvoiceNumbers, "") {
			return NewValidationError("linkage", "invoice numbers cannot be empty")
		}
		if len(lo.Uniq(l.InvoiceNumbers)) != len(l.InvoiceNumbers) {
			return NewValidationError("linkage", "invoice numbers must be unique")
		}
	default:
		return NewValidationError("linkage", "unknown linkage kind")
	}
	return nil
}

// Normalize maps the zero value to an explicit none linkage so stored
// documents always round-trip a concrete kind
func (l ReceiptLinkage) Normalize() ReceiptLinkage {
	if l.Kind == "" {
		return NoLinkage()
	}
	return l
}
