package types

import (
	"fmt"
	"strconv"
	"strings"

	ierr "github.com/numera/numera/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DocumentType categorizes outbound ledger documents
type DocumentType string

const (
	// DocumentTypeInvoice is a demand for payment, issued before money moves
	DocumentTypeInvoice DocumentType = "invoice"
	// DocumentTypeReceipt acknowledges money received, standalone or against invoices
	DocumentTypeReceipt DocumentType = "receipt"
	// DocumentTypeInvoiceReceipt bills and acknowledges payment in a single document
	DocumentTypeInvoiceReceipt DocumentType = "invoice_receipt"
)

func (t DocumentType) String() string {
	return string(t)
}

func (t DocumentType) Validate() error {
	allowed := []DocumentType{
		DocumentTypeInvoice,
		DocumentTypeReceipt,
		DocumentTypeInvoiceReceipt,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid document type").
			WithHint("Please provide a valid document type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
				"got":     t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// NumberPrefix returns the document number prefix for the type
func (t DocumentType) NumberPrefix() string {
	switch t {
	case DocumentTypeInvoice:
		return "I"
	case DocumentTypeReceipt:
		return "R"
	case DocumentTypeInvoiceReceipt:
		return "IR"
	default:
		return ""
	}
}

// RequiresPaymentMethod reports whether the type documents money actually
// received and therefore must carry a payment method
func (t DocumentType) RequiresPaymentMethod() bool {
	return t == DocumentTypeReceipt || t == DocumentTypeInvoiceReceipt
}

// FormatDocumentNumber renders a document number as {prefix}-{year}-{seq},
// e.g. I-2026-1 or IR-2026-42. Sequence values are not zero padded.
func FormatDocumentNumber(t DocumentType, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%d", t.NumberPrefix(), year, seq)
}

// ParseDocumentNumber splits a document number into its type, year and
// sequence components
func ParseDocumentNumber(number string) (DocumentType, int, int64, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return "", 0, 0, invalidDocumentNumber(number)
	}

	var docType DocumentType
	switch parts[0] {
	case "I":
		docType = DocumentTypeInvoice
	case "R":
		docType = DocumentTypeReceipt
	case "IR":
		docType = DocumentTypeInvoiceReceipt
	default:
		return "", 0, 0, invalidDocumentNumber(number)
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 1970 {
		return "", 0, 0, invalidDocumentNumber(number)
	}

	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq < 1 {
		return "", 0, 0, invalidDocumentNumber(number)
	}

	return docType, year, seq, nil
}

func invalidDocumentNumber(number string) error {
	return ierr.NewError("invalid document number").
		WithHintf("Document numbers look like I-2026-1, got '%s'", number).
		Mark(ierr.ErrValidation)
}

// PaymentStatus represents how much of a document's amount has been settled
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusUnpaid,
		PaymentStatusPartial,
		PaymentStatusPaid,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid payment status").
			WithHint("Please provide a valid payment status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// AmountTolerance is the absolute tolerance for monetary equality checks
var AmountTolerance = decimal.NewFromFloat(0.01)

// DerivePaymentStatus computes the payment status from the paid and total
// amounts. The status is always a pure function of the two values:
// nothing paid is unpaid, anything in between is partial, and paid at or
// above the total is paid.
func DerivePaymentStatus(paid, amount decimal.Decimal) PaymentStatus {
	if paid.LessThanOrEqual(decimal.Zero) {
		return PaymentStatusUnpaid
	}
	if paid.GreaterThanOrEqual(amount) {
		return PaymentStatusPaid
	}
	return PaymentStatusPartial
}

// PaymentMethod is the instrument used to settle a document
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodBit          PaymentMethod = "bit"
	PaymentMethodOther        PaymentMethod = "other"
)

// PaymentMethodUnspecified keys aggregation buckets for documents that carry
// no payment method
const PaymentMethodUnspecified = "unspecified"

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) Validate() error {
	allowed := []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodCreditCard,
		PaymentMethodBankTransfer,
		PaymentMethodCheck,
		PaymentMethodBit,
		PaymentMethodOther,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid payment method").
			WithHint("Please provide a valid payment method").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GeneratedBy records the acting user behind a document write
type GeneratedBy struct {
	UserID     string `json:"user_id,omitempty"`
	Username   string `json:"username,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
}

const (
	// MinReceiptInvoices and MaxReceiptInvoices bound how many invoices a
	// single receipt may settle at once
	MinReceiptInvoices = 1
	MaxReceiptInvoices = 10
)

// DocumentFilter represents the filter options for listing ledger documents
type DocumentFilter struct {
	*QueryFilter
	*TimeRangeFilter

	// customer_id scopes the query to one ledger partition and is required
	CustomerID string `json:"customer_id,omitempty" form:"customer_id"`

	// document_numbers restricts results to the given numbers
	DocumentNumbers []string `json:"document_numbers,omitempty" form:"document_numbers"`

	// document_type restricts results to a single document type
	DocumentType DocumentType `json:"document_type,omitempty" form:"document_type"`

	// payment_status restricts results to documents in any of the listed
	// payment states
	PaymentStatus []PaymentStatus `json:"payment_status,omitempty" form:"payment_status"`
}

// NewDocumentFilter creates a new document filter with default options
func NewDocumentFilter() *DocumentFilter {
	return &DocumentFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitDocumentFilter creates a new document filter without pagination
func NewNoLimitDocumentFilter() *DocumentFilter {
	return &DocumentFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *DocumentFilter) Validate() error {
	if f.CustomerID == "" {
		return ierr.NewError("customer_id is required").
			WithHint("Document queries are scoped to a single customer ledger").
			Mark(ierr.ErrValidation)
	}
	if f.DocumentType != "" {
		if err := f.DocumentType.Validate(); err != nil {
			return err
		}
	}
	for _, status := range f.PaymentStatus {
		if err := status.Validate(); err != nil {
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
func (f *DocumentFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset implements BaseFilter interface
func (f *DocumentFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

// GetSort implements BaseFilter interface
func (f *DocumentFilter) GetSort() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetSort()
	}
	return f.QueryFilter.GetSort()
}

// GetOrder implements BaseFilter interface
func (f *DocumentFilter) GetOrder() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOrder()
	}
	return f.QueryFilter.GetOrder()
}

// GetStatus implements BaseFilter interface
func (f *DocumentFilter) GetStatus() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetStatus()
	}
	return f.QueryFilter.GetStatus()
}

func (f *DocumentFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().IsUnlimited()
	}
	return f.QueryFilter.IsUnlimited()
}
