package dto

import (
	"context"
	"time"

	"github.com/numera/numera/internal/domain/document"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
	"github.com/numera/numera/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateDocumentRequest represents the request payload for issuing a new
// ledger document
type CreateDocumentRequest struct {
	// customer_id is the unique identifier of the ledger owner
	CustomerID string `json:"customer_id" validate:"required"`

	// document_type is the kind of document to issue (invoice, receipt, invoice_receipt)
	DocumentType types.DocumentType `json:"document_type" validate:"required"`

	// customer_name is the name of the billed party
	CustomerName string `json:"customer_name" validate:"required"`

	// customer_tax_id is the optional tax identifier of the billed party
	CustomerTaxID string `json:"customer_tax_id,omitempty"`

	// description is an optional text description of the document
	Description string `json:"description,omitempty"`

	// amount is the total monetary amount of the document
	Amount decimal.Decimal `json:"amount" validate:"required"`

	// currency is the ISO currency code; defaults to ILS when omitted
	Currency string `json:"currency,omitempty"`

	// payment_method records how the money moved; required for receipts and
	// invoice receipts
	PaymentMethod *types.PaymentMethod `json:"payment_method,omitempty"`

	// issue_date is the document date in DD/MM/YYYY format; defaults to today
	IssueDate string `json:"issue_date,omitempty"`

	// linked_invoice_number marks a receipt as settling a single invoice
	LinkedInvoiceNumber *string `json:"linked_invoice_number,omitempty"`

	// linked_invoice_numbers marks a receipt as settling several invoices at once
	LinkedInvoiceNumbers []string `json:"linked_invoice_numbers,omitempty"`

	// metadata contains additional custom key-value pairs
	Metadata types.Metadata `json:"metadata,omitempty"`
}

func (r *CreateDocumentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if err := r.DocumentType.Validate(); err != nil {
		return err
	}

	if !r.Amount.GreaterThan(decimal.Zero) {
		return ierr.NewError("amount must be positive").
			WithHint("Document amount must be greater than zero").
			WithReportableDetails(map[string]any{
				"amount": r.Amount.String(),
			}).Mark(ierr.ErrValidation)
	}

	if r.DocumentType.RequiresPaymentMethod() && r.PaymentMethod == nil {
		return ierr.NewError("payment_method is required").
			WithHintf("A payment method is required when issuing a %s", r.DocumentType).
			Mark(ierr.ErrValidation)
	}
	if r.PaymentMethod != nil {
		if err := r.PaymentMethod.Validate(); err != nil {
			return err
		}
	}

	if r.IssueDate != "" {
		if _, err := types.ParseDate(r.IssueDate); err != nil {
			return err
		}
	}

	if r.LinkedInvoiceNumber != nil && len(r.LinkedInvoiceNumbers) > 0 {
		return ierr.NewError("conflicting linkage fields").
			WithHint("Provide either linked_invoice_number or linked_invoice_numbers, not both").
			Mark(ierr.ErrValidation)
	}

	linkage := r.linkage()
	if err := linkage.Validate(); err != nil {
		return err
	}
	if linkage.IsLinked() && r.DocumentType != types.DocumentTypeReceipt {
		return ierr.NewError("only receipts can settle invoices").
			WithHint("Linked invoice numbers are only valid on receipts").
			WithReportableDetails(map[string]any{
				"document_type": r.DocumentType,
			}).Mark(ierr.ErrValidation)
	}

	return nil
}

func (r *CreateDocumentRequest) linkage() document.ReceiptLinkage {
	switch {
	case r.LinkedInvoiceNumber != nil && *r.LinkedInvoiceNumber != "":
		return document.SingleInvoiceLinkage(*r.LinkedInvoiceNumber)
	case len(r.LinkedInvoiceNumbers) > 0:
		return document.MultiInvoiceLinkage(r.LinkedInvoiceNumbers)
	default:
		return document.NoLinkage()
	}
}

// ToDocument converts a create document request to a ledger document. The
// document number stays empty; the numbering service assigns it.
func (r *CreateDocumentRequest) ToDocument(ctx context.Context) (*document.LedgerDocument, error) {
	issueDate := time.Now().UTC()
	if r.IssueDate != "" {
		parsed, err := types.ParseDate(r.IssueDate)
		if err != nil {
			return nil, err
		}
		issueDate = parsed
	}

	doc := &document.LedgerDocument{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		CustomerID:    r.CustomerID,
		DocumentType:  r.DocumentType,
		CustomerName:  r.CustomerName,
		CustomerTaxID: r.CustomerTaxID,
		Description:   r.Description,
		Amount:        r.Amount,
		Currency:      types.NormalizeCurrency(r.Currency),
		PaymentMethod: r.PaymentMethod,
		IssueDate:     issueDate,
		GeneratedAt:   time.Now().UTC(),
		GeneratedBy: types.GeneratedBy{
			UserID:     types.GetUserID(ctx),
			Username:   types.GetUsername(ctx),
			CustomerID: r.CustomerID,
		},
		Linkage:   r.linkage(),
		Metadata:  r.Metadata,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}

	doc.InitializePaymentFields()
	return doc, nil
}

// DocumentResponse represents a ledger document in API responses
type DocumentResponse struct {
	// id is the unique identifier for this document
	ID string `json:"id"`

	// customer_id is the unique identifier of the ledger owner
	CustomerID string `json:"customer_id"`

	// document_number is the sequential human-facing identifier, e.g. I-2026-1
	DocumentNumber string `json:"document_number"`

	// document_type is the kind of document (invoice, receipt, invoice_receipt)
	DocumentType types.DocumentType `json:"document_type"`

	// customer_name is the name of the billed party
	CustomerName string `json:"customer_name"`

	// customer_tax_id is the optional tax identifier of the billed party
	CustomerTaxID string `json:"customer_tax_id,omitempty"`

	// description is the optional text description of the document
	Description string `json:"description,omitempty"`

	// amount is the total monetary amount of the document
	Amount decimal.Decimal `json:"amount"`

	// currency is the ISO currency code of the document
	Currency string `json:"currency"`

	// payment_method records how the money moved, when known
	PaymentMethod *types.PaymentMethod `json:"payment_method,omitempty"`

	// issue_date is the document date in DD/MM/YYYY format
	IssueDate string `json:"issue_date"`

	// generated_at is the creation timestamp of the document
	GeneratedAt time.Time `json:"generated_at"`

	// payment_status is the derived payment state (unpaid, partial, paid)
	PaymentStatus types.PaymentStatus `json:"payment_status"`

	// paid_amount is the amount received against this document so far
	PaidAmount decimal.Decimal `json:"paid_amount"`

	// remaining_balance is the amount still outstanding
	RemainingBalance decimal.Decimal `json:"remaining_balance"`

	// related_receipt_ids lists the receipts applied to this invoice in
	// first-applied order
	RelatedReceiptIDs []string `json:"related_receipt_ids,omitempty"`

	// linkage records which invoices a receipt settles
	Linkage document.ReceiptLinkage `json:"linkage"`

	// artifact_id is the short reference of the attached rendered copy
	ArtifactID string `json:"artifact_id,omitempty"`

	// storage_url is a time-limited link to the rendered document, when one
	// has been attached
	StorageURL string `json:"storage_url,omitempty"`

	// metadata contains additional custom key-value pairs
	Metadata types.Metadata `json:"metadata,omitempty"`
}

// NewDocumentResponse creates a new document response from a domain document
func NewDocumentResponse(doc *document.LedgerDocument) *DocumentResponse {
	return &DocumentResponse{
		ID:                doc.ID,
		CustomerID:        doc.CustomerID,
		DocumentNumber:    doc.DocumentNumber,
		DocumentType:      doc.DocumentType,
		CustomerName:      doc.CustomerName,
		CustomerTaxID:     doc.CustomerTaxID,
		Description:       doc.Description,
		Amount:            doc.Amount,
		Currency:          doc.Currency,
		PaymentMethod:     doc.PaymentMethod,
		IssueDate:         types.FormatDate(doc.IssueDate),
		GeneratedAt:       doc.GeneratedAt,
		PaymentStatus:     doc.PaymentStatus,
		PaidAmount:        doc.PaidAmount,
		RemainingBalance:  doc.RemainingBalance,
		RelatedReceiptIDs: doc.RelatedReceiptIDs,
		Linkage:           doc.Linkage.Normalize(),
		ArtifactID:        doc.ArtifactID,
		StorageURL:        doc.StorageURL,
		Metadata:          doc.Metadata,
	}
}

// ListDocumentsResponse represents a paginated list of documents
type ListDocumentsResponse = types.ListResponse[*DocumentResponse]

// AttachArtifactRequest uploads the rendered PDF of an issued document
type AttachArtifactRequest struct {
	// customer_id is the unique identifier of the ledger owner
	CustomerID string `json:"customer_id" validate:"required"`

	// document_number identifies the document the artifact belongs to
	DocumentNumber string `json:"document_number" validate:"required"`

	// data is the base64 encoded PDF payload
	Data []byte `json:"data" validate:"required"`
}

func (r *AttachArtifactRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if _, _, _, err := types.ParseDocumentNumber(r.DocumentNumber); err != nil {
		return err
	}
	return nil
}

// ArtifactResponse carries the download link of an attached artifact
type ArtifactResponse struct {
	// document_number identifies the document the artifact belongs to
	DocumentNumber string `json:"document_number"`

	// artifact_id is the short reference assigned to the attached copy
	ArtifactID string `json:"artifact_id,omitempty"`

	// url is a presigned, time-limited download link
	URL string `json:"url"`
}
