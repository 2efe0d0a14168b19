package service

import (
	"context"
	"time"

	"github.com/numera/numera/internal/api/dto"
	"github.com/numera/numera/internal/domain/document"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/s3"
	"github.com/numera/numera/internal/types"
	"github.com/samber/lo"
)

// DocumentService is the write and read surface of the outbound document
// ledger: invoices, receipts and combined invoice receipts.
type DocumentService interface {
	// CreateDocument allocates a number, persists the document and, for
	// linked receipts, settles the referenced invoices. The number is
	// allocated in its own transaction before the document write, so a
	// failed write burns the number. A settlement failure after the receipt
	// committed surfaces as an error while the receipt stays on the books.
	CreateDocument(ctx context.Context, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error)

	// GetDocument retrieves a single document by its customer scoped number
	GetDocument(ctx context.Context, customerID, documentNumber string) (*dto.DocumentResponse, error)

	// ListDocuments retrieves documents matching the filter
	ListDocuments(ctx context.Context, filter *types.DocumentFilter) (*dto.ListDocumentsResponse, error)

	// ListOpenInvoices retrieves every invoice with money still outstanding,
	// oldest first
	ListOpenInvoices(ctx context.Context, customerID string) (*dto.ListDocumentsResponse, error)

	// AttachArtifact stores the rendered PDF of an issued document and
	// records its storage location on the document
	AttachArtifact(ctx context.Context, req dto.AttachArtifactRequest) (*dto.ArtifactResponse, error)

	// RefreshStorageURL re-issues the presigned download link of a
	// previously attached artifact
	RefreshStorageURL(ctx context.Context, customerID, documentNumber string) (*dto.ArtifactResponse, error)
}

type documentService struct {
	ServiceParams
}

func NewDocumentService(params ServiceParams) DocumentService {
	return &documentService{
		ServiceParams: params,
	}
}

func (s *documentService) CreateDocument(ctx context.Context, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc, err := req.ToDocument(ctx)
	if err != nil {
		return nil, err
	}

	// Numbers are allocated by the clock year of issuance, not the
	// (possibly backdated) issue date
	numbering := NewNumberingService(s.ServiceParams)
	number, err := numbering.NextDocumentNumber(ctx, doc.CustomerID, doc.DocumentType, time.Now().UTC().Year())
	if err != nil {
		return nil, err
	}
	doc.DocumentNumber = number

	if err := doc.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("The document is not in a valid state").
			Mark(ierr.ErrValidation)
	}

	err = s.Store.WithTx(ctx, func(ctx context.Context) error {
		return s.DocumentRepo.Create(ctx, doc)
	})
	if err != nil {
		s.Logger.Errorw("document write failed, allocated number is burned",
			"customer_id", doc.CustomerID,
			"document_number", doc.DocumentNumber,
			"error", err,
		)
		return nil, err
	}

	s.Logger.Infow("created ledger document",
		"customer_id", doc.CustomerID,
		"document_number", doc.DocumentNumber,
		"document_type", doc.DocumentType,
		"amount", doc.Amount,
	)
	s.publishEvent(ctx, types.LedgerEventDocumentCreated, doc.CustomerID, doc.DocumentNumber, doc.Linkage.InvoiceNumbers)

	if doc.DocumentType == types.DocumentTypeReceipt && doc.Linkage.IsLinked() {
		if err := s.settleLinkedInvoices(ctx, doc); err != nil {
			s.Logger.Errorw("receipt issued but linked settlement failed",
				"customer_id", doc.CustomerID,
				"receipt_number", doc.DocumentNumber,
				"linked_invoices", doc.Linkage.InvoiceNumbers,
				"error", err,
			)
			// The receipt committed and stays on the books; the caller gets
			// the settlement failure with the receipt number attached
			return nil, ierr.WithError(err).
				WithHintf("Receipt %s was issued, but applying it to the linked invoices failed", doc.DocumentNumber).
				WithReportableDetails(map[string]any{
					"receipt_number":  doc.DocumentNumber,
					"linked_invoices": doc.Linkage.InvoiceNumbers,
				}).
				Error()
		}
	}

	return dto.NewDocumentResponse(doc), nil
}

// settleLinkedInvoices runs the settlement a linked receipt asks for. The
// receipt has already committed at this point.
func (s *documentService) settleLinkedInvoices(ctx context.Context, doc *document.LedgerDocument) error {
	settlement := NewSettlementService(s.ServiceParams)

	switch doc.Linkage.Kind {
	case document.LinkageKindSingleInvoice:
		_, err := settlement.SettleSingleInvoice(ctx, dto.SettleSingleInvoiceRequest{
			CustomerID:    doc.CustomerID,
			InvoiceNumber: doc.Linkage.PrimaryInvoiceNumber(),
			ReceiptNumber: doc.DocumentNumber,
			PaymentAmount: doc.Amount,
		})
		return err
	case document.LinkageKindMultiInvoice:
		_, err := settlement.SettleMultipleInvoices(ctx, dto.SettleMultipleInvoicesRequest{
			CustomerID:     doc.CustomerID,
			InvoiceNumbers: doc.Linkage.InvoiceNumbers,
			ReceiptNumber:  doc.DocumentNumber,
			ReceiptAmount:  doc.Amount,
		})
		return err
	default:
		return nil
	}
}

func (s *documentService) GetDocument(ctx context.Context, customerID, documentNumber string) (*dto.DocumentResponse, error) {
	if customerID == "" {
		return nil, ierr.NewError("customer_id is required").
			WithHint("Documents are scoped to a single customer ledger").
			Mark(ierr.ErrValidation)
	}
	if _, _, _, err := types.ParseDocumentNumber(documentNumber); err != nil {
		return nil, err
	}

	doc, err := s.DocumentRepo.Get(ctx, customerID, documentNumber)
	if err != nil {
		return nil, err
	}

	resp := dto.NewDocumentResponse(doc)
	if doc.StorageKey != "" && s.S3 != nil {
		url, err := s.S3.GetPresignedUrl(ctx, doc.CustomerID, doc.DocumentNumber)
		if err != nil {
			s.Logger.Warnw("failed to refresh artifact url",
				"document_number", doc.DocumentNumber,
				"error", err,
			)
		} else {
			resp.StorageURL = url
		}
	}
	return resp, nil
}

func (s *documentService) ListDocuments(ctx context.Context, filter *types.DocumentFilter) (*dto.ListDocumentsResponse, error) {
	if filter == nil {
		filter = types.NewDocumentFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	docs, err := s.DocumentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.DocumentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.DocumentResponse, len(docs))
	for i, doc := range docs {
		items[i] = dto.NewDocumentResponse(doc)
	}

	resp := types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *documentService) ListOpenInvoices(ctx context.Context, customerID string) (*dto.ListDocumentsResponse, error) {
	filter := types.NewNoLimitDocumentFilter()
	filter.CustomerID = customerID
	filter.DocumentType = types.DocumentTypeInvoice
	filter.PaymentStatus = []types.PaymentStatus{
		types.PaymentStatusUnpaid,
		types.PaymentStatusPartial,
	}
	filter.QueryFilter.Order = lo.ToPtr(types.OrderAsc)

	return s.ListDocuments(ctx, filter)
}

func (s *documentService) AttachArtifact(ctx context.Context, req dto.AttachArtifactRequest) (*dto.ArtifactResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.S3 == nil {
		return nil, ierr.NewError("artifact storage is not enabled").
			WithHint("Enable S3 storage to attach rendered documents").
			Mark(ierr.ErrInvalidOperation)
	}

	doc, err := s.DocumentRepo.Get(ctx, req.CustomerID, req.DocumentNumber)
	if err != nil {
		return nil, err
	}

	artifact := s3.NewPdfArtifact(req.CustomerID, req.DocumentNumber, req.Data)
	if err := s.S3.UploadArtifact(ctx, artifact); err != nil {
		return nil, err
	}

	url, err := s.S3.GetPresignedUrl(ctx, req.CustomerID, req.DocumentNumber)
	if err != nil {
		return nil, err
	}

	doc.ArtifactID = types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_ARTIFACT)
	doc.StorageKey = s.S3.ObjectKey(req.CustomerID, req.DocumentNumber)
	doc.StorageURL = url
	err = s.Store.WithTx(ctx, func(ctx context.Context) error {
		return s.DocumentRepo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("attached artifact",
		"customer_id", req.CustomerID,
		"document_number", req.DocumentNumber,
		"artifact_id", doc.ArtifactID,
		"storage_key", doc.StorageKey,
	)
	return &dto.ArtifactResponse{
		DocumentNumber: req.DocumentNumber,
		ArtifactID:     doc.ArtifactID,
		URL:            url,
	}, nil
}

func (s *documentService) RefreshStorageURL(ctx context.Context, customerID, documentNumber string) (*dto.ArtifactResponse, error) {
	if s.S3 == nil {
		return nil, ierr.NewError("artifact storage is not enabled").
			WithHint("Enable S3 storage to attach rendered documents").
			Mark(ierr.ErrInvalidOperation)
	}

	doc, err := s.DocumentRepo.Get(ctx, customerID, documentNumber)
	if err != nil {
		return nil, err
	}
	if doc.StorageKey == "" {
		return nil, ierr.NewError("document has no attached artifact").
			WithHintf("Attach an artifact to %s before requesting a download link", documentNumber).
			Mark(ierr.ErrNotFound)
	}

	url, err := s.S3.GetPresignedUrl(ctx, customerID, documentNumber)
	if err != nil {
		return nil, err
	}

	doc.StorageURL = url
	err = s.Store.WithTx(ctx, func(ctx context.Context) error {
		return s.DocumentRepo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	return &dto.ArtifactResponse{
		DocumentNumber: documentNumber,
		ArtifactID:     doc.ArtifactID,
		URL:            url,
	}, nil
}

// publishEvent emits a post commit ledger event. Publishing is best effort;
// a failure is logged, never surfaced to the caller.
func (s *documentService) publishEvent(ctx context.Context, name types.LedgerEventName, customerID, documentNumber string, related []string) {
	if s.EventPublisher == nil {
		return
	}

	event := types.NewLedgerEvent(name, customerID, documentNumber, related)
	event.RequestID = types.GetRequestID(ctx)
	if err := s.EventPublisher.PublishLedgerEvent(ctx, event); err != nil {
		s.Logger.Errorw("failed to publish ledger event",
			"event_name", name,
			"document_number", documentNumber,
			"error", err,
		)
	}
}
