package service

import (
	"strings"
	"testing"
	"time"

	"github.com/numera/numera/internal/api/dto"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/testutil"
	"github.com/numera/numera/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type DocumentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service DocumentService
}

func TestDocumentService(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewDocumentService(testServiceParams(&s.BaseServiceTestSuite))
}

func (s *DocumentServiceSuite) year() int {
	return time.Now().UTC().Year()
}

func (s *DocumentServiceSuite) TestCreateInvoice() {
	ctx := s.GetContext()

	resp, err := s.service.CreateDocument(ctx, dto.CreateDocumentRequest{
		CustomerID:   "cust_1",
		DocumentType: types.DocumentTypeInvoice,
		CustomerName: "Acme Industries",
		Amount:       decimal.NewFromFloat(1500.50),
		Currency:     "ils",
		IssueDate:    "15/03/2026",
		Description:  "March retainer",
	})
	s.NoError(err)
	s.Equal(types.FormatDocumentNumber(types.DocumentTypeInvoice, s.year(), 1), resp.DocumentNumber)
	s.Equal("ILS", resp.Currency)
	s.Equal("15/03/2026", resp.IssueDate)
	s.Equal(types.PaymentStatusUnpaid, resp.PaymentStatus)
	s.True(resp.PaidAmount.IsZero())
	s.True(resp.RemainingBalance.Equal(decimal.NewFromFloat(1500.50)))

	events := s.GetPublisher().GetEvents()
	s.Len(events, 1)
	s.Equal(types.LedgerEventDocumentCreated, events[0].EventName)
	s.Equal(resp.DocumentNumber, events[0].DocumentNumber)
}

func (s *DocumentServiceSuite) TestCreateInvoiceReceipt() {
	ctx := s.GetContext()

	resp, err := s.service.CreateDocument(ctx, dto.CreateDocumentRequest{
		CustomerID:    "cust_1",
		DocumentType:  types.DocumentTypeInvoiceReceipt,
		CustomerName:  "Acme Industries",
		Amount:        decimal.NewFromInt(900),
		PaymentMethod: lo.ToPtr(types.PaymentMethodCreditCard),
	})
	s.NoError(err)
	s.Equal(types.FormatDocumentNumber(types.DocumentTypeInvoiceReceipt, s.year(), 1), resp.DocumentNumber)
	s.Equal(types.PaymentStatusPaid, resp.PaymentStatus)
	s.True(resp.PaidAmount.Equal(decimal.NewFromInt(900)))
	s.True(resp.RemainingBalance.IsZero())
}

func (s *DocumentServiceSuite) TestCreateDocumentValidation() {
	ctx := s.GetContext()

	cases := []dto.CreateDocumentRequest{
		// missing customer name
		{
			CustomerID:   "cust_1",
			DocumentType: types.DocumentTypeInvoice,
			Amount:       decimal.NewFromInt(100),
		},
		// non positive amount
		{
			CustomerID:   "cust_1",
			DocumentType: types.DocumentTypeInvoice,
			CustomerName: "Acme Industries",
			Amount:       decimal.NewFromInt(-5),
		},
		// receipt without a payment method
		{
			CustomerID:   "cust_1",
			DocumentType: types.DocumentTypeReceipt,
			CustomerName: "Acme Industries",
			Amount:       decimal.NewFromInt(100),
		},
		// both linkage fields at once
		{
			CustomerID:           "cust_1",
			DocumentType:         types.DocumentTypeReceipt,
			CustomerName:         "Acme Industries",
			Amount:               decimal.NewFromInt(100),
			PaymentMethod:        lo.ToPtr(types.PaymentMethodCash),
			LinkedInvoiceNumber:  lo.ToPtr("I-2026-1"),
			LinkedInvoiceNumbers: []string{"I-2026-2"},
		},
		// linkage on an invoice
		{
			CustomerID:          "cust_1",
			DocumentType:        types.DocumentTypeInvoice,
			CustomerName:        "Acme Industries",
			Amount:              decimal.NewFromInt(100),
			LinkedInvoiceNumber: lo.ToPtr("I-2026-1"),
		},
	}

	for _, req := range cases {
		_, err := s.service.CreateDocument(ctx, req)
		s.Error(err)
		s.True(ierr.IsValidation(err))
	}
}

func (s *DocumentServiceSuite) TestDuplicateNumberBurnsTheAllocation() {
	ctx := s.GetContext()

	// Occupy the number the allocator will hand out next
	taken := newTestInvoice(ctx, "cust_1", types.FormatDocumentNumber(types.DocumentTypeInvoice, s.year(), 1), decimal.NewFromInt(100))
	s.NoError(s.GetStores().DocumentRepo.Create(ctx, taken))

	req := dto.CreateDocumentRequest{
		CustomerID:   "cust_1",
		DocumentType: types.DocumentTypeInvoice,
		CustomerName: "Acme Industries",
		Amount:       decimal.NewFromInt(250),
	}

	_, err := s.service.CreateDocument(ctx, req)
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))

	// The failed write consumed sequence 1; the retry gets sequence 2
	resp, err := s.service.CreateDocument(ctx, req)
	s.NoError(err)
	s.Equal(types.FormatDocumentNumber(types.DocumentTypeInvoice, s.year(), 2), resp.DocumentNumber)
}

func (s *DocumentServiceSuite) TestCreateLinkedReceiptSettlesSingleInvoice() {
	ctx := s.GetContext()
	repo := s.GetStores().DocumentRepo

	invoice := newTestInvoice(ctx, "cust_1", "I-2026-1", decimal.NewFromInt(1000))
	s.NoError(repo.Create(ctx, invoice))

	resp, err := s.service.CreateDocument(ctx, dto.CreateDocumentRequest{
		CustomerID:          "cust_1",
		DocumentType:        types.DocumentTypeReceipt,
		CustomerName:        "Acme Industries",
		Amount:              decimal.NewFromInt(400),
		PaymentMethod:       lo.ToPtr(types.PaymentMethodBankTransfer),
		LinkedInvoiceNumber: lo.ToPtr("I-2026-1"),
	})
	s.NoError(err)
	s.Equal(types.FormatDocumentNumber(types.DocumentTypeReceipt, s.year(), 1), resp.DocumentNumber)

	settled, err := repo.Get(ctx, "cust_1", "I-2026-1")
	s.NoError(err)
	s.Equal(types.PaymentStatusPartial, settled.PaymentStatus)
	s.True(settled.PaidAmount.Equal(decimal.NewFromInt(400)))
	s.True(settled.RemainingBalance.Equal(decimal.NewFromInt(600)))
	s.True(settled.PaidAmount.Add(settled.RemainingBalance).Equal(settled.Amount))
	s.Contains(settled.RelatedReceiptIDs, resp.DocumentNumber)

	names := lo.Map(s.GetPublisher().GetEvents(), func(e *types.LedgerEvent, _ int) types.LedgerEventName {
		return e.EventName
	})
	s.Contains(names, types.LedgerEventDocumentCreated)
	s.Contains(names, types.LedgerEventInvoicesSettled)
}

func (s *DocumentServiceSuite) TestCreateLinkedReceiptSettlesMultipleInvoices() {
	ctx := s.GetContext()
	repo := s.GetStores().DocumentRepo

	s.NoError(repo.Create(ctx, newTestInvoice(ctx, "cust_1", "I-2026-1", decimal.NewFromInt(300))))
	s.NoError(repo.Create(ctx, newTestInvoice(ctx, "cust_1", "I-2026-2", decimal.NewFromInt(700))))

	_, err := s.service.CreateDocument(ctx, dto.CreateDocumentRequest{
		CustomerID:           "cust_1",
		DocumentType:         types.DocumentTypeReceipt,
		CustomerName:         "Acme Industries",
		Amount:               decimal.NewFromInt(1000),
		PaymentMethod:        lo.ToPtr(types.PaymentMethodBankTransfer),
		LinkedInvoiceNumbers: []string{"I-2026-1", "I-2026-2"},
	})
	s.NoError(err)

	for _, number := range []string{"I-2026-1", "I-2026-2"} {
		settled, err := repo.Get(ctx, "cust_1", number)
		s.NoError(err)
		s.Equal(types.PaymentStatusPaid, settled.PaymentStatus)
		s.True(settled.RemainingBalance.IsZero())
	}
}

func (s *DocumentServiceSuite) TestLinkedSettlementFailureKeepsReceipt() {
	ctx := s.GetContext()

	// The linked invoice does not exist, so the settlement fails after the
	// receipt has committed
	_, err := s.service.CreateDocument(ctx, dto.CreateDocumentRequest{
		CustomerID:          "cust_1",
		DocumentType:        types.DocumentTypeReceipt,
		CustomerName:        "Acme Industries",
		Amount:              decimal.NewFromInt(500),
		PaymentMethod:       lo.ToPtr(types.PaymentMethodCash),
		LinkedInvoiceNumber: lo.ToPtr("I-2026-9"),
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	receiptNumber := types.FormatDocumentNumber(types.DocumentTypeReceipt, s.year(), 1)
	receipt, getErr := s.GetStores().DocumentRepo.Get(ctx, "cust_1", receiptNumber)
	s.NoError(getErr)
	s.Equal(types.PaymentStatusPaid, receipt.PaymentStatus)
}

func (s *DocumentServiceSuite) TestGetDocument() {
	ctx := s.GetContext()

	created, err := s.service.CreateDocument(ctx, dto.CreateDocumentRequest{
		CustomerID:   "cust_1",
		DocumentType: types.DocumentTypeInvoice,
		CustomerName: "Acme Industries",
		Amount:       decimal.NewFromInt(100),
	})
	s.NoError(err)

	got, err := s.service.GetDocument(ctx, "cust_1", created.DocumentNumber)
	s.NoError(err)
	s.Equal(created.ID, got.ID)

	_, err = s.service.GetDocument(ctx, "cust_1", "I-2026-999")
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	_, err = s.service.GetDocument(ctx, "cust_1", "bogus")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *DocumentServiceSuite) TestListDocuments() {
	ctx := s.GetContext()
	repo := s.GetStores().DocumentRepo

	base := time.Now().UTC().Add(-time.Hour)
	first := newTestInvoice(ctx, "cust_1", "I-2026-1", decimal.NewFromInt(100))
	first.GeneratedAt = base
	second := newTestInvoice(ctx, "cust_1", "I-2026-2", decimal.NewFromInt(200))
	second.GeneratedAt = base.Add(time.Minute)
	receipt := newTestReceipt(ctx, "cust_1", "R-2026-1", decimal.NewFromInt(50))
	receipt.GeneratedAt = base.Add(2 * time.Minute)

	s.NoError(repo.Create(ctx, first))
	s.NoError(repo.Create(ctx, second))
	s.NoError(repo.Create(ctx, receipt))

	filter := types.NewDocumentFilter()
	filter.CustomerID = "cust_1"
	resp, err := s.service.ListDocuments(ctx, filter)
	s.NoError(err)
	s.Equal(3, resp.Pagination.Total)
	// Default order is newest first
	s.Equal("R-2026-1", resp.Items[0].DocumentNumber)

	filter = types.NewDocumentFilter()
	filter.CustomerID = "cust_1"
	filter.DocumentType = types.DocumentTypeInvoice
	resp, err = s.service.ListDocuments(ctx, filter)
	s.NoError(err)
	s.Equal(2, resp.Pagination.Total)
	s.Len(resp.Items, 2)

	filter = types.NewDocumentFilter()
	filter.CustomerID = "cust_1"
	filter.Limit = lo.ToPtr(1)
	filter.Offset = lo.ToPtr(1)
	resp, err = s.service.ListDocuments(ctx, filter)
	s.NoError(err)
	s.Equal(3, resp.Pagination.Total)
	s.Len(resp.Items, 1)
	s.Equal("I-2026-2", resp.Items[0].DocumentNumber)
}

func (s *DocumentServiceSuite) TestListOpenInvoices() {
	ctx := s.GetContext()
	repo := s.GetStores().DocumentRepo

	base := time.Now().UTC().Add(-time.Hour)

	oldest := newTestInvoice(ctx, "cust_1", "I-2026-1", decimal.NewFromInt(100))
	oldest.GeneratedAt = base

	partial := newTestInvoice(ctx, "cust_1", "I-2026-2", decimal.NewFromInt(200))
	partial.GeneratedAt = base.Add(time.Minute)
	s.NoError(partial.ApplyPayment(decimal.NewFromInt(50), "R-2026-1"))

	paid := newTestInvoice(ctx, "cust_1", "I-2026-3", decimal.NewFromInt(300))
	paid.GeneratedAt = base.Add(2 * time.Minute)
	s.NoError(paid.SettleInFull("R-2026-2"))

	s.NoError(repo.Create(ctx, oldest))
	s.NoError(repo.Create(ctx, partial))
	s.NoError(repo.Create(ctx, paid))

	resp, err := s.service.ListOpenInvoices(ctx, "cust_1")
	s.NoError(err)
	s.Len(resp.Items, 2)
	s.Equal("I-2026-1", resp.Items[0].DocumentNumber)
	s.Equal("I-2026-2", resp.Items[1].DocumentNumber)
}

func (s *DocumentServiceSuite) TestAttachArtifactRequiresStorage() {
	ctx := s.GetContext()

	_, err := s.service.AttachArtifact(ctx, dto.AttachArtifactRequest{
		CustomerID:     "cust_1",
		DocumentNumber: "I-2026-1",
		Data:           []byte("%PDF-1.7"),
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *DocumentServiceSuite) TestAttachArtifactAndRefreshURL() {
	ctx := s.GetContext()

	params := testServiceParams(&s.BaseServiceTestSuite)
	params.S3 = testutil.NewMockArtifactStore()
	service := NewDocumentService(params)

	invoice := newTestInvoice(ctx, "cust_1", "I-2026-1", decimal.NewFromInt(100))
	s.NoError(s.GetStores().DocumentRepo.Create(ctx, invoice))

	attached, err := service.AttachArtifact(ctx, dto.AttachArtifactRequest{
		CustomerID:     "cust_1",
		DocumentNumber: "I-2026-1",
		Data:           []byte("%PDF-1.7"),
	})
	s.NoError(err)
	s.Equal("I-2026-1", attached.DocumentNumber)
	s.True(strings.HasPrefix(attached.ArtifactID, "AR-"))
	s.NotEmpty(attached.URL)

	stored, err := s.GetStores().DocumentRepo.Get(ctx, "cust_1", "I-2026-1")
	s.NoError(err)
	s.Equal(attached.ArtifactID, stored.ArtifactID)
	s.Equal("cust_1/I-2026-1.pdf", stored.StorageKey)
	s.Equal(attached.URL, stored.StorageURL)

	refreshed, err := service.RefreshStorageURL(ctx, "cust_1", "I-2026-1")
	s.NoError(err)
	s.Equal(attached.ArtifactID, refreshed.ArtifactID)
	s.Equal(attached.URL, refreshed.URL)

	// A document without an artifact has no link to refresh
	bare := newTestInvoice(ctx, "cust_1", "I-2026-2", decimal.NewFromInt(100))
	s.NoError(s.GetStores().DocumentRepo.Create(ctx, bare))
	_, err = service.RefreshStorageURL(ctx, "cust_1", "I-2026-2")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
