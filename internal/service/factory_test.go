package service

import (
	"context"
	"time"

	"github.com/numera/numera/internal/domain/document"
	"github.com/numera/numera/internal/domain/expense"
	"github.com/numera/numera/internal/testutil"
	"github.com/numera/numera/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// testServiceParams wires the in-memory stores of a test suite into the
// dependency set services are constructed from.
func testServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		Store:          s.GetStore(),
		Cache:          s.GetCache(),
		DocumentRepo:   stores.DocumentRepo,
		SequenceRepo:   stores.SequenceRepo,
		ExpenseRepo:    stores.ExpenseRepo,
		EventPublisher: s.GetPublisher(),
	}
}

// newTestInvoice builds an unpaid invoice ready to be seeded through the
// document repository.
func newTestInvoice(ctx context.Context, customerID, number string, amount decimal.Decimal) *document.LedgerDocument {
	now := time.Now().UTC()
	doc := &document.LedgerDocument{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		CustomerID:     customerID,
		DocumentNumber: number,
		DocumentType:   types.DocumentTypeInvoice,
		CustomerName:   "Acme Industries",
		Amount:         amount,
		Currency:       types.DefaultCurrency,
		IssueDate:      now,
		GeneratedAt:    now,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	doc.InitializePaymentFields()
	return doc
}

// newTestExpense builds a processed inbound invoice ready to be seeded into
// the expense ledger.
func newTestExpense(ctx context.Context, customerID, vendor string, amount decimal.Decimal, documentDate time.Time) *expense.InboundInvoice {
	return &expense.InboundInvoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXPENSE),
		CustomerID:    customerID,
		VendorName:    vendor,
		Category:      "supplies",
		TotalAmount:   amount,
		Currency:      types.DefaultCurrency,
		ExpenseStatus: types.ExpenseStatusProcessed,
		DocumentDate:  documentDate,
		ProcessedAt:   lo.ToPtr(time.Now().UTC()),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// newTestReceipt builds a standalone receipt ready to be seeded through the
// document repository.
func newTestReceipt(ctx context.Context, customerID, number string, amount decimal.Decimal) *document.LedgerDocument {
	now := time.Now().UTC()
	doc := &document.LedgerDocument{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		CustomerID:     customerID,
		DocumentNumber: number,
		DocumentType:   types.DocumentTypeReceipt,
		CustomerName:   "Acme Industries",
		Amount:         amount,
		Currency:       types.DefaultCurrency,
		PaymentMethod:  lo.ToPtr(types.PaymentMethodBankTransfer),
		IssueDate:      now,
		GeneratedAt:    now,
		Linkage:        document.NoLinkage(),
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	doc.InitializePaymentFields()
	return doc
}
