package document

import (
	"testing"
	"time"

	"github.com/numera/numera/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvoice(amount int64) *LedgerDocument {
	doc := &LedgerDocument{
		ID:             "doc_test",
		CustomerID:     "cust_1",
		DocumentNumber: "I-2026-1",
		DocumentType:   types.DocumentTypeInvoice,
		CustomerName:   "Acme Industries",
		Amount:         decimal.NewFromInt(amount),
		Currency:       types.DefaultCurrency,
		IssueDate:      time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		GeneratedAt:    time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
	}
	doc.InitializePaymentFields()
	return doc
}

func testReceipt(amount int64) *LedgerDocument {
	doc := &LedgerDocument{
		ID:             "doc_test",
		CustomerID:     "cust_1",
		DocumentNumber: "R-2026-1",
		DocumentType:   types.DocumentTypeReceipt,
		CustomerName:   "Acme Industries",
		Amount:         decimal.NewFromInt(amount),
		Currency:       types.DefaultCurrency,
		PaymentMethod:  lo.ToPtr(types.PaymentMethodBankTransfer),
		IssueDate:      time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		GeneratedAt:    time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		Linkage:        NoLinkage(),
	}
	doc.InitializePaymentFields()
	return doc
}

func TestInitializePaymentFields(t *testing.T) {
	invoice := testInvoice(1000)
	assert.Equal(t, types.PaymentStatusUnpaid, invoice.PaymentStatus)
	assert.True(t, invoice.PaidAmount.IsZero())
	assert.True(t, invoice.RemainingBalance.Equal(invoice.Amount))

	receipt := testReceipt(500)
	assert.Equal(t, types.PaymentStatusPaid, receipt.PaymentStatus)
	assert.True(t, receipt.PaidAmount.Equal(receipt.Amount))
	assert.True(t, receipt.RemainingBalance.IsZero())

	combined := testReceipt(500)
	combined.DocumentType = types.DocumentTypeInvoiceReceipt
	combined.InitializePaymentFields()
	assert.Equal(t, types.PaymentStatusPaid, combined.PaymentStatus)
	assert.True(t, combined.RemainingBalance.IsZero())
}

func TestApplyPayment(t *testing.T) {
	invoice := testInvoice(1000)

	require.NoError(t, invoice.ApplyPayment(decimal.NewFromInt(400), "R-2026-1"))
	assert.Equal(t, types.PaymentStatusPartial, invoice.PaymentStatus)
	assert.True(t, invoice.PaidAmount.Equal(decimal.NewFromInt(400)))
	assert.True(t, invoice.RemainingBalance.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, []string{"R-2026-1"}, invoice.RelatedReceiptIDs)

	// Payments accumulate and re-derive the status
	require.NoError(t, invoice.ApplyPayment(decimal.NewFromInt(600), "R-2026-2"))
	assert.Equal(t, types.PaymentStatusPaid, invoice.PaymentStatus)
	assert.True(t, invoice.RemainingBalance.IsZero())
	assert.Equal(t, []string{"R-2026-1", "R-2026-2"}, invoice.RelatedReceiptIDs)
}

func TestApplyPaymentClampsOverpayment(t *testing.T) {
	invoice := testInvoice(1000)

	require.NoError(t, invoice.ApplyPayment(decimal.NewFromInt(1500), "R-2026-1"))
	assert.True(t, invoice.PaidAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, invoice.RemainingBalance.IsZero())
	assert.Equal(t, types.PaymentStatusPaid, invoice.PaymentStatus)

	// Paid plus remaining never drifts from the amount
	sum := invoice.PaidAmount.Add(invoice.RemainingBalance)
	assert.True(t, sum.Equal(invoice.Amount))
}

func TestApplyPaymentRejections(t *testing.T) {
	receipt := testReceipt(500)
	err := receipt.ApplyPayment(decimal.NewFromInt(100), "R-2026-2")
	assert.Error(t, err)
	assert.True(t, IsValidationError(err))

	invoice := testInvoice(1000)
	assert.Error(t, invoice.ApplyPayment(decimal.Zero, "R-2026-1"))
	assert.True(t, IsValidationError(invoice.ApplyPayment(decimal.NewFromInt(-50), "R-2026-1")))
	assert.True(t, invoice.PaidAmount.IsZero())
	assert.Empty(t, invoice.RelatedReceiptIDs)
}

func TestSettleInFull(t *testing.T) {
	invoice := testInvoice(1000)
	require.NoError(t, invoice.ApplyPayment(decimal.NewFromInt(300), "R-2026-1"))

	require.NoError(t, invoice.SettleInFull("R-2026-2"))
	assert.Equal(t, types.PaymentStatusPaid, invoice.PaymentStatus)
	assert.True(t, invoice.PaidAmount.Equal(invoice.Amount))
	assert.True(t, invoice.RemainingBalance.IsZero())
	assert.Equal(t, []string{"R-2026-1", "R-2026-2"}, invoice.RelatedReceiptIDs)

	receipt := testReceipt(500)
	assert.Error(t, receipt.SettleInFull("R-2026-3"))
}

func TestAttachReceipt(t *testing.T) {
	invoice := testInvoice(1000)

	invoice.AttachReceipt("R-2026-1")
	invoice.AttachReceipt("R-2026-2")
	invoice.AttachReceipt("R-2026-1")
	invoice.AttachReceipt("")

	assert.Equal(t, []string{"R-2026-1", "R-2026-2"}, invoice.RelatedReceiptIDs)
}

func TestCanBeSettled(t *testing.T) {
	invoice := testInvoice(1000)
	assert.True(t, invoice.CanBeSettled())

	require.NoError(t, invoice.ApplyPayment(decimal.NewFromInt(400), "R-2026-1"))
	assert.True(t, invoice.CanBeSettled())

	require.NoError(t, invoice.SettleInFull("R-2026-2"))
	assert.False(t, invoice.CanBeSettled())

	assert.False(t, testReceipt(500).CanBeSettled())
}

func TestLedgerDocumentValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LedgerDocument)
		invoice bool
		wantErr bool
	}{
		{
			name:    "valid invoice",
			invoice: true,
			mutate:  func(d *LedgerDocument) {},
		},
		{
			name:   "valid receipt",
			mutate: func(d *LedgerDocument) {},
		},
		{
			name:    "missing customer id",
			invoice: true,
			mutate:  func(d *LedgerDocument) { d.CustomerID = "" },
			wantErr: true,
		},
		{
			name:    "missing document number",
			invoice: true,
			mutate:  func(d *LedgerDocument) { d.DocumentNumber = "" },
			wantErr: true,
		},
		{
			name:    "missing customer name",
			invoice: true,
			mutate:  func(d *LedgerDocument) { d.CustomerName = "" },
			wantErr: true,
		},
		{
			name:    "missing currency",
			invoice: true,
			mutate:  func(d *LedgerDocument) { d.Currency = "" },
			wantErr: true,
		},
		{
			name:    "missing issue date",
			invoice: true,
			mutate:  func(d *LedgerDocument) { d.IssueDate = time.Time{} },
			wantErr: true,
		},
		{
			name:    "zero amount",
			invoice: true,
			mutate: func(d *LedgerDocument) {
				d.Amount = decimal.Zero
				d.InitializePaymentFields()
			},
			wantErr: true,
		},
		{
			name:    "negative paid amount",
			invoice: true,
			mutate:  func(d *LedgerDocument) { d.PaidAmount = decimal.NewFromInt(-1) },
			wantErr: true,
		},
		{
			name:    "paid and remaining drift apart",
			invoice: true,
			mutate: func(d *LedgerDocument) {
				d.PaidAmount = decimal.NewFromInt(400)
				d.RemainingBalance = decimal.NewFromInt(400)
				d.PaymentStatus = types.PaymentStatusPartial
			},
			wantErr: true,
		},
		{
			name:    "status contradicts amounts",
			invoice: true,
			mutate:  func(d *LedgerDocument) { d.PaymentStatus = types.PaymentStatusPaid },
			wantErr: true,
		},
		{
			name:    "receipt without payment method",
			mutate:  func(d *LedgerDocument) { d.PaymentMethod = nil },
			wantErr: true,
		},
		{
			name:    "unknown payment method",
			mutate:  func(d *LedgerDocument) { d.PaymentMethod = lo.ToPtr(types.PaymentMethod("barter")) },
			wantErr: true,
		},
		{
			name:   "linked receipt",
			mutate: func(d *LedgerDocument) { d.Linkage = SingleInvoiceLinkage("I-2026-1") },
		},
		{
			name:    "linkage on an invoice",
			invoice: true,
			mutate:  func(d *LedgerDocument) { d.Linkage = SingleInvoiceLinkage("I-2026-2") },
			wantErr: true,
		},
		{
			name: "linkage on an invoice receipt",
			mutate: func(d *LedgerDocument) {
				d.DocumentType = types.DocumentTypeInvoiceReceipt
				d.Linkage = SingleInvoiceLinkage("I-2026-2")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc *LedgerDocument
			if tt.invoice {
				doc = testInvoice(1000)
			} else {
				doc = testReceipt(500)
			}
			tt.mutate(doc)

			err := doc.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
