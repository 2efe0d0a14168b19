package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatDocumentNumber(t *testing.T) {
	tests := []struct {
		docType DocumentType
		year    int
		seq     int64
		want    string
	}{
		{DocumentTypeInvoice, 2026, 1, "I-2026-1"},
		{DocumentTypeReceipt, 2026, 42, "R-2026-42"},
		{DocumentTypeInvoiceReceipt, 1999, 7, "IR-1999-7"},
		// Sequences are never zero padded
		{DocumentTypeInvoice, 2026, 1000, "I-2026-1000"},
	}

	for _, tt := range tests {
		if got := FormatDocumentNumber(tt.docType, tt.year, tt.seq); got != tt.want {
			t.Errorf("FormatDocumentNumber(%s, %d, %d) = %q, want %q", tt.docType, tt.year, tt.seq, got, tt.want)
		}
	}
}

func TestParseDocumentNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType DocumentType
		wantYear int
		wantSeq  int64
		wantErr  bool
	}{
		{
			name:     "invoice",
			input:    "I-2026-1",
			wantType: DocumentTypeInvoice,
			wantYear: 2026,
			wantSeq:  1,
		},
		{
			name:     "receipt",
			input:    "R-2026-42",
			wantType: DocumentTypeReceipt,
			wantYear: 2026,
			wantSeq:  42,
		},
		{
			name:     "invoice receipt",
			input:    "IR-1999-7",
			wantType: DocumentTypeInvoiceReceipt,
			wantYear: 1999,
			wantSeq:  7,
		},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown prefix", input: "X-2026-1", wantErr: true},
		{name: "missing prefix", input: "2026-1", wantErr: true},
		{name: "extra part", input: "I-2026-1-1", wantErr: true},
		{name: "year not a number", input: "I-year-1", wantErr: true},
		{name: "year before epoch", input: "I-1969-1", wantErr: true},
		{name: "sequence not a number", input: "I-2026-abc", wantErr: true},
		{name: "sequence zero", input: "I-2026-0", wantErr: true},
		{name: "sequence negative", input: "I-2026--3", wantErr: true},
		{name: "lowercase prefix", input: "i-2026-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docType, year, seq, err := ParseDocumentNumber(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if docType != tt.wantType || year != tt.wantYear || seq != tt.wantSeq {
				t.Errorf("got (%s, %d, %d), want (%s, %d, %d)", docType, year, seq, tt.wantType, tt.wantYear, tt.wantSeq)
			}
		})
	}
}

func TestDocumentNumberRoundTrip(t *testing.T) {
	for _, docType := range []DocumentType{DocumentTypeInvoice, DocumentTypeReceipt, DocumentTypeInvoiceReceipt} {
		number := FormatDocumentNumber(docType, 2026, 15)
		gotType, gotYear, gotSeq, err := ParseDocumentNumber(number)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", number, err)
		}
		if gotType != docType || gotYear != 2026 || gotSeq != 15 {
			t.Errorf("%q parsed to (%s, %d, %d)", number, gotType, gotYear, gotSeq)
		}
	}
}

func TestDocumentTypeNumberPrefix(t *testing.T) {
	tests := []struct {
		docType DocumentType
		want    string
	}{
		{DocumentTypeInvoice, "I"},
		{DocumentTypeReceipt, "R"},
		{DocumentTypeInvoiceReceipt, "IR"},
		{DocumentType("quote"), ""},
	}
	for _, tt := range tests {
		if got := tt.docType.NumberPrefix(); got != tt.want {
			t.Errorf("NumberPrefix(%s) = %q, want %q", tt.docType, got, tt.want)
		}
	}
}

func TestDocumentTypeRequiresPaymentMethod(t *testing.T) {
	if DocumentTypeInvoice.RequiresPaymentMethod() {
		t.Error("invoices demand payment, they do not document it")
	}
	if !DocumentTypeReceipt.RequiresPaymentMethod() {
		t.Error("receipts must carry a payment method")
	}
	if !DocumentTypeInvoiceReceipt.RequiresPaymentMethod() {
		t.Error("invoice receipts must carry a payment method")
	}
}

func TestDocumentTypeValidate(t *testing.T) {
	for _, docType := range []DocumentType{DocumentTypeInvoice, DocumentTypeReceipt, DocumentTypeInvoiceReceipt} {
		if err := docType.Validate(); err != nil {
			t.Errorf("%s should be valid, got %v", docType, err)
		}
	}
	if err := DocumentType("quote").Validate(); err == nil {
		t.Error("unknown document type should be invalid")
	}
}

func TestDerivePaymentStatus(t *testing.T) {
	amount := decimal.NewFromInt(1000)

	tests := []struct {
		name string
		paid decimal.Decimal
		want PaymentStatus
	}{
		{"nothing paid", decimal.Zero, PaymentStatusUnpaid},
		{"negative paid", decimal.NewFromInt(-5), PaymentStatusUnpaid},
		{"partially paid", decimal.NewFromInt(400), PaymentStatusPartial},
		{"one short", decimal.NewFromInt(999), PaymentStatusPartial},
		{"exactly paid", amount, PaymentStatusPaid},
		{"overpaid", decimal.NewFromInt(1200), PaymentStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DerivePaymentStatus(tt.paid, amount); got != tt.want {
				t.Errorf("DerivePaymentStatus(%s, %s) = %s, want %s", tt.paid, amount, got, tt.want)
			}
		})
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ils", "ILS"},
		{"ILS", "ILS"},
		{" usd ", "USD"},
		{"", DefaultCurrency},
	}
	for _, tt := range tests {
		if got := NormalizeCurrency(tt.input); got != tt.want {
			t.Errorf("NormalizeCurrency(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsMatchingCurrency(t *testing.T) {
	if !IsMatchingCurrency("ILS", "ils") {
		t.Error("currency comparison should ignore case")
	}
	if !IsMatchingCurrency(" ILS", "ILS ") {
		t.Error("currency comparison should ignore surrounding whitespace")
	}
	if IsMatchingCurrency("ILS", "USD") {
		t.Error("different currencies should not match")
	}
}
