package service

import (
	"testing"

	"github.com/numera/numera/internal/testutil"
	"github.com/numera/numera/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MetricsServiceSuite struct {
	testutil.BaseServiceTestSuite
	service MetricsService
}

func TestMetricsService(t *testing.T) {
	suite.Run(t, new(MetricsServiceSuite))
}

func (s *MetricsServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewMetricsService(testServiceParams(&s.BaseServiceTestSuite))
}

func paidInvoiceRecord(currency string, amount int64, method string) types.NormalizedRecord {
	return types.NormalizedRecord{
		Number:        "I-2026-1",
		CustomerName:  "Acme Industries",
		Amount:        decimal.NewFromInt(amount),
		Currency:      currency,
		PaymentMethod: method,
		DocumentType:  types.DocumentTypeInvoice,
		PaymentStatus: types.PaymentStatusPaid,
		PaidAmount:    decimal.NewFromInt(amount),
	}
}

func partialInvoiceRecord(currency string, amount, paid int64) types.NormalizedRecord {
	return types.NormalizedRecord{
		Number:           "I-2026-2",
		CustomerName:     "Acme Industries",
		Amount:           decimal.NewFromInt(amount),
		Currency:         currency,
		DocumentType:     types.DocumentTypeInvoice,
		PaymentStatus:    types.PaymentStatusPartial,
		PaidAmount:       decimal.NewFromInt(paid),
		RemainingBalance: decimal.NewFromInt(amount - paid),
	}
}

func unpaidInvoiceRecord(currency string, amount int64) types.NormalizedRecord {
	return types.NormalizedRecord{
		Number:           "I-2026-3",
		CustomerName:     "Acme Industries",
		Amount:           decimal.NewFromInt(amount),
		Currency:         currency,
		DocumentType:     types.DocumentTypeInvoice,
		PaymentStatus:    types.PaymentStatusUnpaid,
		RemainingBalance: decimal.NewFromInt(amount),
	}
}

func receiptRecord(currency string, amount int64, method string, linkedTo string) types.NormalizedRecord {
	return types.NormalizedRecord{
		Number:               "R-2026-1",
		CustomerName:         "Acme Industries",
		Amount:               decimal.NewFromInt(amount),
		Currency:             currency,
		PaymentMethod:        method,
		DocumentType:         types.DocumentTypeReceipt,
		PaymentStatus:        types.PaymentStatusPaid,
		PaidAmount:           decimal.NewFromInt(amount),
		RelatedInvoiceNumber: linkedTo,
		IsLinkedReceipt:      linkedTo != "",
	}
}

func expenseRecord(currency string, amount int64) types.NormalizedRecord {
	return types.NormalizedRecord{
		Number:        "EXP-1",
		CustomerName:  "Office Depot",
		Amount:        decimal.NewFromInt(amount),
		Currency:      currency,
		DocumentType:  types.DocumentTypeInvoice,
		PaymentStatus: types.PaymentStatusPaid,
		PaidAmount:    decimal.NewFromInt(amount),
	}
}

func (s *MetricsServiceSuite) TestLinkedReceiptsAreNotDoubleCounted() {
	records := []types.NormalizedRecord{
		partialInvoiceRecord("ILS", 1000, 300),
		receiptRecord("ILS", 300, "bank_transfer", "I-2026-2"),
	}

	metrics := s.service.CalculateMetrics(s.GetContext(), records)

	// The linked receipt's money is already visible on the invoice
	s.Equal(1, metrics.DocumentCount)
	s.Len(metrics.Currencies, 1)

	group := metrics.Currencies[0]
	s.True(group.TotalInvoiced.Equal(decimal.NewFromInt(1000)))
	s.True(group.TotalReceived.Equal(decimal.NewFromInt(300)))
	s.True(group.TotalOutstanding.Equal(decimal.NewFromInt(700)))
}

func (s *MetricsServiceSuite) TestStandaloneReceiptsCountAsReceived() {
	records := []types.NormalizedRecord{
		receiptRecord("ILS", 150, "check", ""),
	}

	metrics := s.service.CalculateMetrics(s.GetContext(), records)
	s.Equal(1, metrics.DocumentCount)
	s.True(metrics.TotalReceived.Equal(decimal.NewFromInt(150)))
	s.True(metrics.TotalOutstanding.IsZero())
}

func (s *MetricsServiceSuite) TestCurrencyGroupingAndPrimarySelection() {
	records := []types.NormalizedRecord{
		paidInvoiceRecord("ILS", 1000, "bank_transfer"),
		// Currency codes are normalized before grouping
		paidInvoiceRecord("ils", 2000, "bank_transfer"),
		unpaidInvoiceRecord("USD", 500),
	}

	metrics := s.service.CalculateMetrics(s.GetContext(), records)
	s.Equal(3, metrics.DocumentCount)
	s.Len(metrics.Currencies, 2)

	// The primary currency carries the largest invoiced total and feeds the
	// top level figures
	s.Equal("ILS", metrics.PrimaryCurrency)
	s.True(metrics.TotalInvoiced.Equal(decimal.NewFromInt(3000)))
	s.True(metrics.TotalReceived.Equal(decimal.NewFromInt(3000)))
	s.True(metrics.TotalOutstanding.IsZero())

	ils := metrics.Currency("ILS")
	s.NotNil(ils)
	s.Equal(2, ils.InvoiceCount)
	s.True(ils.AverageAmount.Equal(decimal.NewFromInt(1500)))
	s.True(ils.MaxAmount.Equal(decimal.NewFromInt(2000)))
	s.True(ils.MinAmount.Equal(decimal.NewFromInt(1000)))

	// The secondary currency is reported, never converted
	usd := metrics.Currency("USD")
	s.NotNil(usd)
	s.True(usd.TotalInvoiced.Equal(decimal.NewFromInt(500)))
	s.True(usd.TotalOutstanding.Equal(decimal.NewFromInt(500)))
	s.Equal(1, usd.OutstandingCount)
}

func (s *MetricsServiceSuite) TestPartialInvoiceCountsOnBothSides() {
	records := []types.NormalizedRecord{
		partialInvoiceRecord("ILS", 1000, 400),
	}

	metrics := s.service.CalculateMetrics(s.GetContext(), records)
	group := metrics.Currencies[0]
	s.Equal(1, group.ReceivedCount)
	s.Equal(1, group.OutstandingCount)
	s.True(group.TotalReceived.Equal(decimal.NewFromInt(400)))
	s.True(group.TotalOutstanding.Equal(decimal.NewFromInt(600)))
}

func (s *MetricsServiceSuite) TestPaymentMethodsCoverReceivedMoneyOnly() {
	records := []types.NormalizedRecord{
		paidInvoiceRecord("ILS", 1000, "bank_transfer"),
		partialInvoiceRecord("ILS", 700, 200),
		unpaidInvoiceRecord("ILS", 900),
		receiptRecord("ILS", 150, "check", ""),
	}

	metrics := s.service.CalculateMetrics(s.GetContext(), records)
	s.Equal(4, metrics.DocumentCount)

	group := metrics.Currencies[0]
	s.True(group.PaymentMethods["bank_transfer"].Equal(decimal.NewFromInt(1000)))
	s.True(group.PaymentMethods["check"].Equal(decimal.NewFromInt(150)))

	// Received money with no recorded method lands in the unspecified bucket;
	// outstanding balances land nowhere
	s.True(group.PaymentMethods[types.PaymentMethodUnspecified].Equal(decimal.NewFromInt(200)))
	s.Len(group.PaymentMethods, 3)
}

func (s *MetricsServiceSuite) TestCalculateMetricsOnNoRecords() {
	metrics := s.service.CalculateMetrics(s.GetContext(), nil)
	s.Equal(0, metrics.DocumentCount)
	s.Empty(metrics.Currencies)
	s.Empty(metrics.PrimaryCurrency)
	s.True(metrics.TotalInvoiced.IsZero())
}

func (s *MetricsServiceSuite) TestBalanceNetsRevenueAgainstExpenses() {
	revenue := []types.NormalizedRecord{
		paidInvoiceRecord("ILS", 10000, "bank_transfer"),
	}
	expenses := []types.NormalizedRecord{
		expenseRecord("ILS", 6000),
	}

	metrics := s.service.CalculateBalanceMetrics(s.GetContext(), revenue, expenses)
	s.Equal(2, metrics.DocumentCount)
	s.Len(metrics.Currencies, 1)

	group := metrics.Currencies[0]
	s.True(group.NetInvoiced.Equal(decimal.NewFromInt(4000)))
	s.True(group.NetCashFlow.Equal(decimal.NewFromInt(4000)))

	// Top level figures stay revenue sided; profit is the primary net cash
	// flow relative to revenue received
	s.Equal("ILS", metrics.PrimaryCurrency)
	s.True(metrics.TotalInvoiced.Equal(decimal.NewFromInt(10000)))
	s.True(metrics.TotalReceived.Equal(decimal.NewFromInt(10000)))
	s.True(metrics.Profit.Equal(decimal.NewFromInt(4000)))
	s.True(metrics.ProfitMargin.Equal(decimal.NewFromInt(40)))
}

func (s *MetricsServiceSuite) TestBalanceWithNoRevenueHasNoMargin() {
	expenses := []types.NormalizedRecord{
		expenseRecord("ILS", 500),
	}

	metrics := s.service.CalculateBalanceMetrics(s.GetContext(), nil, expenses)
	s.Equal(1, metrics.DocumentCount)
	s.Equal("ILS", metrics.PrimaryCurrency)
	s.True(metrics.Profit.Equal(decimal.NewFromInt(-500)))
	s.True(metrics.ProfitMargin.IsZero())
	s.True(metrics.TotalInvoiced.IsZero())
}

func (s *MetricsServiceSuite) TestBalancePrimaryPrefersLargerAbsoluteCashFlow() {
	revenue := []types.NormalizedRecord{
		paidInvoiceRecord("ILS", 500, "bank_transfer"),
		unpaidInvoiceRecord("USD", 1300),
	}
	expenses := []types.NormalizedRecord{
		expenseRecord("USD", 500),
	}

	metrics := s.service.CalculateBalanceMetrics(s.GetContext(), revenue, expenses)
	s.Len(metrics.Currencies, 2)

	// ILS flows +500, USD flows -500; the absolute values tie so the larger
	// absolute net invoiced wins
	s.Equal("USD", metrics.PrimaryCurrency)
	s.True(metrics.Profit.Equal(decimal.NewFromInt(-500)))
	s.True(metrics.ProfitMargin.IsZero())

	usd := metrics.Currency("USD")
	s.True(usd.NetInvoiced.Equal(decimal.NewFromInt(800)))
	s.True(usd.NetCashFlow.Equal(decimal.NewFromInt(-500)))
}

func (s *MetricsServiceSuite) TestBalanceCurrencyOrderIsRevenueFirst() {
	revenue := []types.NormalizedRecord{
		paidInvoiceRecord("EUR", 100, ""),
	}
	expenses := []types.NormalizedRecord{
		expenseRecord("ILS", 50),
		expenseRecord("EUR", 20),
	}

	metrics := s.service.CalculateBalanceMetrics(s.GetContext(), revenue, expenses)
	s.Len(metrics.Currencies, 2)
	s.Equal("EUR", metrics.Currencies[0].Currency)
	s.Equal("ILS", metrics.Currencies[1].Currency)
}
