package service

import (
	"testing"
	"time"

	"github.com/numera/numera/internal/api/dto"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/testutil"
	"github.com/numera/numera/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ReportServiceSuite struct {
	testutil.BaseServiceTestSuite
	service ReportService
}

func TestReportService(t *testing.T) {
	suite.Run(t, new(ReportServiceSuite))
}

func (s *ReportServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewReportService(testServiceParams(&s.BaseServiceTestSuite))
}

// seedMarchLedgers loads one paid invoice, one open invoice and one expense,
// all inside 10/03/2026 - 12/03/2026.
func (s *ReportServiceSuite) seedMarchLedgers() {
	ctx := s.GetContext()
	repo := s.GetStores().DocumentRepo
	day := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

	paid := newTestInvoice(ctx, "cust_1", "I-2026-1", decimal.NewFromInt(10000))
	paid.GeneratedAt = day
	s.NoError(paid.SettleInFull("R-2026-1"))
	s.NoError(repo.Create(ctx, paid))

	open := newTestInvoice(ctx, "cust_1", "I-2026-2", decimal.NewFromInt(2000))
	open.GeneratedAt = day
	s.NoError(repo.Create(ctx, open))

	expenseRow := newTestExpense(ctx, "cust_1", "Office Depot", decimal.NewFromInt(6000), day)
	s.NoError(s.GetStores().ExpenseRepo.Add(ctx, expenseRow))
}

func (s *ReportServiceSuite) TestGetReportData() {
	s.seedMarchLedgers()

	resp, err := s.service.GetReportData(s.GetContext(), dto.GetReportRequest{
		CustomerID: "cust_1",
		StartDate:  "10/03/2026",
		EndDate:    "12/03/2026",
		Kind:       types.ReportKindRevenue,
	})
	s.NoError(err)
	s.Equal(types.ReportKindRevenue, resp.Kind)
	s.Len(resp.Records, 2)

	resp, err = s.service.GetReportData(s.GetContext(), dto.GetReportRequest{
		CustomerID: "cust_1",
		StartDate:  "10/03/2026",
		EndDate:    "12/03/2026",
		Kind:       types.ReportKindExpenses,
	})
	s.NoError(err)
	s.Len(resp.Records, 1)
	s.Equal("Office Depot", resp.Records[0].CustomerName)

	resp, err = s.service.GetReportData(s.GetContext(), dto.GetReportRequest{
		CustomerID: "cust_1",
		StartDate:  "10/03/2026",
		EndDate:    "12/03/2026",
		Kind:       types.ReportKindBalance,
	})
	s.NoError(err)
	s.Len(resp.Records, 3)
}

func (s *ReportServiceSuite) TestGetReportDataOutsideRange() {
	s.seedMarchLedgers()

	resp, err := s.service.GetReportData(s.GetContext(), dto.GetReportRequest{
		CustomerID: "cust_1",
		StartDate:  "01/04/2026",
		EndDate:    "30/04/2026",
		Kind:       types.ReportKindBalance,
	})
	s.NoError(err)
	s.Empty(resp.Records)
}

func (s *ReportServiceSuite) TestGetReportMetricsPerSide() {
	s.seedMarchLedgers()

	resp, err := s.service.GetReportMetrics(s.GetContext(), dto.GetReportRequest{
		CustomerID: "cust_1",
		StartDate:  "10/03/2026",
		EndDate:    "12/03/2026",
		Kind:       types.ReportKindRevenue,
	})
	s.NoError(err)
	s.Equal(2, resp.Metrics.DocumentCount)
	s.True(resp.Metrics.TotalInvoiced.Equal(decimal.NewFromInt(12000)))
	s.True(resp.Metrics.TotalReceived.Equal(decimal.NewFromInt(10000)))
	s.True(resp.Metrics.TotalOutstanding.Equal(decimal.NewFromInt(2000)))

	resp, err = s.service.GetReportMetrics(s.GetContext(), dto.GetReportRequest{
		CustomerID: "cust_1",
		StartDate:  "10/03/2026",
		EndDate:    "12/03/2026",
		Kind:       types.ReportKindExpenses,
	})
	s.NoError(err)
	s.Equal(1, resp.Metrics.DocumentCount)
	s.True(resp.Metrics.TotalInvoiced.Equal(decimal.NewFromInt(6000)))
}

func (s *ReportServiceSuite) TestGetReportMetricsBalance() {
	s.seedMarchLedgers()

	resp, err := s.service.GetReportMetrics(s.GetContext(), dto.GetReportRequest{
		CustomerID: "cust_1",
		StartDate:  "10/03/2026",
		EndDate:    "12/03/2026",
		Kind:       types.ReportKindBalance,
	})
	s.NoError(err)
	s.Equal(3, resp.Metrics.DocumentCount)
	s.Equal("ILS", resp.Metrics.PrimaryCurrency)

	// 10000 received against 6000 spent
	s.True(resp.Metrics.Profit.Equal(decimal.NewFromInt(4000)))
	s.True(resp.Metrics.ProfitMargin.Equal(decimal.NewFromInt(40)))

	group := resp.Metrics.Currency("ILS")
	s.NotNil(group)
	s.True(group.NetInvoiced.Equal(decimal.NewFromInt(6000)))
	s.True(group.NetCashFlow.Equal(decimal.NewFromInt(4000)))
}

func (s *ReportServiceSuite) TestGetReportRequestValidation() {
	cases := []dto.GetReportRequest{
		// missing customer
		{StartDate: "10/03/2026", EndDate: "12/03/2026", Kind: types.ReportKindRevenue},
		// dates in the wrong format
		{CustomerID: "cust_1", StartDate: "2026-03-10", EndDate: "12/03/2026", Kind: types.ReportKindRevenue},
		// inverted range
		{CustomerID: "cust_1", StartDate: "12/03/2026", EndDate: "10/03/2026", Kind: types.ReportKindRevenue},
		// unknown kind
		{CustomerID: "cust_1", StartDate: "10/03/2026", EndDate: "12/03/2026", Kind: types.ReportKind("weekly")},
	}

	for _, req := range cases {
		_, err := s.service.GetReportData(s.GetContext(), req)
		s.Error(err)
		s.True(ierr.IsValidation(err))

		_, err = s.service.GetReportMetrics(s.GetContext(), req)
		s.Error(err)
		s.True(ierr.IsValidation(err))
	}
}
