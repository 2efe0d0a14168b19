package service

import (
	"context"

	"github.com/numera/numera/internal/api/dto"
	"github.com/numera/numera/internal/types"
)

// ReportService is the read model over both ledgers: raw normalized rows
// for detail views and aggregated metrics for summaries.
type ReportService interface {
	// GetReportData returns the normalized rows backing a report
	GetReportData(ctx context.Context, req dto.GetReportRequest) (*dto.ReportDataResponse, error)

	// GetReportMetrics returns the aggregated metrics for a report
	GetReportMetrics(ctx context.Context, req dto.GetReportRequest) (*dto.ReportMetricsResponse, error)
}

type reportService struct {
	ServiceParams
}

func NewReportService(params ServiceParams) ReportService {
	return &reportService{
		ServiceParams: params,
	}
}

func (s *reportService) GetReportData(ctx context.Context, req dto.GetReportRequest) (*dto.ReportDataResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	dateRange, err := req.ToDateRange()
	if err != nil {
		return nil, err
	}

	reportData := NewReportDataService(s.ServiceParams)
	records, err := reportData.FetchForRange(ctx, req.CustomerID, dateRange, req.Kind)
	if err != nil {
		return nil, err
	}

	return &dto.ReportDataResponse{
		Kind:    req.Kind,
		Records: records,
	}, nil
}

func (s *reportService) GetReportMetrics(ctx context.Context, req dto.GetReportRequest) (*dto.ReportMetricsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	dateRange, err := req.ToDateRange()
	if err != nil {
		return nil, err
	}

	reportData := NewReportDataService(s.ServiceParams)
	metricsService := NewMetricsService(s.ServiceParams)

	var metrics *types.ReportMetrics
	if req.Kind == types.ReportKindBalance {
		revenue, expenses, err := reportData.FetchBalanceSides(ctx, req.CustomerID, dateRange)
		if err != nil {
			return nil, err
		}
		metrics = metricsService.CalculateBalanceMetrics(ctx, revenue, expenses)
	} else {
		records, err := reportData.FetchForRange(ctx, req.CustomerID, dateRange, req.Kind)
		if err != nil {
			return nil, err
		}
		metrics = metricsService.CalculateMetrics(ctx, records)
	}

	return &dto.ReportMetricsResponse{
		Kind:    req.Kind,
		Metrics: metrics,
	}, nil
}
