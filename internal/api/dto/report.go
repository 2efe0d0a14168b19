package dto

import (
	"github.com/numera/numera/internal/types"
	"github.com/numera/numera/internal/validator"
)

// GetReportRequest fetches normalized report data or aggregated metrics for
// a date range
type GetReportRequest struct {
	// customer_id is the unique identifier of the ledger owner
	CustomerID string `json:"customer_id" validate:"required"`

	// start_date is the first day of the range in DD/MM/YYYY format
	StartDate string `json:"start_date" validate:"required,display_date"`

	// end_date is the last day of the range in DD/MM/YYYY format, inclusive
	EndDate string `json:"end_date" validate:"required,display_date"`

	// kind selects the report side (revenue, expenses, balance)
	Kind types.ReportKind `json:"kind" validate:"required"`
}

func (r *GetReportRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if err := r.Kind.Validate(); err != nil {
		return err
	}

	if _, err := r.ToDateRange(); err != nil {
		return err
	}

	return nil
}

// ToDateRange parses the request dates into an inclusive day range covering
// [start 00:00:00.000, end 23:59:59.999]
func (r *GetReportRequest) ToDateRange() (types.DateRange, error) {
	start, err := types.ParseDate(r.StartDate)
	if err != nil {
		return types.DateRange{}, err
	}
	end, err := types.ParseDate(r.EndDate)
	if err != nil {
		return types.DateRange{}, err
	}

	dateRange := types.NewDayRange(start, end)
	if err := dateRange.Validate(); err != nil {
		return types.DateRange{}, err
	}
	return dateRange, nil
}

// ReportDataResponse carries the normalized records backing a report
type ReportDataResponse struct {
	// kind is the report side the records belong to
	Kind types.ReportKind `json:"kind"`

	// records are the normalized rows, one per document
	Records []types.NormalizedRecord `json:"records"`
}

// ReportMetricsResponse carries aggregated report metrics
type ReportMetricsResponse struct {
	// kind is the report side the metrics aggregate
	Kind types.ReportKind `json:"kind"`

	// metrics is the multi-currency aggregation result
	Metrics *types.ReportMetrics `json:"metrics"`
}
