package types

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

const (
	FILTER_DEFAULT_LIMIT = 50
	FILTER_DEFAULT_SORT  = "created_at"
	FILTER_DEFAULT_ORDER = "desc"

	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// BaseFilter defines common filtering capabilities
type BaseFilter interface {
	GetLimit() int
	GetOffset() int
	GetStatus() string
	GetSort() string
	GetOrder() string
	Validate() error
	IsUnlimited() bool
}

// QueryFilter represents a generic query filter with optional fields
type QueryFilter struct {
	Limit  *int    `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset *int    `json:"offset,omitempty" form:"offset" validate:"omitempty,min=0"`
	Status *Status `json:"status,omitempty" form:"status"`
	Sort   *string `json:"sort,omitempty" form:"sort"`
	Order  *string `json:"order,omitempty" form:"order" validate:"omitempty,oneof=asc desc"`
}

// NewDefaultQueryFilter defines default values for query filters
func NewDefaultQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  lo.ToPtr(FILTER_DEFAULT_LIMIT),
		Offset: lo.ToPtr(0),
		Status: lo.ToPtr(StatusPublished),
		Sort:   lo.ToPtr(FILTER_DEFAULT_SORT),
		Order:  lo.ToPtr(FILTER_DEFAULT_ORDER),
	}
}

// NewNoLimitQueryFilter returns a filter with no pagination limits
func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  nil, // No limit for unlimited queries
		Offset: lo.ToPtr(0),
		Status: lo.ToPtr(StatusPublished),
		Sort:   lo.ToPtr(FILTER_DEFAULT_SORT),
		Order:  lo.ToPtr(FILTER_DEFAULT_ORDER),
	}
}

// IsUnlimited returns true if this is an unlimited query
func (f QueryFilter) IsUnlimited() bool {
	return f.Limit == nil
}

// GetLimit returns the limit value or default if not set
func (f QueryFilter) GetLimit() int {
	if f.IsUnlimited() {
		return 0 // No limit for unlimited queries
	}
	return *f.Limit
}

// GetOffset returns the offset value or default if not set
func (f QueryFilter) GetOffset() int {
	if f.Offset == nil {
		return *NewDefaultQueryFilter().Offset
	}
	return *f.Offset
}

// GetSort returns the sort value or default if not set
func (f QueryFilter) GetSort() string {
	if f.Sort == nil {
		return *NewDefaultQueryFilter().Sort
	}
	return *f.Sort
}

// GetOrder returns the order value or default if not set
func (f QueryFilter) GetOrder() string {
	if f.Order == nil {
		return *NewDefaultQueryFilter().Order
	}
	return *f.Order
}

// GetStatus returns the status value or default if not set
func (f QueryFilter) GetStatus() string {
	if f.Status == nil {
		return string(*NewDefaultQueryFilter().Status)
	}
	return string(*f.Status)
}

// Validate validates the filter fields
func (f QueryFilter) Validate() error {
	if !f.IsUnlimited() {
		if f.Limit != nil && (*f.Limit < 1 || *f.Limit > 1000) {
			return fmt.Errorf("limit must be between 1 and 1000")
		}
	}
	if f.Offset != nil && *f.Offset < 0 {
		return fmt.Errorf("offset must be non-negative")
	}
	if f.Order != nil && *f.Order != OrderAsc && *f.Order != OrderDesc {
		return fmt.Errorf("order must be either 'asc' or 'desc'")
	}
	return nil
}

// TimeRangeFilter adds time range filtering capabilities
type TimeRangeFilter struct {
	StartTime *time.Time `json:"start_time,omitempty" form:"start_time" validate:"omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty" form:"end_time" validate:"omitempty"`
}

// Validate validates the time range filter
func (f TimeRangeFilter) Validate() error {
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		return fmt.Errorf("end_time must be after start_time")
	}
	return nil
}

// NewTimeRangeFilter builds a TimeRangeFilter covering an inclusive day
// aligned DateRange
func NewTimeRangeFilter(r DateRange) *TimeRangeFilter {
	return &TimeRangeFilter{
		StartTime: lo.ToPtr(r.Start),
		EndTime:   lo.ToPtr(r.End),
	}
}
