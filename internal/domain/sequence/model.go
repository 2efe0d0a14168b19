package sequence

import (
	"time"

	"github.com/numera/numera/internal/types"
)

// Counter tracks the last issued document number for one
// (customer, document type, year) partition. Counters start at zero and
// move strictly forward; a value handed out is never handed out again even
// when the document write that wanted it fails.
type Counter struct {
	CustomerID   string             `json:"customer_id"`
	DocumentType types.DocumentType `json:"document_type"`
	Year         int                `json:"year"`
	LastValue    int64              `json:"last_value"`
	Version      int64              `json:"version"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Next advances the counter and returns the freshly allocated value
func (c *Counter) Next() int64 {
	c.LastValue++
	c.UpdatedAt = time.Now().UTC()
	return c.LastValue
}
