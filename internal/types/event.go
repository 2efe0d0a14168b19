package types

import "time"

// LedgerEventName identifies what happened to the ledger
type LedgerEventName string

const (
	// LedgerEventDocumentCreated fires after a document write commits
	LedgerEventDocumentCreated LedgerEventName = "document.created"
	// LedgerEventInvoicesSettled fires after a settlement transaction commits
	LedgerEventInvoicesSettled LedgerEventName = "invoices.settled"
)

// LedgerEvent is the payload published to the ledger events topic after a
// committed write. Events are strictly post-commit; consumers must treat
// them as notifications, not as the source of truth.
type LedgerEvent struct {
	ID             string          `json:"id"`
	EventName      LedgerEventName `json:"event_name"`
	CustomerID     string          `json:"customer_id"`
	DocumentNumber string          `json:"document_number"`
	RelatedNumbers []string        `json:"related_numbers,omitempty"`
	RequestID      string          `json:"request_id,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewLedgerEvent builds a LedgerEvent with a fresh ID and timestamp
func NewLedgerEvent(name LedgerEventName, customerID, documentNumber string, related []string) *LedgerEvent {
	return &LedgerEvent{
		ID:             GenerateUUIDWithPrefix(UUID_PREFIX_LEDGER_EVENT),
		EventName:      name,
		CustomerID:     customerID,
		DocumentNumber: documentNumber,
		RelatedNumbers: related,
		Timestamp:      time.Now().UTC(),
	}
}
