package testutil

import (
	"context"
	"strconv"
	"time"

	"github.com/numera/numera/internal/domain/sequence"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
)

// InMemorySequenceStore implements sequence.Repository on top of the
// in-memory ledger store. Like the production repository, Save only works
// inside a transaction so counter advances commit atomically with the reads
// that justified them.
type InMemorySequenceStore struct {
	store *InMemoryLedgerStore
}

// NewInMemorySequenceStore creates a sequence repository over the given
// ledger store.
func NewInMemorySequenceStore(store *InMemoryLedgerStore) *InMemorySequenceStore {
	return &InMemorySequenceStore{store: store}
}

func sequenceKey(customerID string, docType types.DocumentType, year int) string {
	return "sequence/" + customerID + "/" + string(docType) + "/" + strconv.Itoa(year)
}

func copyCounter(counter *sequence.Counter) *sequence.Counter {
	if counter == nil {
		return nil
	}
	copied := *counter
	return &copied
}

// Get returns the counter for the partition, or a zero valued counter when
// none has been saved yet.
func (s *InMemorySequenceStore) Get(ctx context.Context, customerID string, docType types.DocumentType, year int) (*sequence.Counter, error) {
	key := sequenceKey(customerID, docType, year)

	var value interface{}
	var found bool
	if tx := s.store.TxFromContext(ctx); tx != nil {
		value, found = tx.Get(key)
	} else {
		value, found = s.store.getCommitted(key)
	}
	if !found {
		return &sequence.Counter{
			CustomerID:   customerID,
			DocumentType: docType,
			Year:         year,
			LastValue:    0,
		}, nil
	}
	return copyCounter(value.(*sequence.Counter)), nil
}

func (s *InMemorySequenceStore) Save(ctx context.Context, counter *sequence.Counter) error {
	tx := s.store.TxFromContext(ctx)
	if tx == nil {
		return ierr.NewError("sequence counters can only be saved inside a transaction").
			WithHint("Number allocation must run through the transactional store").
			Mark(ierr.ErrSystem)
	}

	now := time.Now().UTC()
	copied := copyCounter(counter)
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = now
	}
	copied.UpdatedAt = now

	tx.Put(sequenceKey(counter.CustomerID, counter.DocumentType, counter.Year), copied)
	return nil
}
