package testutil

import (
	"context"
	"sort"

	"github.com/numera/numera/internal/domain/document"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
	"github.com/samber/lo"
)

// InMemoryDocumentStore implements document.Repository on top of the
// in-memory ledger store. Writes issued inside a transaction stage through
// the ambient LedgerTx; calls without one run in a single-shot transaction.
type InMemoryDocumentStore struct {
	store *InMemoryLedgerStore
}

// NewInMemoryDocumentStore creates a document repository over the given
// ledger store.
func NewInMemoryDocumentStore(store *InMemoryLedgerStore) *InMemoryDocumentStore {
	return &InMemoryDocumentStore{store: store}
}

func documentKey(customerID, documentNumber string) string {
	return "document/" + customerID + "/" + documentNumber
}

// copyDocument returns a deep copy so neither callers nor the store can
// mutate each other's view of a document.
func copyDocument(doc *document.LedgerDocument) *document.LedgerDocument {
	if doc == nil {
		return nil
	}
	copied := *doc
	if doc.PaymentMethod != nil {
		method := *doc.PaymentMethod
		copied.PaymentMethod = &method
	}
	if doc.RelatedReceiptIDs != nil {
		copied.RelatedReceiptIDs = append([]string(nil), doc.RelatedReceiptIDs...)
	}
	if doc.Linkage.InvoiceNumbers != nil {
		copied.Linkage.InvoiceNumbers = append([]string(nil), doc.Linkage.InvoiceNumbers...)
	}
	copied.Metadata = doc.Metadata.Copy()
	return &copied
}

func (s *InMemoryDocumentStore) Create(ctx context.Context, doc *document.LedgerDocument) error {
	if tx := s.store.TxFromContext(ctx); tx != nil {
		return s.createInTx(tx, doc)
	}
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		return s.createInTx(s.store.TxFromContext(ctx), doc)
	})
}

func (s *InMemoryDocumentStore) createInTx(tx *LedgerTx, doc *document.LedgerDocument) error {
	key := documentKey(doc.CustomerID, doc.DocumentNumber)
	if _, found := tx.Get(key); found {
		return ierr.WithError(document.ErrDocumentNumberTaken).
			WithHintf("Document %s already exists", doc.DocumentNumber).
			WithReportableDetails(map[string]any{
				"customer_id":     doc.CustomerID,
				"document_number": doc.DocumentNumber,
			}).
			Mark(ierr.ErrAlreadyExists)
	}
	tx.Put(key, copyDocument(doc))
	return nil
}

func (s *InMemoryDocumentStore) Get(ctx context.Context, customerID, documentNumber string) (*document.LedgerDocument, error) {
	key := documentKey(customerID, documentNumber)

	var value interface{}
	var found bool
	if tx := s.store.TxFromContext(ctx); tx != nil {
		value, found = tx.Get(key)
	} else {
		value, found = s.store.getCommitted(key)
	}
	if !found {
		return nil, ierr.WithError(document.ErrDocumentNotFound).
			WithHintf("Document %s was not found", documentNumber).
			WithReportableDetails(map[string]any{
				"customer_id":     customerID,
				"document_number": documentNumber,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyDocument(value.(*document.LedgerDocument)), nil
}

func (s *InMemoryDocumentStore) Update(ctx context.Context, doc *document.LedgerDocument) error {
	if tx := s.store.TxFromContext(ctx); tx != nil {
		return s.updateInTx(tx, doc)
	}
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		return s.updateInTx(s.store.TxFromContext(ctx), doc)
	})
}

func (s *InMemoryDocumentStore) updateInTx(tx *LedgerTx, doc *document.LedgerDocument) error {
	key := documentKey(doc.CustomerID, doc.DocumentNumber)
	if _, found := tx.Get(key); !found {
		return ierr.WithError(document.ErrDocumentNotFound).
			WithHintf("Document %s was not found", doc.DocumentNumber).
			WithReportableDetails(map[string]any{
				"customer_id":     doc.CustomerID,
				"document_number": doc.DocumentNumber,
			}).
			Mark(ierr.ErrNotFound)
	}
	tx.Put(key, copyDocument(doc))
	return nil
}

// List reads only committed state, like the production repository's index
// query. A number-restricted filter fetches those documents directly and
// skips missing ones.
func (s *InMemoryDocumentStore) List(ctx context.Context, filter *types.DocumentFilter) ([]*document.LedgerDocument, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	if len(filter.DocumentNumbers) > 0 {
		docs := make([]*document.LedgerDocument, 0, len(filter.DocumentNumbers))
		for _, number := range filter.DocumentNumbers {
			doc, err := s.Get(ctx, filter.CustomerID, number)
			if err != nil {
				if ierr.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}

	var docs []*document.LedgerDocument
	for _, value := range s.store.scanCommitted() {
		doc, ok := value.(*document.LedgerDocument)
		if !ok || !documentMatchesFilter(doc, filter) {
			continue
		}
		docs = append(docs, copyDocument(doc))
	}

	asc := filter.GetOrder() == types.OrderAsc
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].GeneratedAt.Equal(docs[j].GeneratedAt) {
			if asc {
				return docs[i].DocumentNumber < docs[j].DocumentNumber
			}
			return docs[i].DocumentNumber > docs[j].DocumentNumber
		}
		if asc {
			return docs[i].GeneratedAt.Before(docs[j].GeneratedAt)
		}
		return docs[i].GeneratedAt.After(docs[j].GeneratedAt)
	})

	if offset := filter.GetOffset(); offset > 0 {
		if offset >= len(docs) {
			return nil, nil
		}
		docs = docs[offset:]
	}
	if !filter.IsUnlimited() && len(docs) > filter.GetLimit() {
		docs = docs[:filter.GetLimit()]
	}
	return docs, nil
}

func (s *InMemoryDocumentStore) Count(ctx context.Context, filter *types.DocumentFilter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	count := 0
	for _, value := range s.store.scanCommitted() {
		doc, ok := value.(*document.LedgerDocument)
		if ok && documentMatchesFilter(doc, filter) {
			count++
		}
	}
	return count, nil
}

func documentMatchesFilter(doc *document.LedgerDocument, filter *types.DocumentFilter) bool {
	if doc.CustomerID != filter.CustomerID {
		return false
	}
	if string(doc.Status) != filter.GetStatus() {
		return false
	}
	if filter.DocumentType != "" && doc.DocumentType != filter.DocumentType {
		return false
	}
	if len(filter.PaymentStatus) > 0 && !lo.Contains(filter.PaymentStatus, doc.PaymentStatus) {
		return false
	}
	if filter.TimeRangeFilter != nil && filter.StartTime != nil && filter.EndTime != nil {
		if doc.GeneratedAt.Before(*filter.StartTime) || doc.GeneratedAt.After(*filter.EndTime) {
			return false
		}
	}
	return true
}
