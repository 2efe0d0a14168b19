package service

import (
	"context"

	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
)

// NumberingService hands out sequential document numbers. Numbers are
// unique and strictly ascending within one (customer, document type, year)
// partition; a number consumed by a failed document write downstream is
// burned, never reissued.
type NumberingService interface {
	NextDocumentNumber(ctx context.Context, customerID string, docType types.DocumentType, year int) (string, error)
}

type numberingService struct {
	ServiceParams
}

func NewNumberingService(params ServiceParams) NumberingService {
	return &numberingService{
		ServiceParams: params,
	}
}

// NextDocumentNumber allocates the next number in the partition's sequence.
// The counter read and write share one transaction, so when two allocations
// race the losing commit fails on the counter version, the closure re-runs
// against the winner's state and the two callers end up with distinct
// consecutive values.
func (s *numberingService) NextDocumentNumber(ctx context.Context, customerID string, docType types.DocumentType, year int) (string, error) {
	if customerID == "" {
		return "", ierr.NewError("customer_id is required").
			WithHint("Document numbers are allocated per customer ledger").
			Mark(ierr.ErrValidation)
	}
	if err := docType.Validate(); err != nil {
		return "", err
	}
	if year < 1970 {
		return "", ierr.NewError("invalid year").
			WithHintf("Cannot allocate document numbers for year %d", year).
			Mark(ierr.ErrValidation)
	}

	var number string
	err := s.Store.WithTx(ctx, func(ctx context.Context) error {
		counter, err := s.SequenceRepo.Get(ctx, customerID, docType, year)
		if err != nil {
			return err
		}

		seq := counter.Next()
		if err := s.SequenceRepo.Save(ctx, counter); err != nil {
			return err
		}

		number = types.FormatDocumentNumber(docType, year, seq)
		return nil
	})
	if err != nil {
		return "", err
	}

	s.Logger.Debugw("allocated document number",
		"customer_id", customerID,
		"document_type", docType,
		"document_number", number,
	)
	return number, nil
}
