package service

import (
	"sync"
	"testing"
	"time"

	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/testutil"
	"github.com/numera/numera/internal/types"
	"github.com/stretchr/testify/suite"
)

type NumberingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service NumberingService
}

func TestNumberingService(t *testing.T) {
	suite.Run(t, new(NumberingServiceSuite))
}

func (s *NumberingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewNumberingService(testServiceParams(&s.BaseServiceTestSuite))
}

func (s *NumberingServiceSuite) TestSequentialAllocation() {
	ctx := s.GetContext()
	year := time.Now().UTC().Year()

	for seq := int64(1); seq <= 3; seq++ {
		number, err := s.service.NextDocumentNumber(ctx, "cust_1", types.DocumentTypeInvoice, year)
		s.NoError(err)
		s.Equal(types.FormatDocumentNumber(types.DocumentTypeInvoice, year, seq), number)
	}
}

func (s *NumberingServiceSuite) TestPartitionsAreIndependent() {
	ctx := s.GetContext()
	year := time.Now().UTC().Year()

	first, err := s.service.NextDocumentNumber(ctx, "cust_1", types.DocumentTypeInvoice, year)
	s.NoError(err)
	s.Equal(types.FormatDocumentNumber(types.DocumentTypeInvoice, year, 1), first)

	// A different type, year or customer each starts its own sequence
	receipt, err := s.service.NextDocumentNumber(ctx, "cust_1", types.DocumentTypeReceipt, year)
	s.NoError(err)
	s.Equal(types.FormatDocumentNumber(types.DocumentTypeReceipt, year, 1), receipt)

	nextYear, err := s.service.NextDocumentNumber(ctx, "cust_1", types.DocumentTypeInvoice, year+1)
	s.NoError(err)
	s.Equal(types.FormatDocumentNumber(types.DocumentTypeInvoice, year+1, 1), nextYear)

	otherCustomer, err := s.service.NextDocumentNumber(ctx, "cust_2", types.DocumentTypeInvoice, year)
	s.NoError(err)
	s.Equal(types.FormatDocumentNumber(types.DocumentTypeInvoice, year, 1), otherCustomer)

	second, err := s.service.NextDocumentNumber(ctx, "cust_1", types.DocumentTypeInvoice, year)
	s.NoError(err)
	s.Equal(types.FormatDocumentNumber(types.DocumentTypeInvoice, year, 2), second)
}

func (s *NumberingServiceSuite) TestConcurrentAllocationsAreUnique() {
	ctx := s.GetContext()
	year := time.Now().UTC().Year()
	const workers = 20

	// Contention on one counter burns commit attempts fast
	s.GetStore().SetMaxTxAttempts(workers * 3)

	var mu sync.Mutex
	var wg sync.WaitGroup
	numbers := make(map[string]struct{})
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := s.service.NextDocumentNumber(ctx, "cust_1", types.DocumentTypeInvoice, year)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			numbers[number] = struct{}{}
		}()
	}
	wg.Wait()

	s.NoError(firstErr)
	s.Len(numbers, workers)

	seen := make(map[int64]struct{})
	for number := range numbers {
		_, _, seq, err := types.ParseDocumentNumber(number)
		s.NoError(err)
		seen[seq] = struct{}{}
	}
	for seq := int64(1); seq <= workers; seq++ {
		s.Contains(seen, seq)
	}
}

func (s *NumberingServiceSuite) TestDiscardedNumberIsNeverReissued() {
	ctx := s.GetContext()
	year := time.Now().UTC().Year()

	burned, err := s.service.NextDocumentNumber(ctx, "cust_1", types.DocumentTypeInvoice, year)
	s.NoError(err)

	// The caller that asked for the first number never used it; the counter
	// moved forward regardless
	next, err := s.service.NextDocumentNumber(ctx, "cust_1", types.DocumentTypeInvoice, year)
	s.NoError(err)
	s.NotEqual(burned, next)

	_, _, burnedSeq, err := types.ParseDocumentNumber(burned)
	s.NoError(err)
	_, _, nextSeq, err := types.ParseDocumentNumber(next)
	s.NoError(err)
	s.Equal(burnedSeq+1, nextSeq)
}

func (s *NumberingServiceSuite) TestAllocationValidation() {
	ctx := s.GetContext()
	year := time.Now().UTC().Year()

	_, err := s.service.NextDocumentNumber(ctx, "", types.DocumentTypeInvoice, year)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.service.NextDocumentNumber(ctx, "cust_1", types.DocumentType("quote"), year)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.service.NextDocumentNumber(ctx, "cust_1", types.DocumentTypeInvoice, 1800)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
