package service

import (
	"context"

	"github.com/numera/numera/internal/cache"
	"github.com/numera/numera/internal/config"
	"github.com/numera/numera/internal/domain/document"
	"github.com/numera/numera/internal/domain/expense"
	"github.com/numera/numera/internal/domain/sequence"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/publisher"
	"github.com/numera/numera/internal/s3"
)

// StoreClient is the slice of the ledger store the services depend on:
// scoping a unit of work. Repositories find the ambient transaction in the
// context on their own, so services never touch staged reads or writes
// directly.
type StoreClient interface {
	// WithTx runs fn inside one optimistic transaction. Commit conflicts
	// re-run the closure up to the store budget; errors returned by fn are
	// surfaced without retrying.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Store  StoreClient
	Cache  cache.Cache

	// S3 is nil when artifact storage is disabled
	S3 s3.Service

	// Repositories
	DocumentRepo document.Repository
	SequenceRepo sequence.Repository
	ExpenseRepo  expense.Repository

	// Publishers
	EventPublisher publisher.LedgerEventPublisher
}

// NewServiceParams bundles the common service dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	store StoreClient,
	cache cache.Cache,
	s3Service s3.Service,
	documentRepo document.Repository,
	sequenceRepo sequence.Repository,
	expenseRepo expense.Repository,
	eventPublisher publisher.LedgerEventPublisher,
) ServiceParams {
	return ServiceParams{
		Logger:         logger,
		Config:         config,
		Store:          store,
		Cache:          cache,
		S3:             s3Service,
		DocumentRepo:   documentRepo,
		SequenceRepo:   sequenceRepo,
		ExpenseRepo:    expenseRepo,
		EventPublisher: eventPublisher,
	}
}
