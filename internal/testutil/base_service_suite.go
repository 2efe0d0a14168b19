package testutil

import (
	"context"

	"github.com/numera/numera/internal/config"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories
type Stores struct {
	DocumentRepo *InMemoryDocumentStore
	SequenceRepo *InMemorySequenceStore
	ExpenseRepo  *InMemoryExpenseStore
}

// BaseServiceTestSuite provides common functionality for service tests:
// a transactional in-memory store, repositories over it, an event recorder
// and the ambient pieces services expect.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *InMemoryLedgerStore
	stores    Stores
	publisher *InMemoryLedgerEventPublisher
	cache     *InMemoryCache
	cfg       *config.Configuration
	logger    *logger.Logger
}

// SetupSuite initializes the test suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.cfg = config.GetDefaultConfig()

	log, err := logger.NewLogger(s.cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.logger = log
}

// SetupTest prepares fresh state for each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
}

// TearDownTest cleans up after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.store = NewInMemoryLedgerStore()
	s.stores = Stores{
		DocumentRepo: NewInMemoryDocumentStore(s.store),
		SequenceRepo: NewInMemorySequenceStore(s.store),
		ExpenseRepo:  NewInMemoryExpenseStore(),
	}
	s.publisher = NewInMemoryLedgerEventPublisher()
	s.cache = NewInMemoryCache()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.store.Clear()
	s.stores.ExpenseRepo.Clear()
	s.publisher.Clear()
	s.cache.Flush(context.Background())
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStore returns the transactional ledger store
func (s *BaseServiceTestSuite) GetStore() *InMemoryLedgerStore {
	return s.store
}

// GetStores returns the in-memory repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetPublisher returns the event recorder
func (s *BaseServiceTestSuite) GetPublisher() *InMemoryLedgerEventPublisher {
	return s.publisher
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() *InMemoryCache {
	return s.cache
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}
