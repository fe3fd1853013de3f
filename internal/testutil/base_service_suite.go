package testutil

import (
	"context"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/blocapp/billing/internal/audit"
	"github.com/blocapp/billing/internal/cache"
	"github.com/blocapp/billing/internal/config"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/store"
)

// BaseServiceTestSuite provides common setup for service tests: an
// in-memory store client, default config and a silent logger
type BaseServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	db    *store.MemoryClient
	log   *logger.Logger
	cfg   *config.Configuration
	cache cache.Cache
}

// SetupTest initializes fresh state before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext("acct_test", "user_test")
	s.db = store.NewMemoryClient()
	s.log = &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	s.cfg = config.GetDefaultConfig()
	s.cache = cache.NewInMemoryCache()
}

// TearDownTest clears state after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.db.Clear()
	s.cache.Flush(s.ctx)
}

func (s *BaseServiceTestSuite) GetContext() context.Context   { return s.ctx }
func (s *BaseServiceTestSuite) DB() *store.MemoryClient       { return s.db }
func (s *BaseServiceTestSuite) Logger() *logger.Logger        { return s.log }
func (s *BaseServiceTestSuite) Config() *config.Configuration { return s.cfg }
func (s *BaseServiceTestSuite) Cache() cache.Cache            { return s.cache }
func (s *BaseServiceTestSuite) Audit() audit.Logger           { return audit.NewNoopLogger() }

// ClearStores removes all stored documents
func (s *BaseServiceTestSuite) ClearStores() {
	s.db.Clear()
	s.cache.Flush(s.ctx)
}
