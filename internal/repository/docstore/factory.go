// Package docstore implements the domain repositories on top of the
// transactional document store contract.
package docstore

import (
	"github.com/blocapp/billing/internal/cache"
	"github.com/blocapp/billing/internal/config"
	"github.com/blocapp/billing/internal/domain/account"
	"github.com/blocapp/billing/internal/domain/invoice"
	"github.com/blocapp/billing/internal/domain/payment"
	"github.com/blocapp/billing/internal/domain/sheet"
	"github.com/blocapp/billing/internal/domain/subtenant"
	"github.com/blocapp/billing/internal/domain/tenantgroup"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/store"
)

// Repositories bundles every repository implementation for wiring
type Repositories struct {
	Account     account.Repository
	SubTenant   subtenant.Repository
	TenantGroup tenantgroup.Repository
	Sheet       sheet.Repository
	Invoice     invoice.Repository
	Counter     invoice.CounterRepository
	Payment     payment.Repository
}

func NewRepositories(db store.Client, cfg *config.Configuration, log *logger.Logger, c cache.Cache) *Repositories {
	return &Repositories{
		Account:     NewAccountRepository(db, log, c),
		SubTenant:   NewSubTenantRepository(db, log, c),
		TenantGroup: NewTenantGroupRepository(db, log, c),
		Sheet:       NewSheetRepository(db, log),
		Invoice:     NewInvoiceRepository(db, log),
		Counter:     NewCounterRepository(db, log, cfg.Billing.InvoicePrefix),
		Payment:     NewPaymentRepository(db, log),
	}
}
