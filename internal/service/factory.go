package service

import (
	"github.com/blocapp/billing/internal/audit"
	"github.com/blocapp/billing/internal/config"
	"github.com/blocapp/billing/internal/domain/account"
	"github.com/blocapp/billing/internal/domain/invoice"
	"github.com/blocapp/billing/internal/domain/payment"
	"github.com/blocapp/billing/internal/domain/sheet"
	"github.com/blocapp/billing/internal/domain/subtenant"
	"github.com/blocapp/billing/internal/domain/tenantgroup"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/pdf"
	"github.com/blocapp/billing/internal/repository/docstore"
	"github.com/blocapp/billing/internal/store"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     store.Client
	Audit  audit.Logger
	PDF    pdf.Generator

	AccountRepo     account.Repository
	SubTenantRepo   subtenant.Repository
	TenantGroupRepo tenantgroup.Repository
	SheetRepo       sheet.Repository
	InvoiceRepo     invoice.Repository
	CounterRepo     invoice.CounterRepository
	PaymentRepo     payment.Repository
}

// NewServiceParams assembles the dependency bundle from the repository
// factory
func NewServiceParams(
	log *logger.Logger,
	cfg *config.Configuration,
	db store.Client,
	auditLog audit.Logger,
	pdfGen pdf.Generator,
	repos *docstore.Repositories,
) ServiceParams {
	return ServiceParams{
		Logger:          log,
		Config:          cfg,
		DB:              db,
		Audit:           auditLog,
		PDF:             pdfGen,
		AccountRepo:     repos.Account,
		SubTenantRepo:   repos.SubTenant,
		TenantGroupRepo: repos.TenantGroup,
		SheetRepo:       repos.Sheet,
		InvoiceRepo:     repos.Invoice,
		CounterRepo:     repos.Counter,
		PaymentRepo:     repos.Payment,
	}
}
