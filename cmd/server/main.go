package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/blocapp/billing/internal/api"
	v1 "github.com/blocapp/billing/internal/api/v1"
	"github.com/blocapp/billing/internal/audit"
	"github.com/blocapp/billing/internal/cache"
	"github.com/blocapp/billing/internal/config"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/pdf"
	"github.com/blocapp/billing/internal/repository/docstore"
	"github.com/blocapp/billing/internal/service"
	"github.com/blocapp/billing/internal/store"
	"github.com/blocapp/billing/internal/types"
	"github.com/blocapp/billing/internal/validator"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Document store
			provideStoreClient,

			// Audit trail
			provideAuditLogger,

			// PDF rendering
			providePDFGenerator,

			// Repositories
			docstore.NewRepositories,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewBillingService,
			service.NewInvoiceService,
			service.NewPaymentService,
			service.NewSubscriptionService,
			service.NewAccessPolicyService,
			service.NewTenantGroupService,
		),
	)

	// API layer
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideStoreClient(cfg *config.Configuration, log *logger.Logger) (store.Client, error) {
	if cfg.Deployment.Mode == types.ModeLocal {
		log.Info("Using in-memory document store")
		return store.NewMemoryClient(), nil
	}
	return store.NewFirestoreClient(context.Background(), cfg)
}

func provideAuditLogger(db store.Client, log *logger.Logger) audit.Logger {
	return audit.NewStoreLogger(db, log)
}

func providePDFGenerator(log *logger.Logger) pdf.Generator {
	return pdf.NewNoopGenerator(log)
}

func provideHandlers(
	log *logger.Logger,
	billingService service.BillingService,
	invoiceService service.InvoiceService,
	paymentService service.PaymentService,
	subscriptionService service.SubscriptionService,
	accessService service.AccessPolicyService,
	tenantGroupService service.TenantGroupService,
) api.Handlers {
	return api.Handlers{
		Billing:      v1.NewBillingHandler(billingService, log),
		Invoice:      v1.NewInvoiceHandler(invoiceService, log),
		Payment:      v1.NewPaymentHandler(paymentService, log),
		Subscription: v1.NewSubscriptionHandler(subscriptionService, accessService, log),
		TenantGroup:  v1.NewTenantGroupHandler(tenantGroupService, log),
		Webhook:      v1.NewWebhookHandler(paymentService, log),
	}
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db store.Client,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return db.Close()
		},
	})
}
