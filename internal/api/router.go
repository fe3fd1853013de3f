package api

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/blocapp/billing/internal/api/v1"
	"github.com/blocapp/billing/internal/rest/middleware"
)

type Handlers struct {
	Billing      *v1.BillingHandler
	Invoice      *v1.InvoiceHandler
	Payment      *v1.PaymentHandler
	Subscription *v1.SubscriptionHandler
	TenantGroup  *v1.TenantGroupHandler
	Webhook      *v1.WebhookHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Invoice routes
	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.GenerateInvoice)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.POST("/:id/finalize", handlers.Invoice.FinalizeInvoice)
		invoices.POST("/:id/mark-paid", handlers.Invoice.MarkInvoicePaid)
		invoices.POST("/:id/cancel", handlers.Invoice.CancelInvoice)
		invoices.POST("/:id/fail", handlers.Invoice.MarkInvoiceFailed)
	}

	// Payment routes
	payments := router.Group("/payments")
	{
		payments.POST("", handlers.Payment.CreatePayment)
		payments.GET("/:id", handlers.Payment.GetPayment)
		payments.POST("/:id/status", handlers.Payment.UpdatePaymentStatus)
		payments.POST("/:id/refund", handlers.Payment.RefundPayment)
		payments.POST("/:id/cancel", handlers.Payment.CancelPayment)
		payments.POST("/:id/confirm", handlers.Payment.ConfirmBankTransfer)
		payments.GET("/pending-bank-transfers", handlers.Payment.ListPendingBankTransfers)
	}

	// Account-scoped routes
	accounts := router.Group("/accounts/:account_id")
	{
		accounts.GET("/invoices", handlers.Invoice.ListInvoices)
		accounts.GET("/invoices/current", handlers.Invoice.GetCurrentInvoice)
		accounts.GET("/invoices/pending", handlers.Invoice.GetPendingInvoices)
		accounts.GET("/invoices/stats", handlers.Invoice.GetInvoiceStats)
		accounts.GET("/invoices/exists", handlers.Invoice.HasInvoiceForPeriod)

		accounts.GET("/payments", handlers.Payment.ListPayments)
		accounts.GET("/payments/stats", handlers.Payment.GetPaymentStats)
		accounts.POST("/payments/manual", handlers.Payment.RecordManualPayment)

		accounts.GET("/subscription", handlers.Subscription.GetSubscription)
		accounts.POST("/subscription/trial", handlers.Subscription.StartTrial)
		accounts.POST("/subscription/trial/extend", handlers.Subscription.ExtendTrial)
		accounts.POST("/subscription/activate", handlers.Subscription.Activate)
		accounts.POST("/subscription/suspend", handlers.Subscription.Suspend)
		accounts.POST("/subscription/reactivate", handlers.Subscription.Reactivate)
		accounts.POST("/subscription/pricing", handlers.Subscription.SetCustomPricing)
		accounts.POST("/subscription/contact", handlers.Subscription.UpdateBillingContact)
		accounts.GET("/access", handlers.Subscription.GetAccessPolicy)

		accounts.GET("/billing/estimate", handlers.Billing.EstimateMonthlyBill)
		accounts.GET("/billing/has-units", handlers.Billing.HasBillableUnits)
	}

	// Tenant group routes
	groups := router.Group("/tenant-groups")
	{
		groups.GET("/:id", handlers.TenantGroup.GetGroup)
		groups.POST("/:id/suspend", handlers.TenantGroup.SuspendGroup)
		groups.POST("/:id/reactivate", handlers.TenantGroup.ReactivateGroup)
	}

	// Processor webhooks
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/payments", handlers.Webhook.HandlePaymentEvent)
	}
}
