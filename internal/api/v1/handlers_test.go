package v1_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/blocapp/billing/internal/api"
	v1 "github.com/blocapp/billing/internal/api/v1"
	"github.com/blocapp/billing/internal/domain/invoice"
	"github.com/blocapp/billing/internal/domain/payment"
	"github.com/blocapp/billing/internal/pdf"
	"github.com/blocapp/billing/internal/repository/docstore"
	"github.com/blocapp/billing/internal/service"
	"github.com/blocapp/billing/internal/testutil"
	"github.com/blocapp/billing/internal/types"
)

type HandlersSuite struct {
	testutil.BaseServiceTestSuite
	repos  *docstore.Repositories
	router *gin.Engine
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	gin.SetMode(gin.TestMode)

	s.repos = docstore.NewRepositories(s.DB(), s.Config(), s.Logger(), s.Cache())
	params := service.NewServiceParams(
		s.Logger(), s.Config(), s.DB(), s.Audit(),
		pdf.NewNoopGenerator(s.Logger()), s.repos)

	billingService := service.NewBillingService(params)
	invoiceService := service.NewInvoiceService(params)
	paymentService := service.NewPaymentService(params)
	subscriptionService := service.NewSubscriptionService(params)
	accessService := service.NewAccessPolicyService(params)
	tenantGroupService := service.NewTenantGroupService(params)

	s.router = api.NewRouter(api.Handlers{
		Billing:      v1.NewBillingHandler(billingService, s.Logger()),
		Invoice:      v1.NewInvoiceHandler(invoiceService, s.Logger()),
		Payment:      v1.NewPaymentHandler(paymentService, s.Logger()),
		Subscription: v1.NewSubscriptionHandler(subscriptionService, accessService, s.Logger()),
		TenantGroup:  v1.NewTenantGroupHandler(tenantGroupService, s.Logger()),
		Webhook:      v1.NewWebhookHandler(paymentService, s.Logger()),
	})
}

func (s *HandlersSuite) seedInvoice(id, accountID, number string) {
	s.NoError(s.repos.Invoice.Create(s.GetContext(), &invoice.Invoice{
		ID:            id,
		AccountID:     accountID,
		InvoiceNumber: number,
		Status:        types.InvoiceStatusPending,
		IssuedAt:      time.Now().UTC(),
		TotalAmount:   decimal.RequireFromString("45.00"),
		Currency:      "RON",
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *HandlersSuite) seedPayment(id, accountID, invoiceID string) {
	s.NoError(s.repos.Payment.Create(s.GetContext(), &payment.Payment{
		ID:        id,
		AccountID: accountID,
		InvoiceID: invoiceID,
		Amount:    decimal.RequireFromString("45.00"),
		Currency:  "RON",
		Method:    types.PaymentMethodBankTransfer,
		Status:    types.PaymentStatusPending,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *HandlersSuite) request(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlersSuite) TestListInvoicesScopedToPathAccount() {
	s.seedInvoice("inv_a", "acct_a", "BLC-2026-000001")
	s.seedInvoice("inv_b", "acct_b", "BLC-2026-000002")

	w := s.request(http.MethodGet, "/v1/accounts/acct_a/invoices")
	s.Equal(http.StatusOK, w.Code)

	var resp service.ListInvoicesResult
	s.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Items, 1)
	s.Equal("acct_a", resp.Items[0].AccountID)
	s.Equal("inv_a", resp.Items[0].ID)
}

func (s *HandlersSuite) TestListInvoicesRejectsForeignAccountOverride() {
	s.seedInvoice("inv_b", "acct_b", "BLC-2026-000001")

	w := s.request(http.MethodGet, "/v1/accounts/acct_a/invoices?account_id=acct_b")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersSuite) TestListPaymentsScopedToPathAccount() {
	s.seedPayment("pay_a", "acct_a", "inv_a")
	s.seedPayment("pay_b", "acct_b", "inv_b")

	w := s.request(http.MethodGet, "/v1/accounts/acct_a/payments")
	s.Equal(http.StatusOK, w.Code)

	var resp service.ListPaymentsResult
	s.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Items, 1)
	s.Equal("acct_a", resp.Items[0].AccountID)
	s.Equal("pay_a", resp.Items[0].ID)
}

func (s *HandlersSuite) TestListPaymentsRejectsForeignAccountOverride() {
	w := s.request(http.MethodGet, "/v1/accounts/acct_a/payments?account_id=acct_b")
	s.Equal(http.StatusBadRequest, w.Code)
}
