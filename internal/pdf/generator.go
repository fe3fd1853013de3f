package pdf

import (
	"context"

	"github.com/blocapp/billing/internal/domain/invoice"
	"github.com/blocapp/billing/internal/logger"
)

// Generator renders an invoice into a hosted PDF and returns its URL.
// Rendering happens in an external service; implementations only hand the
// invoice over and report where the document landed.
type Generator interface {
	RenderInvoicePDF(ctx context.Context, inv *invoice.Invoice) (url string, err error)
}

// NoopGenerator is used in local runs and tests where no rendering backend
// is configured
type NoopGenerator struct {
	Logger *logger.Logger
}

func NewNoopGenerator(log *logger.Logger) *NoopGenerator {
	return &NoopGenerator{Logger: log}
}

func (g *NoopGenerator) RenderInvoicePDF(_ context.Context, inv *invoice.Invoice) (string, error) {
	if g.Logger != nil {
		g.Logger.Debugw("pdf rendering disabled, skipping", "invoice_id", inv.ID)
	}
	return "", nil
}
