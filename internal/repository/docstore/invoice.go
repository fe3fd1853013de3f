package docstore

import (
	"context"
	"time"

	"github.com/blocapp/billing/internal/domain/invoice"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/store"
	"github.com/blocapp/billing/internal/types"
)

type invoiceRepository struct {
	db  store.Client
	log *logger.Logger
}

func NewInvoiceRepository(db store.Client, log *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, log: log}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	doc, err := store.DocumentFrom(inv)
	if err != nil {
		return err
	}
	r.log.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"account_id", inv.AccountID)
	return r.db.Set(ctx, store.CollectionInvoices, inv.ID, doc)
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	doc, err := r.db.Get(ctx, store.CollectionInvoices, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Invoice %s was not found", id).
				WithReportableDetails(map[string]any{"invoice_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}
	return r.decode(id, doc)
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	doc, err := store.DocumentFrom(inv)
	if err != nil {
		return err
	}
	return r.db.Set(ctx, store.CollectionInvoices, inv.ID, doc)
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = &types.InvoiceFilter{QueryFilter: types.NewDefaultQueryFilter()}
	}

	q := store.Query{
		OrderBy:    "issued_at",
		Descending: true,
	}
	if filter.AccountID != "" {
		q.Filters = append(q.Filters, store.Eq("account_id", filter.AccountID))
	}
	if filter.Status != nil {
		q.Filters = append(q.Filters, store.Eq("status", string(*filter.Status)))
	}
	if !filter.IsUnlimited() {
		q.Limit = filter.GetLimit() + filter.GetOffset()
	}

	snaps, err := r.db.Query(ctx, store.CollectionInvoices, q)
	if err != nil {
		return nil, err
	}

	out, err := r.decodeAll(snaps)
	if err != nil {
		return nil, err
	}
	return paginate(out, filter.GetOffset(), filter.GetLimit(), filter.IsUnlimited()), nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	q := store.Query{}
	if filter != nil {
		if filter.AccountID != "" {
			q.Filters = append(q.Filters, store.Eq("account_id", filter.AccountID))
		}
		if filter.Status != nil {
			q.Filters = append(q.Filters, store.Eq("status", string(*filter.Status)))
		}
	}
	snaps, err := r.db.Query(ctx, store.CollectionInvoices, q)
	if err != nil {
		return 0, err
	}
	return len(snaps), nil
}

func (r *invoiceRepository) ExistsForPeriod(ctx context.Context, accountID string, periodStart time.Time) (bool, error) {
	snaps, err := r.db.Query(ctx, store.CollectionInvoices, store.Query{
		Filters: []store.Filter{store.Eq("account_id", accountID)},
	})
	if err != nil {
		return false, err
	}
	for _, s := range snaps {
		inv, err := r.decode(s.ID, s.Data)
		if err != nil {
			return false, err
		}
		if inv.Status == types.InvoiceStatusCancelled {
			continue
		}
		if inv.PeriodStart.Equal(periodStart) {
			return true, nil
		}
	}
	return false, nil
}

func (r *invoiceRepository) GetLatest(ctx context.Context, accountID string) (*invoice.Invoice, error) {
	snaps, err := r.db.Query(ctx, store.CollectionInvoices, store.Query{
		Filters:    []store.Filter{store.Eq("account_id", accountID)},
		OrderBy:    "issued_at",
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ierr.NewError("no invoices found").
			WithHintf("Account %s has no invoices", accountID).
			Mark(ierr.ErrNotFound)
	}
	return r.decode(snaps[0].ID, snaps[0].Data)
}

func (r *invoiceRepository) ListPending(ctx context.Context, accountID string) ([]*invoice.Invoice, error) {
	snaps, err := r.db.Query(ctx, store.CollectionInvoices, store.Query{
		Filters: []store.Filter{
			store.Eq("account_id", accountID),
			store.Eq("status", string(types.InvoiceStatusPending)),
		},
		OrderBy: "due_at",
	})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(snaps)
}

func (r *invoiceRepository) decode(id string, doc store.Document) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	if err := store.DocumentTo(doc, &inv); err != nil {
		return nil, err
	}
	inv.ID = id
	return &inv, nil
}

func (r *invoiceRepository) decodeAll(snaps []store.Snapshot) ([]*invoice.Invoice, error) {
	out := make([]*invoice.Invoice, 0, len(snaps))
	for _, s := range snaps {
		inv, err := r.decode(s.ID, s.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

// paginate applies offset/limit after the query, since the store contract
// only supports cursor pagination natively
func paginate[T any](items []T, offset, limit int, unlimited bool) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if !unlimited && len(items) > limit {
		items = items[:limit]
	}
	return items
}
