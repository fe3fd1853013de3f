package docstore

import (
	"context"

	"github.com/blocapp/billing/internal/domain/payment"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/store"
	"github.com/blocapp/billing/internal/types"
)

type paymentRepository struct {
	db  store.Client
	log *logger.Logger
}

func NewPaymentRepository(db store.Client, log *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, log: log}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	doc, err := store.DocumentFrom(p)
	if err != nil {
		return err
	}
	r.log.Debugw("creating payment",
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
		"method", p.Method)
	return r.db.Set(ctx, store.CollectionPayments, p.ID, doc)
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	doc, err := r.db.Get(ctx, store.CollectionPayments, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Payment %s was not found", id).
				WithReportableDetails(map[string]any{"payment_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}
	return r.decode(id, doc)
}

func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	doc, err := store.DocumentFrom(p)
	if err != nil {
		return err
	}
	return r.db.Set(ctx, store.CollectionPayments, p.ID, doc)
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = &types.PaymentFilter{QueryFilter: types.NewDefaultQueryFilter()}
	}

	q := store.Query{
		OrderBy:    "created_at",
		Descending: true,
	}
	q.Filters = r.buildFilters(filter)
	if !filter.IsUnlimited() {
		q.Limit = filter.GetLimit() + filter.GetOffset()
	}

	snaps, err := r.db.Query(ctx, store.CollectionPayments, q)
	if err != nil {
		return nil, err
	}
	out, err := r.decodeAll(snaps)
	if err != nil {
		return nil, err
	}
	return paginate(out, filter.GetOffset(), filter.GetLimit(), filter.IsUnlimited()), nil
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	q := store.Query{}
	if filter != nil {
		q.Filters = r.buildFilters(filter)
	}
	snaps, err := r.db.Query(ctx, store.CollectionPayments, q)
	if err != nil {
		return 0, err
	}
	return len(snaps), nil
}

func (r *paymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	snaps, err := r.db.Query(ctx, store.CollectionPayments, store.Query{
		Filters: []store.Filter{store.Eq("idempotency_key", key)},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ierr.NewError("payment not found").
			WithHint("No payment recorded for this idempotency key").
			Mark(ierr.ErrNotFound)
	}
	return r.decode(snaps[0].ID, snaps[0].Data)
}

func (r *paymentRepository) ListPendingBankTransfers(ctx context.Context, accountID string) ([]*payment.Payment, error) {
	snaps, err := r.db.Query(ctx, store.CollectionPayments, store.Query{
		Filters: []store.Filter{
			store.Eq("account_id", accountID),
			store.Eq("method", string(types.PaymentMethodBankTransfer)),
			store.Eq("status", string(types.PaymentStatusPending)),
		},
	})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(snaps)
}

func (r *paymentRepository) buildFilters(filter *types.PaymentFilter) []store.Filter {
	var filters []store.Filter
	if filter.AccountID != "" {
		filters = append(filters, store.Eq("account_id", filter.AccountID))
	}
	if filter.InvoiceID != "" {
		filters = append(filters, store.Eq("invoice_id", filter.InvoiceID))
	}
	if filter.Method != nil {
		filters = append(filters, store.Eq("method", string(*filter.Method)))
	}
	if filter.Status != nil {
		filters = append(filters, store.Eq("status", string(*filter.Status)))
	}
	return filters
}

func (r *paymentRepository) decode(id string, doc store.Document) (*payment.Payment, error) {
	var p payment.Payment
	if err := store.DocumentTo(doc, &p); err != nil {
		return nil, err
	}
	p.ID = id
	return &p, nil
}

func (r *paymentRepository) decodeAll(snaps []store.Snapshot) ([]*payment.Payment, error) {
	out := make([]*payment.Payment, 0, len(snaps))
	for _, s := range snaps {
		p, err := r.decode(s.ID, s.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
