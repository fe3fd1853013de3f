package docstore

import (
	"context"
	"time"

	"github.com/blocapp/billing/internal/domain/invoice"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/store"
)

// billingSettingsDoc is the single settings document holding the invoice
// number counter
const billingSettingsDoc = "billing"

type counterRepository struct {
	db     store.Client
	log    *logger.Logger
	prefix string
}

func NewCounterRepository(db store.Client, log *logger.Logger, prefix string) invoice.CounterRepository {
	return &counterRepository{db: db, log: log, prefix: prefix}
}

// AllocateNumber reads the counter, formats the invoice number from the
// value read, and persists value+1, all inside one transaction. Concurrent
// allocations conflict on the counter write and one of them retries, so no
// two calls ever return the same number.
func (r *counterRepository) AllocateNumber(ctx context.Context, now time.Time) (string, error) {
	var number string

	err := r.db.RunTransaction(ctx, func(tx store.Tx) error {
		counter := invoice.Counter{Prefix: r.prefix, NextNumber: 1}

		doc, err := tx.Get(store.CollectionSettings, billingSettingsDoc)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if err == nil {
			if err := store.DocumentTo(doc, &counter); err != nil {
				return err
			}
			if counter.Prefix == "" {
				counter.Prefix = r.prefix
			}
			if counter.NextNumber < 1 {
				counter.NextNumber = 1
			}
		}

		number = counter.NumberForYear(now)

		counter.NextNumber++
		next, err := store.DocumentFrom(&counter)
		if err != nil {
			return err
		}
		return tx.Set(store.CollectionSettings, billingSettingsDoc, next)
	})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to allocate invoice number").
			Mark(ierr.ErrStore)
	}

	r.log.Debugw("allocated invoice number", "invoice_number", number)
	return number, nil
}
