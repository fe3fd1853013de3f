package docstore

import (
	"context"
	"time"

	"github.com/blocapp/billing/internal/cache"
	"github.com/blocapp/billing/internal/domain/account"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/store"
)

const accountCacheTTL = 5 * time.Minute

type accountRepository struct {
	db    store.Client
	log   *logger.Logger
	cache cache.Cache
}

func NewAccountRepository(db store.Client, log *logger.Logger, c cache.Cache) account.Repository {
	return &accountRepository{db: db, log: log, cache: c}
}

func (r *accountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	key := cache.GenerateKey(cache.PrefixAccount, id)
	if cached, ok := r.cache.Get(ctx, key); ok {
		if a, ok := cached.(*account.Account); ok {
			return a.Clone(), nil
		}
	}

	doc, err := r.db.Get(ctx, store.CollectionAccounts, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Account %s was not found", id).
				WithReportableDetails(map[string]any{"account_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}

	var a account.Account
	if err := store.DocumentTo(doc, &a); err != nil {
		return nil, err
	}
	a.ID = id

	// The cache holds its own copy so callers mutating the returned
	// account cannot poison it
	r.cache.Set(ctx, key, a.Clone(), accountCacheTTL)
	return &a, nil
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	doc, err := store.DocumentFrom(a)
	if err != nil {
		return err
	}
	r.log.Debugw("creating account", "account_id", a.ID)
	return r.db.Set(ctx, store.CollectionAccounts, a.ID, doc)
}

func (r *accountRepository) Update(ctx context.Context, a *account.Account) error {
	doc, err := store.DocumentFrom(a)
	if err != nil {
		return err
	}
	if err := r.db.Set(ctx, store.CollectionAccounts, a.ID, doc); err != nil {
		return err
	}
	r.cache.Delete(ctx, cache.GenerateKey(cache.PrefixAccount, a.ID))
	return nil
}

func (r *accountRepository) UpdateSubscription(ctx context.Context, accountID string, sub *account.Subscription) error {
	subDoc, err := store.DocumentFrom(sub)
	if err != nil {
		return err
	}
	err = r.db.Update(ctx, store.CollectionAccounts, accountID, store.Document{
		"subscription": map[string]any(subDoc),
		"updated_at":   time.Now().UTC(),
	})
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.WithError(err).
				WithHintf("Account %s was not found", accountID).
				Mark(ierr.ErrNotFound)
		}
		return err
	}
	r.cache.Delete(ctx, cache.GenerateKey(cache.PrefixAccount, accountID))
	return nil
}

func (r *accountRepository) Watch(ctx context.Context, accountID string, onChange func(*account.Subscription)) (store.Unsubscribe, error) {
	return r.db.Subscribe(ctx, store.CollectionAccounts, accountID, func(doc store.Document) {
		var a account.Account
		if err := store.DocumentTo(doc, &a); err != nil {
			r.log.Warnw("failed to decode account change", "account_id", accountID, "error", err)
			return
		}
		onChange(a.Subscription)
	})
}
