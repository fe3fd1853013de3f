package docstore

import (
	"context"

	"github.com/blocapp/billing/internal/cache"
	"github.com/blocapp/billing/internal/domain/subtenant"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/store"
)

type subTenantRepository struct {
	db    store.Client
	log   *logger.Logger
	cache cache.Cache
}

func NewSubTenantRepository(db store.Client, log *logger.Logger, c cache.Cache) subtenant.Repository {
	return &subTenantRepository{db: db, log: log, cache: c}
}

func (r *subTenantRepository) Get(ctx context.Context, id string) (*subtenant.SubTenant, error) {
	doc, err := r.db.Get(ctx, store.CollectionSubTenants, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Sub-tenant %s was not found", id).
				WithReportableDetails(map[string]any{"sub_tenant_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}
	return r.decode(id, doc)
}

func (r *subTenantRepository) Create(ctx context.Context, st *subtenant.SubTenant) error {
	doc, err := store.DocumentFrom(st)
	if err != nil {
		return err
	}
	r.log.Debugw("creating sub-tenant", "sub_tenant_id", st.ID, "account_id", st.AccountID)
	return r.db.Set(ctx, store.CollectionSubTenants, st.ID, doc)
}

func (r *subTenantRepository) Update(ctx context.Context, st *subtenant.SubTenant) error {
	doc, err := store.DocumentFrom(st)
	if err != nil {
		return err
	}
	if err := r.db.Set(ctx, store.CollectionSubTenants, st.ID, doc); err != nil {
		return err
	}
	r.cache.Delete(ctx, cache.GenerateKey(cache.PrefixSubTenant, st.ID))
	return nil
}

// ListByIDs loads each id individually; ids that no longer resolve are
// skipped rather than failing the whole batch
func (r *subTenantRepository) ListByIDs(ctx context.Context, ids []string) ([]*subtenant.SubTenant, error) {
	out := make([]*subtenant.SubTenant, 0, len(ids))
	for _, id := range ids {
		st, err := r.Get(ctx, id)
		if err != nil {
			if ierr.IsNotFound(err) {
				r.log.Warnw("skipping missing sub-tenant", "sub_tenant_id", id)
				continue
			}
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (r *subTenantRepository) ListByGroup(ctx context.Context, groupID string) ([]*subtenant.SubTenant, error) {
	snaps, err := r.db.Query(ctx, store.CollectionSubTenants, store.Query{
		Filters: []store.Filter{store.Eq("group_id", groupID)},
	})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(snaps)
}

func (r *subTenantRepository) ListByLegacyOwner(ctx context.Context, ownerID string) ([]*subtenant.SubTenant, error) {
	snaps, err := r.db.Query(ctx, store.CollectionSubTenants, store.Query{
		Filters: []store.Filter{store.Eq("legacy_owner_id", ownerID)},
	})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(snaps)
}

func (r *subTenantRepository) decode(id string, doc store.Document) (*subtenant.SubTenant, error) {
	var st subtenant.SubTenant
	if err := store.DocumentTo(doc, &st); err != nil {
		return nil, err
	}
	st.ID = id
	return &st, nil
}

func (r *subTenantRepository) decodeAll(snaps []store.Snapshot) ([]*subtenant.SubTenant, error) {
	out := make([]*subtenant.SubTenant, 0, len(snaps))
	for _, s := range snaps {
		st, err := r.decode(s.ID, s.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
