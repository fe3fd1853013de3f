package docstore

import (
	"context"
	"time"

	"github.com/blocapp/billing/internal/cache"
	"github.com/blocapp/billing/internal/domain/tenantgroup"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/store"
)

const tenantGroupCacheTTL = 5 * time.Minute

type tenantGroupRepository struct {
	db    store.Client
	log   *logger.Logger
	cache cache.Cache
}

func NewTenantGroupRepository(db store.Client, log *logger.Logger, c cache.Cache) tenantgroup.Repository {
	return &tenantGroupRepository{db: db, log: log, cache: c}
}

func (r *tenantGroupRepository) Get(ctx context.Context, id string) (*tenantgroup.TenantGroup, error) {
	key := cache.GenerateKey(cache.PrefixTenantGroup, id)
	if cached, ok := r.cache.Get(ctx, key); ok {
		if g, ok := cached.(*tenantgroup.TenantGroup); ok {
			return g, nil
		}
	}

	doc, err := r.db.Get(ctx, store.CollectionTenantGroups, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Tenant group %s was not found", id).
				WithReportableDetails(map[string]any{"group_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}

	var g tenantgroup.TenantGroup
	if err := store.DocumentTo(doc, &g); err != nil {
		return nil, err
	}
	g.ID = id

	r.cache.Set(ctx, key, &g, tenantGroupCacheTTL)
	return &g, nil
}

func (r *tenantGroupRepository) Create(ctx context.Context, g *tenantgroup.TenantGroup) error {
	doc, err := store.DocumentFrom(g)
	if err != nil {
		return err
	}
	r.log.Debugw("creating tenant group", "group_id", g.ID)
	return r.db.Set(ctx, store.CollectionTenantGroups, g.ID, doc)
}

func (r *tenantGroupRepository) Update(ctx context.Context, g *tenantgroup.TenantGroup) error {
	doc, err := store.DocumentFrom(g)
	if err != nil {
		return err
	}
	if err := r.db.Set(ctx, store.CollectionTenantGroups, g.ID, doc); err != nil {
		return err
	}
	r.cache.Delete(ctx, cache.GenerateKey(cache.PrefixTenantGroup, g.ID))
	return nil
}
