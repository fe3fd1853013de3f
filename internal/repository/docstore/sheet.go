package docstore

import (
	"context"

	"github.com/blocapp/billing/internal/domain/sheet"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/store"
	"github.com/blocapp/billing/internal/types"
)

type sheetRepository struct {
	db  store.Client
	log *logger.Logger
}

func NewSheetRepository(db store.Client, log *logger.Logger) sheet.Repository {
	return &sheetRepository{db: db, log: log}
}

func (r *sheetRepository) ListPublished(ctx context.Context, subTenantID string) ([]*sheet.Sheet, error) {
	snaps, err := r.db.Query(ctx, store.CollectionSheets, store.Query{
		Filters: []store.Filter{
			store.Eq("sub_tenant_id", subTenantID),
			store.Eq("status", string(types.SheetStatusPublished)),
		},
	})
	if err != nil {
		return nil, err
	}

	out := make([]*sheet.Sheet, 0, len(snaps))
	for _, s := range snaps {
		var sh sheet.Sheet
		if err := store.DocumentTo(s.Data, &sh); err != nil {
			return nil, err
		}
		sh.ID = s.ID
		out = append(out, &sh)
	}
	return out, nil
}
