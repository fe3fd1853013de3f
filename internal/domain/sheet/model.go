package sheet

import (
	"time"

	"github.com/blocapp/billing/internal/types"
)

// Sheet is an externally produced billing period snapshot: the record of
// units active during a period for one sub-tenant. The billing core only
// ever reads published sheets; it never creates or mutates them.
type Sheet struct {
	ID          string            `json:"id"`
	SubTenantID string            `json:"sub_tenant_id"`
	Status      types.SheetStatus `json:"status"`
	PeriodStart time.Time         `json:"period_start"`
	PeriodEnd   time.Time         `json:"period_end"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	Entries     []Entry           `json:"entries"`

	types.BaseModel
}

// Entry is a single row of the snapshot referencing a billable unit. A unit
// referenced by several entries or several sheets still counts once.
type Entry struct {
	UnitID string `json:"unit_id"`
}

// UnitIDs returns the distinct unit ids referenced by the sheet
func (s *Sheet) UnitIDs() map[string]struct{} {
	units := make(map[string]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		if e.UnitID != "" {
			units[e.UnitID] = struct{}{}
		}
	}
	return units
}
