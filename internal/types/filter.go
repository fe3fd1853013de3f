package types

import (
	ierr "github.com/blocapp/billing/internal/errors"
)

const (
	defaultFilterLimit = 50
	maxFilterLimit     = 1000
)

// QueryFilter carries pagination and ordering options for list operations
type QueryFilter struct {
	Limit  *int    `json:"limit,omitempty" form:"limit"`
	Offset *int    `json:"offset,omitempty" form:"offset"`
	Sort   *string `json:"sort,omitempty" form:"sort"`
	Order  *string `json:"order,omitempty" form:"order"`
}

// NewDefaultQueryFilter creates a filter with sane defaults
func NewDefaultQueryFilter() *QueryFilter {
	limit := defaultFilterLimit
	offset := 0
	sort := "created_at"
	order := "desc"
	return &QueryFilter{
		Limit:  &limit,
		Offset: &offset,
		Sort:   &sort,
		Order:  &order,
	}
}

// NewNoLimitQueryFilter creates a filter that returns all results
func NewNoLimitQueryFilter() *QueryFilter {
	offset := 0
	sort := "created_at"
	order := "desc"
	return &QueryFilter{
		Offset: &offset,
		Sort:   &sort,
		Order:  &order,
	}
}

func (f *QueryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit <= 0 || *f.Limit > maxFilterLimit) {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 1 and %d", maxFilterLimit).
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must not be negative").
			Mark(ierr.ErrValidation)
	}
	if f.Order != nil && *f.Order != "asc" && *f.Order != "desc" {
		return ierr.NewError("invalid order").
			WithHint("Order must be asc or desc").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (f *QueryFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return defaultFilterLimit
	}
	return *f.Limit
}

func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

func (f *QueryFilter) GetSort() string {
	if f == nil || f.Sort == nil {
		return "created_at"
	}
	return *f.Sort
}

func (f *QueryFilter) GetOrder() string {
	if f == nil || f.Order == nil {
		return "desc"
	}
	return *f.Order
}

// IsUnlimited reports whether the filter requests all results
func (f *QueryFilter) IsUnlimited() bool {
	return f != nil && f.Limit == nil
}

// InvoiceFilter narrows invoice list operations
type InvoiceFilter struct {
	*QueryFilter

	AccountID string         `json:"account_id,omitempty" form:"account_id"`
	Status    *InvoiceStatus `json:"status,omitempty" form:"status"`
}

func (f *InvoiceFilter) Validate() error {
	if f == nil {
		return nil
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.Status != nil {
		return f.Status.Validate()
	}
	return nil
}

// PaymentFilter narrows payment list operations
type PaymentFilter struct {
	*QueryFilter

	AccountID string         `json:"account_id,omitempty" form:"account_id"`
	InvoiceID string         `json:"invoice_id,omitempty" form:"invoice_id"`
	Method    *PaymentMethod `json:"method,omitempty" form:"method"`
	Status    *PaymentStatus `json:"status,omitempty" form:"status"`
}

func (f *PaymentFilter) Validate() error {
	if f == nil {
		return nil
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.Method != nil {
		if err := f.Method.Validate(); err != nil {
			return err
		}
	}
	if f.Status != nil {
		return f.Status.Validate()
	}
	return nil
}
