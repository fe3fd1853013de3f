package store

import (
	"context"
)

// Collection names used by the billing core
const (
	CollectionAccounts     = "accounts"
	CollectionSubTenants   = "sub_tenants"
	CollectionTenantGroups = "tenant_groups"
	CollectionSheets       = "sheets"
	CollectionInvoices     = "invoices"
	CollectionPayments     = "payments"
	CollectionSettings     = "settings"
	CollectionActivityLog  = "activity_log"
)

// Document is the raw representation of a stored record
type Document map[string]any

// Filter is a single field predicate applied by Query
type Filter struct {
	Field string
	Op    string // "==", "<", "<=", ">", ">="
	Value any
}

// Eq builds an equality filter
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: "==", Value: value}
}

// Query describes a point query over a collection: equality/range filters
// with ordering, an optional limit and a pagination cursor
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	// StartAfter is a pagination cursor: the id of the last document of the
	// previous page
	StartAfter string
}

// Snapshot is a document returned by Query
type Snapshot struct {
	ID   string
	Data Document
}

// Tx exposes the read/write primitives available inside a transaction.
// All reads must happen before the first write.
type Tx interface {
	Get(collection, id string) (Document, error)
	Set(collection, id string, doc Document) error
	Update(collection, id string, fields Document) error
}

// Unsubscribe stops delivery of change notifications. Calling it more than
// once is safe.
type Unsubscribe func()

// Client is the transactional document-store contract the billing core
// consumes. Implementations must retry RunTransaction on write conflict.
type Client interface {
	// Get returns the document or an error marked with ErrNotFound
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set creates or fully replaces a document
	Set(ctx context.Context, collection, id string, doc Document) error

	// Update merges the given fields into an existing document
	Update(ctx context.Context, collection, id string, fields Document) error

	// Delete removes a document; deleting a missing document is not an error
	Delete(ctx context.Context, collection, id string) error

	// Query runs a point query with equality/range filters
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)

	// RunTransaction executes fn inside an optimistic transaction and
	// retries it (bounded) when a concurrent write invalidates a read
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Subscribe registers a change callback for a single document. Delivery
	// never blocks the writer; after Unsubscribe no further notifications
	// are delivered.
	Subscribe(ctx context.Context, collection, id string, onChange func(Document)) (Unsubscribe, error)

	// Close releases any underlying connections
	Close() error
}
