package store

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/blocapp/billing/internal/config"
	ierr "github.com/blocapp/billing/internal/errors"
)

// FirestoreClient adapts the Cloud Firestore SDK to the Client contract.
// Firestore's own RunTransaction already retries on contention, so the
// retry semantics of the contract come for free.
type FirestoreClient struct {
	client *firestore.Client
}

// NewFirestoreClient connects to the configured Firestore project
func NewFirestoreClient(ctx context.Context, cfg *config.Configuration) (*FirestoreClient, error) {
	var opts []option.ClientOption
	if cfg.Firestore.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firestore.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID, opts...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to the document store").
			Mark(ierr.ErrStore)
	}
	return &FirestoreClient{client: client}, nil
}

// Get implements Client
func (c *FirestoreClient) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := c.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translateFirestoreErr(err, collection, id)
	}
	return Document(snap.Data()), nil
}

// Set implements Client
func (c *FirestoreClient) Set(ctx context.Context, collection, id string, doc Document) error {
	if _, err := c.client.Collection(collection).Doc(id).Set(ctx, map[string]any(doc)); err != nil {
		return translateFirestoreErr(err, collection, id)
	}
	return nil
}

// Update implements Client. A merge write would upsert a missing document,
// so this uses Update, which fails with NotFound like the contract requires.
func (c *FirestoreClient) Update(ctx context.Context, collection, id string, fields Document) error {
	ref := c.client.Collection(collection).Doc(id)
	if _, err := ref.Update(ctx, fieldUpdates(fields)); err != nil {
		return translateFirestoreErr(err, collection, id)
	}
	return nil
}

// Delete implements Client
func (c *FirestoreClient) Delete(ctx context.Context, collection, id string) error {
	if _, err := c.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return translateFirestoreErr(err, collection, id)
	}
	return nil
}

// Query implements Client
func (c *FirestoreClient) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	fq := c.client.Collection(collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, f.Op, f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.StartAfter != "" {
		fq = fq.StartAfter(q.StartAfter)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	iter := fq.Documents(ctx)
	defer iter.Stop()

	var results []Snapshot
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, translateFirestoreErr(err, collection, "")
		}
		results = append(results, Snapshot{ID: snap.Ref.ID, Data: Document(snap.Data())})
	}
	return results, nil
}

// RunTransaction implements Client
func (c *FirestoreClient) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return c.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(&firestoreTx{client: c.client, tx: t})
	})
}

// Subscribe implements Client using Firestore snapshot listeners
func (c *FirestoreClient) Subscribe(ctx context.Context, collection, id string, onChange func(Document)) (Unsubscribe, error) {
	listenCtx, cancel := context.WithCancel(ctx)
	snaps := c.client.Collection(collection).Doc(id).Snapshots(listenCtx)

	go func() {
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				return
			}
			if !snap.Exists() {
				onChange(nil)
				continue
			}
			onChange(Document(snap.Data()))
		}
	}()

	return func() { cancel() }, nil
}

// Close implements Client
func (c *FirestoreClient) Close() error {
	return c.client.Close()
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string) (Document, error) {
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		return nil, translateFirestoreErr(err, collection, id)
	}
	return Document(snap.Data()), nil
}

func (t *firestoreTx) Set(collection, id string, doc Document) error {
	return t.tx.Set(t.client.Collection(collection).Doc(id), map[string]any(doc))
}

func (t *firestoreTx) Update(collection, id string, fields Document) error {
	return t.tx.Update(t.client.Collection(collection).Doc(id), fieldUpdates(fields))
}

// fieldUpdates converts a partial document into firestore update entries.
// FieldPath is used so keys are taken literally instead of being split on
// dots.
func fieldUpdates(fields Document) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	return updates
}

func translateFirestoreErr(err error, collection, id string) error {
	if status.Code(err) == codes.NotFound {
		return ierr.NewErrorf("document %s/%s not found", collection, id).
			WithHint("The requested record does not exist").
			Mark(ierr.ErrNotFound)
	}
	return ierr.WithError(err).
		WithHint("The document store is unavailable").
		Mark(ierr.ErrStore)
}
