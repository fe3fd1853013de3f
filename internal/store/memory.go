package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"

	ierr "github.com/blocapp/billing/internal/errors"
)

const (
	txMaxRetries      = 20
	txRetryInterval   = 2 * time.Millisecond
	subscriberBacklog = 16
)

// errTxConflict marks a transaction commit invalidated by a concurrent
// write; RunTransaction retries on it
var errTxConflict = errors.New("transaction conflict")

type versionedDoc struct {
	data    Document
	version int64
}

type subscriber struct {
	ch   chan Document
	stop chan struct{}
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.stop) })
}

// MemoryClient is an in-process Client with optimistic transactions and
// non-blocking change notification, used by tests and local mode
type MemoryClient struct {
	mu          sync.RWMutex
	collections map[string]map[string]*versionedDoc

	subMu       sync.Mutex
	subscribers map[string][]*subscriber

	closed bool
}

// NewMemoryClient creates an empty in-memory store
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		collections: make(map[string]map[string]*versionedDoc),
		subscribers: make(map[string][]*subscriber),
	}
}

func subKey(collection, id string) string {
	return collection + "/" + id
}

// Get implements Client
func (c *MemoryClient) Get(ctx context.Context, collection, id string) (Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.collections[collection][id]
	if !ok {
		return nil, ierr.NewErrorf("document %s/%s not found", collection, id).
			WithHint("The requested record does not exist").
			Mark(ierr.ErrNotFound)
	}
	return doc.data.Clone(), nil
}

// Set implements Client
func (c *MemoryClient) Set(ctx context.Context, collection, id string, doc Document) error {
	c.mu.Lock()
	c.setLocked(collection, id, doc)
	data := c.collections[collection][id].data.Clone()
	c.mu.Unlock()

	c.notify(collection, id, data)
	return nil
}

// Update implements Client
func (c *MemoryClient) Update(ctx context.Context, collection, id string, fields Document) error {
	c.mu.Lock()
	existing, ok := c.collections[collection][id]
	if !ok {
		c.mu.Unlock()
		return ierr.NewErrorf("document %s/%s not found", collection, id).
			WithHint("Cannot update a record that does not exist").
			Mark(ierr.ErrNotFound)
	}
	merged := existing.data.Clone()
	for k, v := range fields {
		merged[k] = cloneValue(v)
	}
	existing.data = merged
	existing.version++
	data := merged.Clone()
	c.mu.Unlock()

	c.notify(collection, id, data)
	return nil
}

// Delete implements Client
func (c *MemoryClient) Delete(ctx context.Context, collection, id string) error {
	c.mu.Lock()
	if col, ok := c.collections[collection]; ok {
		delete(col, id)
	}
	c.mu.Unlock()

	c.notify(collection, id, nil)
	return nil
}

// Query implements Client
func (c *MemoryClient) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	c.mu.RLock()
	var matched []Snapshot
	for id, doc := range c.collections[collection] {
		if matchesFilters(doc.data, q.Filters) {
			matched = append(matched, Snapshot{ID: id, Data: doc.data.Clone()})
		}
	}
	c.mu.RUnlock()

	orderBy := q.OrderBy
	sort.Slice(matched, func(i, j int) bool {
		if orderBy != "" {
			cmp := compareValues(matched[i].Data[orderBy], matched[j].Data[orderBy])
			if cmp != 0 {
				if q.Descending {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		// stable tiebreak on id
		return matched[i].ID < matched[j].ID
	})

	if q.StartAfter != "" {
		for i, snap := range matched {
			if snap.ID == q.StartAfter {
				matched = matched[i+1:]
				break
			}
		}
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	return matched, nil
}

// RunTransaction implements Client. Reads record document versions and the
// commit is rejected when any of them changed; the whole function is then
// retried with a short constant backoff.
func (c *MemoryClient) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	op := func() error {
		tx := &memTx{client: c, reads: make(map[string]int64)}
		if err := fn(tx); err != nil {
			if errors.Is(err, errTxConflict) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := tx.commit(); err != nil {
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(txRetryInterval), txMaxRetries),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		if errors.Is(err, errTxConflict) {
			return ierr.WithError(err).
				WithHint("The operation kept conflicting with concurrent writes").
				Mark(ierr.ErrStore)
		}
		return err
	}
	return nil
}

// Subscribe implements Client. Each subscriber gets a buffered channel
// drained by its own goroutine; a slow consumer loses notifications instead
// of blocking the writer.
func (c *MemoryClient) Subscribe(ctx context.Context, collection, id string, onChange func(Document)) (Unsubscribe, error) {
	sub := &subscriber{
		ch:   make(chan Document, subscriberBacklog),
		stop: make(chan struct{}),
	}

	key := subKey(collection, id)
	c.subMu.Lock()
	if c.closed {
		c.subMu.Unlock()
		return nil, ierr.NewError("store is closed").Mark(ierr.ErrStore)
	}
	c.subscribers[key] = append(c.subscribers[key], sub)
	c.subMu.Unlock()

	go func() {
		for {
			select {
			case doc := <-sub.ch:
				onChange(doc)
			case <-sub.stop:
				return
			}
		}
	}()

	unsubscribe := func() {
		sub.close()
		c.subMu.Lock()
		subs := c.subscribers[key]
		for i, s := range subs {
			if s == sub {
				c.subscribers[key] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		c.subMu.Unlock()
	}
	return unsubscribe, nil
}

// Close implements Client
func (c *MemoryClient) Close() error {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.closed = true
	for _, subs := range c.subscribers {
		for _, s := range subs {
			s.close()
		}
	}
	c.subscribers = make(map[string][]*subscriber)
	return nil
}

// Clear drops all documents, keeping subscriptions; used by test suites
func (c *MemoryClient) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections = make(map[string]map[string]*versionedDoc)
}

func (c *MemoryClient) setLocked(collection, id string, doc Document) {
	col, ok := c.collections[collection]
	if !ok {
		col = make(map[string]*versionedDoc)
		c.collections[collection] = col
	}
	if existing, ok := col[id]; ok {
		existing.data = doc.Clone()
		existing.version++
		return
	}
	col[id] = &versionedDoc{data: doc.Clone(), version: 1}
}

func (c *MemoryClient) notify(collection, id string, doc Document) {
	key := subKey(collection, id)
	c.subMu.Lock()
	subs := append([]*subscriber(nil), c.subscribers[key]...)
	c.subMu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- doc:
		default:
			// subscriber backlog full; drop rather than block the writer
		}
	}
}

// memTx buffers writes and validates read versions at commit
type memTx struct {
	client *MemoryClient
	reads  map[string]int64
	writes []txWrite
}

type txWrite struct {
	collection string
	id         string
	fields     Document
	merge      bool
}

func (t *memTx) Get(collection, id string) (Document, error) {
	t.client.mu.RLock()
	defer t.client.mu.RUnlock()

	doc, ok := t.client.collections[collection][id]
	if !ok {
		t.reads[subKey(collection, id)] = 0
		return nil, ierr.NewErrorf("document %s/%s not found", collection, id).
			WithHint("The requested record does not exist").
			Mark(ierr.ErrNotFound)
	}
	t.reads[subKey(collection, id)] = doc.version
	return doc.data.Clone(), nil
}

func (t *memTx) Set(collection, id string, doc Document) error {
	t.writes = append(t.writes, txWrite{collection: collection, id: id, fields: doc.Clone()})
	return nil
}

func (t *memTx) Update(collection, id string, fields Document) error {
	t.writes = append(t.writes, txWrite{collection: collection, id: id, fields: fields.Clone(), merge: true})
	return nil
}

func (t *memTx) commit() error {
	c := t.client
	c.mu.Lock()

	for key, version := range t.reads {
		collection, id, _ := strings.Cut(key, "/")
		current := int64(0)
		if doc, ok := c.collections[collection][id]; ok {
			current = doc.version
		}
		if current != version {
			c.mu.Unlock()
			return errTxConflict
		}
	}

	type notification struct {
		collection, id string
		data           Document
	}
	notifications := make([]notification, 0, len(t.writes))

	for _, w := range t.writes {
		if w.merge {
			existing, ok := c.collections[w.collection][w.id]
			if !ok {
				c.mu.Unlock()
				return backoff.Permanent(ierr.NewErrorf("document %s/%s not found", w.collection, w.id).
					Mark(ierr.ErrNotFound))
			}
			merged := existing.data.Clone()
			for k, v := range w.fields {
				merged[k] = cloneValue(v)
			}
			existing.data = merged
			existing.version++
		} else {
			c.setLocked(w.collection, w.id, w.fields)
		}
		notifications = append(notifications, notification{
			collection: w.collection,
			id:         w.id,
			data:       c.collections[w.collection][w.id].data.Clone(),
		})
	}
	c.mu.Unlock()

	for _, n := range notifications {
		c.notify(n.collection, n.id, n.data)
	}
	return nil
}

func matchesFilters(doc Document, filters []Filter) bool {
	for _, f := range filters {
		val, ok := lookupField(doc, f.Field)
		if !ok {
			return false
		}
		cmp := compareValues(val, f.Value)
		switch f.Op {
		case "==":
			if cmp != 0 {
				return false
			}
		case "<":
			if cmp >= 0 {
				return false
			}
		case "<=":
			if cmp > 0 {
				return false
			}
		case ">":
			if cmp <= 0 {
				return false
			}
		case ">=":
			if cmp < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// lookupField resolves dotted paths into nested documents
func lookupField(doc Document, field string) (any, bool) {
	parts := strings.Split(field, ".")
	var current any = map[string]any(doc)
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
