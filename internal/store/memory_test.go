package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/blocapp/billing/internal/errors"
)

func TestMemoryClientGetSetUpdate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	_, err := c.Get(ctx, "accounts", "a1")
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))

	require.NoError(t, c.Set(ctx, "accounts", "a1", Document{"name": "Ana", "units": float64(3)}))

	doc, err := c.Get(ctx, "accounts", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc["name"])

	// Returned documents never alias stored state
	doc["name"] = "mutated"
	doc2, err := c.Get(ctx, "accounts", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc2["name"])

	require.NoError(t, c.Update(ctx, "accounts", "a1", Document{"units": float64(5)}))
	doc3, err := c.Get(ctx, "accounts", "a1")
	require.NoError(t, err)
	assert.Equal(t, float64(5), doc3["units"])
	assert.Equal(t, "Ana", doc3["name"])

	err = c.Update(ctx, "accounts", "missing", Document{"x": 1})
	assert.True(t, ierr.IsNotFound(err))
}

func TestMemoryClientQuery(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	require.NoError(t, c.Set(ctx, "invoices", "i1", Document{"account_id": "a1", "seq": float64(1)}))
	require.NoError(t, c.Set(ctx, "invoices", "i2", Document{"account_id": "a1", "seq": float64(2)}))
	require.NoError(t, c.Set(ctx, "invoices", "i3", Document{"account_id": "a2", "seq": float64(3)}))

	snaps, err := c.Query(ctx, "invoices", Query{
		Filters:    []Filter{Eq("account_id", "a1")},
		OrderBy:    "seq",
		Descending: true,
	})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "i2", snaps[0].ID)
	assert.Equal(t, "i1", snaps[1].ID)

	snaps, err = c.Query(ctx, "invoices", Query{
		Filters: []Filter{{Field: "seq", Op: ">=", Value: float64(2)}},
		OrderBy: "seq",
	})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "i2", snaps[0].ID)

	// Cursor pagination
	snaps, err = c.Query(ctx, "invoices", Query{OrderBy: "seq", StartAfter: "i1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "i2", snaps[0].ID)
}

func TestMemoryClientQueryNestedField(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	require.NoError(t, c.Set(ctx, "accounts", "a1", Document{
		"subscription": map[string]any{"status": "trial"},
	}))
	require.NoError(t, c.Set(ctx, "accounts", "a2", Document{
		"subscription": map[string]any{"status": "active"},
	}))

	snaps, err := c.Query(ctx, "accounts", Query{
		Filters: []Filter{Eq("subscription.status", "trial")},
	})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "a1", snaps[0].ID)
}

func TestRunTransactionSerializesCounterIncrements(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	require.NoError(t, c.Set(ctx, "settings", "counter", Document{"value": float64(0)}))

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.RunTransaction(ctx, func(tx Tx) error {
				doc, err := tx.Get("settings", "counter")
				if err != nil {
					return err
				}
				value := doc["value"].(float64)
				return tx.Set("settings", "counter", Document{"value": value + 1})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := c.Get(ctx, "settings", "counter")
	require.NoError(t, err)
	assert.Equal(t, float64(workers), doc["value"])
}

func TestRunTransactionPropagatesPermanentErrors(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	calls := 0
	err := c.RunTransaction(ctx, func(tx Tx) error {
		calls++
		return ierr.NewError("boom").Mark(ierr.ErrValidation)
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.Equal(t, 1, calls)
}

func TestSubscribeDeliversChanges(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	changes := make(chan Document, 4)
	unsub, err := c.Subscribe(ctx, "accounts", "a1", func(doc Document) {
		changes <- doc
	})
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "accounts", "a1", Document{"name": "Ana"}))

	select {
	case doc := <-changes:
		assert.Equal(t, "Ana", doc["name"])
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	unsub()
	require.NoError(t, c.Set(ctx, "accounts", "a1", Document{"name": "Maria"}))

	select {
	case doc := <-changes:
		t.Fatalf("unexpected delivery after unsubscribe: %v", doc)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeDoesNotBlockWriter(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	// A subscriber that never drains; writes must still complete
	block := make(chan struct{})
	unsub, err := c.Subscribe(ctx, "accounts", "a1", func(Document) {
		<-block
	})
	require.NoError(t, err)
	defer func() {
		close(block)
		unsub()
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBacklog*3; i++ {
			_ = c.Set(ctx, "accounts", "a1", Document{"i": float64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer blocked by slow subscriber")
	}
}
