package catalog_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/roomservice/pkg/catalog"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	catCalls  atomic.Int32
	itemCalls atomic.Int32
	delay     time.Duration
	fail      atomic.Bool
}

func (s *countingSource) ActiveCategories(ctx context.Context) ([]domain.Category, error) {
	s.catCalls.Add(1)
	time.Sleep(s.delay)
	if s.fail.Load() {
		return nil, errors.New("catalog down")
	}
	return []domain.Category{
		{ID: "c1", Name: "Breakfast", Active: true},
		{ID: "c2", Name: "Retired", Active: false},
	}, nil
}

func (s *countingSource) AvailableItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error) {
	s.itemCalls.Add(1)
	if s.fail.Load() {
		return nil, errors.New("catalog down")
	}
	return []domain.MenuItem{
		{ID: "m1", Name: "Pancakes", Price: 1299, CategoryID: "c1", Available: true},
		{ID: "m2", Name: "Waffles", Price: 1099, CategoryID: "c1", Available: false},
		{ID: "m3", Name: "Coffee", Price: 450, CategoryID: "c3", Available: true},
	}, nil
}

func TestCache_Idempotent(t *testing.T) {
	src := &countingSource{}
	c := catalog.New(src)
	ctx := context.Background()

	first := c.Items(ctx, false)
	second := c.Items(ctx, false)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, src.itemCalls.Load())
	assert.EqualValues(t, 1, src.catCalls.Load())
}

func TestCache_FiltersInactive(t *testing.T) {
	c := catalog.New(&countingSource{})
	ctx := context.Background()

	cats := c.Categories(ctx, false)
	require.Len(t, cats, 1)
	assert.Equal(t, "Breakfast", cats[0].Name)

	items := c.Items(ctx, false)
	require.Len(t, items, 2)
	assert.Equal(t, "Pancakes", items[0].Name)

	byCat := c.ItemsByCategory(ctx, "c1")
	require.Len(t, byCat, 1)
	assert.Equal(t, "m1", byCat[0].ID)
}

func TestCache_ForceRefresh(t *testing.T) {
	src := &countingSource{}
	c := catalog.New(src)
	ctx := context.Background()

	c.Items(ctx, false)
	c.Items(ctx, true)
	assert.EqualValues(t, 2, src.itemCalls.Load())
}

func TestCache_ConcurrentRefreshCollapses(t *testing.T) {
	src := &countingSource{delay: 50 * time.Millisecond}
	c := catalog.New(src)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, c.Categories(ctx, true), 1)
		}()
	}
	wg.Wait()

	assert.Less(t, src.catCalls.Load(), int32(20))
}

func TestCache_FailSoft(t *testing.T) {
	src := &countingSource{}
	src.fail.Store(true)

	var outcomes []string
	c := catalog.New(src, catalog.WithObserver(func(outcome string, _ time.Duration) {
		outcomes = append(outcomes, outcome)
	}))
	ctx := context.Background()

	assert.Empty(t, c.Categories(ctx, false))
	assert.Empty(t, c.Items(ctx, false))
	assert.True(t, c.Loaded())
	assert.EqualValues(t, 1, src.catCalls.Load(), "empty snapshot is kept until forced")

	src.fail.Store(false)
	assert.Len(t, c.Categories(ctx, true), 1)
	assert.Equal(t, []string{catalog.OutcomeError, catalog.OutcomeOK}, outcomes)
}

func TestCache_MaxAge(t *testing.T) {
	src := &countingSource{}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := catalog.New(src,
		catalog.WithMaxAge(time.Minute),
		catalog.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	c.Items(ctx, false)
	now = now.Add(30 * time.Second)
	c.Items(ctx, false)
	assert.EqualValues(t, 1, src.itemCalls.Load())

	now = now.Add(time.Minute)
	c.Items(ctx, false)
	assert.EqualValues(t, 2, src.itemCalls.Load())
}

func TestCache_CanceledCallerDoesNotFailRefresh(t *testing.T) {
	c := catalog.New(&countingSource{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Len(t, c.Items(ctx, false), 2)
}
