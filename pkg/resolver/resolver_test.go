package resolver_test

import (
	"testing"

	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(names ...string) []domain.MenuItem {
	out := make([]domain.MenuItem, len(names))
	for i, n := range names {
		out[i] = domain.MenuItem{ID: n, Name: n, Available: true}
	}
	return out
}

func TestResolve_ExactBeatsSubstring(t *testing.T) {
	// the longer name comes first so a substring tier would pick it
	catalog := items("Grilled Caesar Chicken Salad", "Caesar Salad")

	got, ok := resolver.Resolve("caesar salad", catalog)
	require.True(t, ok)
	assert.Equal(t, "Caesar Salad", got.Name)
}

func TestResolve_Substring(t *testing.T) {
	catalog := items("Club Sandwich", "Fluffy Pancakes")

	got, ok := resolver.Resolve("pancakes", catalog)
	require.True(t, ok)
	assert.Equal(t, "Fluffy Pancakes", got.Name)

	// spoken longer than the item name
	got, ok = resolver.Resolve("the club sandwich please", catalog)
	require.True(t, ok)
	assert.Equal(t, "Club Sandwich", got.Name)
}

func TestResolve_TokenOverlap(t *testing.T) {
	catalog := items("Classic Beef Burger", "Margherita Pizza")

	got, ok := resolver.Resolve("beef burger classic", catalog)
	require.True(t, ok)
	assert.Equal(t, "Classic Beef Burger", got.Name)

	_, ok = resolver.Resolve("veggie burger wrap", catalog)
	assert.False(t, ok, "one token in three is below the default threshold")
}

func TestResolve_Threshold(t *testing.T) {
	catalog := items("Classic Beef Burger")
	loose := resolver.New(resolver.WithThreshold(0.3))

	_, ok := loose.Resolve("veggie burger wrap", catalog)
	assert.True(t, ok)
	assert.Equal(t, 0.3, loose.Threshold())

	ignored := resolver.New(resolver.WithThreshold(1.5))
	assert.Equal(t, resolver.DefaultThreshold, ignored.Threshold())
}

func TestResolve_FirstInCatalogOrderWins(t *testing.T) {
	catalog := items("Orange Juice", "Apple Juice")

	got, ok := resolver.Resolve("juice", catalog)
	require.True(t, ok)
	assert.Equal(t, "Orange Juice", got.Name)
}

func TestResolve_NoMatch(t *testing.T) {
	_, ok := resolver.Resolve("lobster", items("Caesar Salad"))
	assert.False(t, ok)

	_, ok = resolver.Resolve("  ", items("Caesar Salad"))
	assert.False(t, ok)

	_, ok = resolver.Resolve("salad", nil)
	assert.False(t, ok)
}

func TestResolveCategory(t *testing.T) {
	cats := []domain.Category{
		{ID: "1", Name: "Breakfast", Active: true},
		{ID: "2", Name: "Desserts", Active: true},
	}
	r := resolver.New()

	got, ok := r.ResolveCategory("breakfast", cats)
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)

	got, ok = r.ResolveCategory("dessert", cats)
	require.True(t, ok)
	assert.Equal(t, "2", got.ID)

	_, ok = r.ResolveCategory("Nonexistent", cats)
	assert.False(t, ok)
}
