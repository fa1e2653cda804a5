package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/roomservice/pkg/adapters/memory"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestMemoryStore_CopyOnRead(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s1", &domain.SessionState{ID: "s1", Values: map[string]string{"a": "1"}}))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	loaded.Values["a"] = "mutated"

	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "1", again.Values["a"])
}
