package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "shopify:evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first, "first mark should succeed")

	second, err := store.MarkProcessed(ctx, "shopify:evt-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, second, "duplicate mark should report already processed")

	other, err := store.MarkProcessed(ctx, "ebay:evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, other, "different platform key is independent")
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "shopify:evt-2", time.Minute)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "shopify:evt-2")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "shopify:evt-3", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	processed, err := store.IsProcessed(ctx, "shopify:evt-3")
	require.NoError(t, err)
	assert.False(t, processed, "expired key is eligible for re-processing")

	again, err := store.MarkProcessed(ctx, "shopify:evt-3", time.Minute)
	require.NoError(t, err)
	assert.True(t, again, "expired key can be re-marked")
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	_, err := store.MarkProcessed(ctx, "a", time.Nanosecond)
	require.NoError(t, err)
	_, err = store.MarkProcessed(ctx, "b", time.Hour)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
