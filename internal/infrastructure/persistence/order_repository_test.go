package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

func testOrder(externalID string, lines ...syncdomain.OrderLine) *syncdomain.Order {
	return syncdomain.NewOrder(syncdomain.PlatformCodeEbay, externalID, lines)
}

func testLine(sku string, quantity int64) syncdomain.OrderLine {
	return syncdomain.OrderLine{SKU: sku, Quantity: quantity, UnitPrice: decimal.NewFromFloat(4.50)}
}

func TestGormOrderRepository_SaveAndGet(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	order := testOrder("ORD-1", testLine("A1", 2), testLine("B2", 1))
	require.NoError(t, repo.Save(ctx, order))

	got, err := repo.GetByExternalID(ctx, syncdomain.PlatformCodeEbay, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, syncdomain.OrderStatusNew, got.Status)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "A1", got.Lines[0].SKU)
	assert.Equal(t, "B2", got.Lines[1].SKU)
	assert.True(t, got.Lines[0].UnitPrice.Equal(decimal.NewFromFloat(4.50)))
}

func TestGormOrderRepository_GetByExternalID_NotFound(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))

	_, err := repo.GetByExternalID(context.Background(), syncdomain.PlatformCodeEbay, "missing")
	assert.ErrorIs(t, err, syncdomain.ErrOrderNotFound)
}

func TestGormOrderRepository_SaveUpdatesStatus(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	order := testOrder("ORD-1", testLine("A1", 2))
	require.NoError(t, repo.Save(ctx, order))

	require.NoError(t, order.MarkFulfilling())
	require.NoError(t, order.MarkFulfilled())
	require.NoError(t, repo.Save(ctx, order))

	got, err := repo.GetByExternalID(ctx, syncdomain.PlatformCodeEbay, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.OrderStatusFulfilled, got.Status)
	require.Len(t, got.Lines, 1, "re-save must not duplicate lines")
}

func TestGormOrderRepository_ListByStatus(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	older := testOrder("ORD-1", testLine("A1", 1))
	older.ReceivedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, older))

	newer := testOrder("ORD-2", testLine("B2", 1))
	require.NoError(t, repo.Save(ctx, newer))

	failed := testOrder("ORD-3", testLine("C3", 1))
	require.NoError(t, failed.MarkFailed("insufficient stock"))
	require.NoError(t, repo.Save(ctx, failed))

	open, err := repo.ListByStatus(ctx, syncdomain.OrderStatusNew)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "ORD-1", open[0].ExternalID, "oldest first")
	assert.Equal(t, "ORD-2", open[1].ExternalID)

	terminal, err := repo.ListByStatus(ctx, syncdomain.OrderStatusFailed)
	require.NoError(t, err)
	require.Len(t, terminal, 1)
	assert.Equal(t, "insufficient stock", terminal[0].FailureReason)
}

func TestGormOrderRepository_HasOpenOrderForSKU(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	open := testOrder("ORD-1", testLine("A1", 1))
	require.NoError(t, repo.Save(ctx, open))

	closed := testOrder("ORD-2", testLine("B2", 1))
	require.NoError(t, closed.MarkFulfilling())
	require.NoError(t, closed.MarkFulfilled())
	require.NoError(t, repo.Save(ctx, closed))

	has, err := repo.HasOpenOrderForSKU(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasOpenOrderForSKU(ctx, "B2")
	require.NoError(t, err)
	assert.False(t, has, "terminal orders do not count as open")

	has, err = repo.HasOpenOrderForSKU(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGormOrderRepository_Recent(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	for i, ext := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		order := testOrder(ext, testLine("A1", 1))
		order.ReceivedAt = time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Save(ctx, order))
	}

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "ORD-3", recent[0].ExternalID, "newest first")
	assert.Equal(t, "ORD-2", recent[1].ExternalID)
}
