package sync

import (
	"context"
	"sort"
	stdsync "sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeCatalog struct {
	mu           stdsync.Mutex
	items        map[string]syncdomain.CatalogItem
	fulfillments []syncdomain.FulfillmentRequest
	applied      map[string]bool
	fulfillErr   map[string]error
	fetchErr     error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		items:      make(map[string]syncdomain.CatalogItem),
		applied:    make(map[string]bool),
		fulfillErr: make(map[string]error),
	}
}

func (f *fakeCatalog) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformCodeShopify
}

func (f *fakeCatalog) FetchInventory(_ context.Context, skus []string) ([]syncdomain.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []syncdomain.CatalogItem
	if skus == nil {
		for _, item := range f.items {
			out = append(out, item)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
		return out, nil
	}
	for _, sku := range skus {
		if item, ok := f.items[sku]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeCatalog) CreateFulfillment(_ context.Context, req syncdomain.FulfillmentRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fulfillments = append(f.fulfillments, req)
	if err, ok := f.fulfillErr[req.OrderExternalID]; ok && err != nil {
		return err
	}
	if f.applied[req.IdempotencyKey] {
		return nil
	}
	f.applied[req.IdempotencyKey] = true
	for _, line := range req.Lines {
		item := f.items[line.SKU]
		item.Quantity -= line.Quantity
		f.items[line.SKU] = item
	}
	return nil
}

func (f *fakeCatalog) CheckStatus(context.Context) error { return nil }

type fakeMarketplace struct {
	mu            stdsync.Mutex
	listings      map[string]*syncdomain.ListingRef
	orders        []syncdomain.Order
	creates       []string
	pushes        []string
	ends          []string
	createErr     map[string]error
	pushErr       map[string]error
	fetchOrderErr error
}

func newFakeMarketplace() *fakeMarketplace {
	return &fakeMarketplace{
		listings:  make(map[string]*syncdomain.ListingRef),
		createErr: make(map[string]error),
		pushErr:   make(map[string]error),
	}
}

func (f *fakeMarketplace) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformCodeEbay
}

func (f *fakeMarketplace) FetchListing(_ context.Context, sku string) (*syncdomain.ListingRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing, ok := f.listings[sku]
	if !ok {
		return nil, syncdomain.ErrListingNotFound
	}
	copied := *listing
	return &copied, nil
}

func (f *fakeMarketplace) CreateListing(_ context.Context, item syncdomain.CatalogItem) (*syncdomain.ListingRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, item.SKU)
	if err, ok := f.createErr[item.SKU]; ok && err != nil {
		return nil, err
	}
	ref := &syncdomain.ListingRef{
		Platform:       syncdomain.PlatformCodeEbay,
		ExternalID:     "LST-" + item.SKU,
		SKU:            item.SKU,
		ListedQuantity: item.Quantity,
		ListedPrice:    item.Price,
		Status:         syncdomain.ListingStatusActive,
	}
	f.listings[item.SKU] = ref
	copied := *ref
	return &copied, nil
}

func (f *fakeMarketplace) PushInventory(_ context.Context, sku string, quantity int64, price decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, sku)
	if err, ok := f.pushErr[sku]; ok && err != nil {
		return err
	}
	listing, ok := f.listings[sku]
	if !ok {
		return syncdomain.ErrListingNotFound
	}
	listing.ListedQuantity = quantity
	listing.ListedPrice = price
	return nil
}

func (f *fakeMarketplace) EndListing(_ context.Context, sku string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends = append(f.ends, sku)
	listing, ok := f.listings[sku]
	if !ok {
		return syncdomain.ErrListingNotFound
	}
	listing.Status = syncdomain.ListingStatusEnded
	return nil
}

func (f *fakeMarketplace) FetchNewOrders(context.Context, time.Time) ([]syncdomain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchOrderErr != nil {
		return nil, f.fetchOrderErr
	}
	out := make([]syncdomain.Order, len(f.orders))
	copy(out, f.orders)
	return out, nil
}

func (f *fakeMarketplace) CheckStatus(context.Context) error { return nil }

type memListingRepo struct {
	mu   stdsync.Mutex
	refs map[string]syncdomain.ListingRef
}

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{refs: make(map[string]syncdomain.ListingRef)}
}

func listingKey(platform syncdomain.PlatformCode, sku string) string {
	return platform.String() + ":" + sku
}

func (m *memListingRepo) GetBySKU(_ context.Context, platform syncdomain.PlatformCode, sku string) (*syncdomain.ListingRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.refs[listingKey(platform, sku)]
	if !ok {
		return nil, syncdomain.ErrListingNotFound
	}
	copied := ref
	return &copied, nil
}

func (m *memListingRepo) Save(_ context.Context, listing *syncdomain.ListingRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[listingKey(listing.Platform, listing.SKU)] = *listing
	return nil
}

func (m *memListingRepo) ListSKUs(_ context.Context, platform syncdomain.PlatformCode) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, ref := range m.refs {
		if ref.Platform == platform {
			out = append(out, ref.SKU)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memOrderRepo struct {
	mu     stdsync.Mutex
	orders map[string]syncdomain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]syncdomain.Order)}
}

func (m *memOrderRepo) GetByExternalID(_ context.Context, platform syncdomain.PlatformCode, externalID string) (*syncdomain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[platform.String()+":"+externalID]
	if !ok {
		return nil, syncdomain.ErrOrderNotFound
	}
	copied := order
	return &copied, nil
}

func (m *memOrderRepo) Save(_ context.Context, order *syncdomain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.Platform.String()+":"+order.ExternalID] = *order
	return nil
}

func (m *memOrderRepo) ListByStatus(_ context.Context, status syncdomain.OrderStatus) ([]*syncdomain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*syncdomain.Order
	for _, order := range m.orders {
		if order.Status == status {
			copied := order
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return out, nil
}

func (m *memOrderRepo) HasOpenOrderForSKU(_ context.Context, sku string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.Status.IsTerminal() {
			continue
		}
		if order.References(sku) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrderRepo) Recent(_ context.Context, limit int) ([]*syncdomain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*syncdomain.Order
	for _, order := range m.orders {
		copied := order
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type eventCollector struct {
	mu     stdsync.Mutex
	events []syncdomain.SyncEvent
}

func (c *eventCollector) Publish(event syncdomain.SyncEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *eventCollector) ofKind(kind syncdomain.EventKind) []syncdomain.SyncEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []syncdomain.SyncEvent
	for _, event := range c.events {
		if event.Kind == kind {
			out = append(out, event)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	catalog     *fakeCatalog
	marketplace *fakeMarketplace
	listings    *memListingRepo
	orders      *memOrderRepo
	events      *eventCollector
	reconciler  *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog:     newFakeCatalog(),
		marketplace: newFakeMarketplace(),
		listings:    newMemListingRepo(),
		orders:      newMemOrderRepo(),
		events:      &eventCollector{},
	}
	f.reconciler = NewReconciler(
		f.catalog, f.marketplace, f.listings, f.orders, f.events,
		DefaultConfig(), zap.NewNop())
	return f
}

func (f *fixture) seedCatalogItem(sku string, quantity int64, price string, status syncdomain.CatalogStatus) {
	f.catalog.items[sku] = syncdomain.CatalogItem{
		SKU:       sku,
		Title:     "Item " + sku,
		Price:     decimal.RequireFromString(price),
		Quantity:  quantity,
		Status:    status,
		UpdatedAt: time.Now(),
	}
}

// seedListing places a listing both on the fake marketplace and in the local
// mirror, as a completed earlier pass would have left it.
func (f *fixture) seedListing(t *testing.T, sku string, quantity int64, price string) {
	t.Helper()
	ref := &syncdomain.ListingRef{
		Platform:       syncdomain.PlatformCodeEbay,
		ExternalID:     "LST-" + sku,
		SKU:            sku,
		ListedQuantity: quantity,
		ListedPrice:    decimal.RequireFromString(price),
		Status:         syncdomain.ListingStatusActive,
		LastSyncedAt:   time.Now(),
	}
	f.marketplace.listings[sku] = ref
	copied := *ref
	require.NoError(t, f.listings.Save(context.Background(), &copied))
}

func (f *fixture) seedMarketplaceOrder(externalID string, lines ...syncdomain.OrderLine) {
	f.marketplace.orders = append(f.marketplace.orders, syncdomain.Order{
		Platform:   syncdomain.PlatformCodeEbay,
		ExternalID: externalID,
		Status:     syncdomain.OrderStatusNew,
		Lines:      lines,
	})
}

func line(sku string, quantity int64, price string) syncdomain.OrderLine {
	return syncdomain.OrderLine{SKU: sku, Quantity: quantity, UnitPrice: decimal.RequireFromString(price)}
}

// ---------------------------------------------------------------------------
// Inventory Flow
// ---------------------------------------------------------------------------

func TestReconciler_CreatesListingForUnlistedItem(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 10, "9.99", syncdomain.CatalogStatusActive)

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope([]string{"A1"}, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []string{"A1"}, f.marketplace.creates)

	ref, err := f.listings.GetBySKU(context.Background(), syncdomain.PlatformCodeEbay, "A1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.ListingStatusActive, ref.Status)
	assert.Equal(t, int64(10), ref.ListedQuantity)
	assert.True(t, ref.ListedPrice.Equal(decimal.RequireFromString("9.99")))

	updated := f.events.ofKind(syncdomain.EventItemUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, syncdomain.ActionCreateListing, updated[0].Action)
	assert.Equal(t, "A1", updated[0].SKU)
}

func TestReconciler_SecondPassIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 10, "9.99", syncdomain.CatalogStatusActive)
	f.seedCatalogItem("B2", 4, "19.50", syncdomain.CatalogStatusActive)

	first, err := f.reconciler.Reconcile(context.Background(), syncdomain.FullScope())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Applied)

	second, err := f.reconciler.Reconcile(context.Background(), syncdomain.FullScope())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Applied)
	assert.Equal(t, 2, second.Skipped)

	assert.Len(t, f.marketplace.creates, 2)
	assert.Empty(t, f.marketplace.pushes)
}

func TestReconciler_PushesCatalogValuesOnDrift(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 9, "8.49", syncdomain.CatalogStatusActive)
	f.seedListing(t, "A1", 5, "9.99")

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope([]string{"A1"}, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, 0, summary.Conflicts)
	assert.Equal(t, []string{"A1"}, f.marketplace.pushes)

	live := f.marketplace.listings["A1"]
	assert.Equal(t, int64(9), live.ListedQuantity)
	assert.True(t, live.ListedPrice.Equal(decimal.RequireFromString("8.49")))
}

func TestReconciler_UnexplainedQuantityDropIsConflict(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 3, "9.99", syncdomain.CatalogStatusActive)
	f.seedListing(t, "A1", 5, "9.99")

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope([]string{"A1"}, nil))
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Applied)
	assert.Equal(t, 1, summary.Conflicts)
	assert.Empty(t, f.marketplace.pushes, "conflicting listing must be left untouched")

	conflicts := f.events.ofKind(syncdomain.EventConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "A1", conflicts[0].SKU)

	live := f.marketplace.listings["A1"]
	assert.Equal(t, int64(5), live.ListedQuantity)
}

func TestReconciler_QuantityDropExplainedByOpenOrder(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 3, "9.99", syncdomain.CatalogStatusActive)
	f.seedListing(t, "A1", 5, "9.99")

	// An order that stays open this pass (fulfillment deferred) accounts for
	// the catalog drop, so the push proceeds instead of a conflict.
	open := syncdomain.NewOrder(syncdomain.PlatformCodeEbay, "ORD-OPEN", []syncdomain.OrderLine{line("A1", 2, "9.99")})
	require.NoError(t, f.orders.Save(context.Background(), open))
	f.catalog.fulfillErr["ORD-OPEN"] = syncdomain.Transient(
		syncdomain.PlatformCodeShopify, "create_fulfillment", syncdomain.ErrPlatformUnavailable)

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope([]string{"A1"}, nil))
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Conflicts)
	assert.Contains(t, f.marketplace.pushes, "A1")
	assert.Equal(t, int64(3), f.marketplace.listings["A1"].ListedQuantity)
}

func TestReconciler_EndsListingForDiscontinuedItem(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 0, "9.99", syncdomain.CatalogStatusDiscontinued)
	f.seedListing(t, "A1", 5, "9.99")

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope([]string{"A1"}, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, []string{"A1"}, f.marketplace.ends)

	ref, err := f.listings.GetBySKU(context.Background(), syncdomain.PlatformCodeEbay, "A1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.ListingStatusEnded, ref.Status)

	// Discontinued with no live listing is a no-op on subsequent passes.
	again, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope([]string{"A1"}, nil))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Applied)
	assert.Len(t, f.marketplace.ends, 1)
}

func TestReconciler_SkipsZeroQuantityUnlistedItem(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 0, "9.99", syncdomain.CatalogStatusActive)

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope([]string{"A1"}, nil))
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Applied)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, f.marketplace.creates)
}

func TestReconciler_UnknownScopedSKUFails(t *testing.T) {
	f := newFixture(t)

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope([]string{"GHOST"}, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	failed := f.events.ofKind(syncdomain.EventActionFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "GHOST", failed[0].SKU)
}

func TestReconciler_PartialFailureDoesNotAbortPass(t *testing.T) {
	f := newFixture(t)
	skus := []string{"S01", "S02", "S03", "S04", "S05", "S06", "S07", "S08", "S09", "S10"}
	for _, sku := range skus {
		f.seedCatalogItem(sku, 7, "5.00", syncdomain.CatalogStatusActive)
		f.seedListing(t, sku, 3, "5.00")
	}
	for _, sku := range []string{"S02", "S05", "S09"} {
		f.marketplace.pushErr[sku] = syncdomain.Permanent(
			syncdomain.PlatformCodeEbay, "push_inventory", syncdomain.ErrInvalidResponse)
	}

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.FullScope())
	require.NoError(t, err)

	assert.Equal(t, 7, summary.Applied)
	assert.Equal(t, 3, summary.Failed)
	assert.Len(t, f.events.ofKind(syncdomain.EventActionFailed), 3)
	assert.Len(t, f.events.ofKind(syncdomain.EventCompleted), 1)
}

// ---------------------------------------------------------------------------
// Order Flow
// ---------------------------------------------------------------------------

func TestReconciler_FulfillsNewMarketplaceOrder(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 5, "9.99", syncdomain.CatalogStatusActive)
	f.seedListing(t, "A1", 5, "9.99")
	f.seedMarketplaceOrder("ORD-1", line("A1", 2, "9.99"))

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.FullScope())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Failed)

	require.Len(t, f.catalog.fulfillments, 1)
	assert.Equal(t, "ORD-1", f.catalog.fulfillments[0].IdempotencyKey)
	assert.Equal(t, "ORD-1", f.catalog.fulfillments[0].OrderExternalID)

	stored, err := f.orders.GetByExternalID(context.Background(), syncdomain.PlatformCodeEbay, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.OrderStatusFulfilled, stored.Status)

	// Fulfillment decremented authoritative stock to 3; the drop is
	// explained by this pass's order, so the listing follows without conflict.
	assert.Equal(t, 0, summary.Conflicts)
	assert.Equal(t, int64(3), f.marketplace.listings["A1"].ListedQuantity)
}

func TestReconciler_DuplicateOrderFulfilledExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 5, "9.99", syncdomain.CatalogStatusActive)
	f.seedListing(t, "A1", 5, "9.99")
	f.seedMarketplaceOrder("ORD-1", line("A1", 2, "9.99"))

	_, err := f.reconciler.Reconcile(context.Background(), syncdomain.FullScope())
	require.NoError(t, err)
	_, err = f.reconciler.Reconcile(context.Background(), syncdomain.FullScope())
	require.NoError(t, err)

	assert.Len(t, f.catalog.fulfillments, 1, "terminal order must not be resubmitted")
	assert.Equal(t, int64(3), f.catalog.items["A1"].Quantity, "stock decremented exactly once")
}

func TestReconciler_InsufficientListedStockFailsOrder(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 5, "9.99", syncdomain.CatalogStatusActive)
	f.seedListing(t, "A1", 1, "9.99")
	f.seedMarketplaceOrder("ORD-1", line("A1", 3, "9.99"))

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope(nil, []string{"ORD-1"}))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, summary.Failed, 1)

	assert.Empty(t, f.catalog.fulfillments, "invalid order must never reach fulfillment")

	stored, err := f.orders.GetByExternalID(context.Background(), syncdomain.PlatformCodeEbay, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.OrderStatusFailed, stored.Status)
	assert.Contains(t, stored.FailureReason, "insufficient stock")
}

func TestReconciler_OrderForUnknownSKUFails(t *testing.T) {
	f := newFixture(t)
	f.seedMarketplaceOrder("ORD-1", line("GHOST", 1, "9.99"))

	_, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope(nil, []string{"ORD-1"}))
	require.NoError(t, err)

	stored, err := f.orders.GetByExternalID(context.Background(), syncdomain.PlatformCodeEbay, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.OrderStatusFailed, stored.Status)
	assert.Contains(t, stored.FailureReason, "not present in catalog")
	assert.Empty(t, f.catalog.fulfillments)
}

func TestReconciler_TransientFulfillmentFailureRetriedNextPass(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 5, "9.99", syncdomain.CatalogStatusActive)
	f.seedListing(t, "A1", 5, "9.99")
	f.seedMarketplaceOrder("ORD-1", line("A1", 2, "9.99"))
	f.catalog.fulfillErr["ORD-1"] = syncdomain.Transient(
		syncdomain.PlatformCodeShopify, "create_fulfillment", syncdomain.ErrPlatformUnavailable)

	first, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope(nil, []string{"ORD-1"}))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, first.Failed, 1)

	stored, err := f.orders.GetByExternalID(context.Background(), syncdomain.PlatformCodeEbay, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.OrderStatusFulfilling, stored.Status,
		"transient failure keeps the order retryable")

	delete(f.catalog.fulfillErr, "ORD-1")
	_, err = f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope(nil, []string{"ORD-1"}))
	require.NoError(t, err)

	stored, err = f.orders.GetByExternalID(context.Background(), syncdomain.PlatformCodeEbay, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.OrderStatusFulfilled, stored.Status)
	assert.Len(t, f.catalog.fulfillments, 2, "same idempotency key resubmitted once")
	assert.Equal(t, "ORD-1", f.catalog.fulfillments[1].IdempotencyKey)
}

func TestReconciler_PermanentFulfillmentFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 5, "9.99", syncdomain.CatalogStatusActive)
	f.seedListing(t, "A1", 5, "9.99")
	f.seedMarketplaceOrder("ORD-1", line("A1", 2, "9.99"))
	f.catalog.fulfillErr["ORD-1"] = syncdomain.Permanent(
		syncdomain.PlatformCodeShopify, "create_fulfillment", syncdomain.ErrInvalidResponse)

	_, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope(nil, []string{"ORD-1"}))
	require.NoError(t, err)

	stored, err := f.orders.GetByExternalID(context.Background(), syncdomain.PlatformCodeEbay, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.OrderStatusFailed, stored.Status)

	// Terminal: later passes must not resubmit.
	_, err = f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope(nil, []string{"ORD-1"}))
	require.NoError(t, err)
	assert.Len(t, f.catalog.fulfillments, 1)
}

// ---------------------------------------------------------------------------
// Pass Mechanics
// ---------------------------------------------------------------------------

func TestReconciler_EmptyScopeRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.reconciler.Reconcile(context.Background(), syncdomain.PartialScope(nil, nil))
	assert.ErrorIs(t, err, syncdomain.ErrEmptyScope)
}

func TestReconciler_CancelledContextAbortsPass(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 10, "9.99", syncdomain.CatalogStatusActive)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.reconciler.Reconcile(ctx, syncdomain.FullScope())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconciler_EmitsStartedAndCompleted(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 10, "9.99", syncdomain.CatalogStatusActive)

	_, err := f.reconciler.Reconcile(context.Background(), syncdomain.FullScope())
	require.NoError(t, err)

	assert.Len(t, f.events.ofKind(syncdomain.EventStarted), 1)
	completed := f.events.ofKind(syncdomain.EventCompleted)
	require.Len(t, completed, 1)
	assert.Contains(t, completed[0].Detail, "applied=1")
}

func TestReconciler_OrderFetchFailureStillReconcilesInventory(t *testing.T) {
	f := newFixture(t)
	f.seedCatalogItem("A1", 10, "9.99", syncdomain.CatalogStatusActive)
	f.marketplace.fetchOrderErr = syncdomain.Transient(
		syncdomain.PlatformCodeEbay, "fetch_new_orders", syncdomain.ErrPlatformUnavailable)

	summary, err := f.reconciler.Reconcile(context.Background(), syncdomain.FullScope())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Applied, "inventory flow proceeds despite order fetch failure")
	assert.Equal(t, []string{"A1"}, f.marketplace.creates)
}

func TestReconciler_ConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{OrderLookback: time.Hour}.Validate())
	assert.Error(t, Config{OrderLookback: 0}.Validate())
}
