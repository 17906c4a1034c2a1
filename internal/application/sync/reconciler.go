// Package sync implements the reconciliation engine that keeps catalog,
// marketplace and order state consistent across platforms. The Catalog
// platform is authoritative for price and quantity; the engine computes the
// divergence between the catalog and each marketplace listing and applies the
// minimal set of actions to converge them, tolerating partial failure.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds reconciliation engine configuration
type Config struct {
	// OrderLookback bounds how far back FetchNewOrders looks on each pass
	OrderLookback time.Duration
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		OrderLookback: 24 * time.Hour,
	}
}

// Validate checks the configuration for correctness
func (c Config) Validate() error {
	if c.OrderLookback <= 0 {
		return errors.New("sync: order lookback must be positive")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Summary reports the outcome of one reconciliation pass
type Summary struct {
	// Applied is the number of successfully applied actions
	Applied int `json:"applied"`
	// Skipped is the number of entities already consistent
	Skipped int `json:"skipped"`
	// Failed is the number of permanently failed actions
	Failed int `json:"failed"`
	// Conflicts is the number of drift conflicts surfaced for manual review
	Conflicts int `json:"conflicts"`
	// StartedAt is when the pass began
	StartedAt time.Time `json:"started_at"`
	// Duration is how long the pass took
	Duration time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// Reconciler
// ---------------------------------------------------------------------------

// Reconciler drives reconciliation passes over a scope of skus and orders.
// Passes over overlapping scopes serialize per entity via a keyed mutex, so a
// scheduled full pass and a webhook-triggered partial pass never interleave
// writes on the same sku or order.
type Reconciler struct {
	catalog     syncdomain.CatalogPlatform
	marketplace syncdomain.MarketplacePlatform
	listings    syncdomain.ListingRepository
	orders      syncdomain.OrderRepository
	publisher   syncdomain.EventPublisher
	locks       *keyedMutex
	config      Config
	logger      *zap.Logger
}

// NewReconciler creates a reconciliation engine
func NewReconciler(
	catalog syncdomain.CatalogPlatform,
	marketplace syncdomain.MarketplacePlatform,
	listings syncdomain.ListingRepository,
	orders syncdomain.OrderRepository,
	publisher syncdomain.EventPublisher,
	config Config,
	logger *zap.Logger,
) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		catalog:     catalog,
		marketplace: marketplace,
		listings:    listings,
		orders:      orders,
		publisher:   publisher,
		locks:       newKeyedMutex(),
		config:      config,
		logger:      logger,
	}
}

// Reconcile runs one pass over the given scope. The order flow runs before
// the inventory flow so that fulfillment-driven stock changes are reflected
// in the same pass and never misread as drift. A permanent failure on one
// entity is recorded and the pass continues; the returned error is non-nil
// only when the context is cancelled mid-pass.
func (r *Reconciler) Reconcile(ctx context.Context, scope syncdomain.Scope) (Summary, error) {
	summary := Summary{StartedAt: time.Now()}
	if scope.IsEmpty() {
		return summary, syncdomain.ErrEmptyScope
	}

	r.publish(syncdomain.NewSyncEvent(syncdomain.EventStarted, scopeDetail(scope)))
	r.logger.Info("reconciliation pass started",
		zap.Bool("full", scope.IsFull()),
		zap.Strings("skus", scope.SKUs()),
		zap.Strings("order_ids", scope.OrderIDs()))

	// Skus whose stock change is explained by an order handled this pass.
	// The drift conflict check treats them as accounted for.
	passSKUs := make(map[string]struct{})

	if err := r.reconcileOrders(ctx, scope, passSKUs, &summary); err != nil {
		return r.finish(summary, err)
	}
	if err := r.reconcileInventory(ctx, scope, passSKUs, &summary); err != nil {
		return r.finish(summary, err)
	}
	return r.finish(summary, nil)
}

func (r *Reconciler) finish(summary Summary, err error) (Summary, error) {
	summary.Duration = time.Since(summary.StartedAt)

	detail := fmt.Sprintf("applied=%d skipped=%d failed=%d conflicts=%d",
		summary.Applied, summary.Skipped, summary.Failed, summary.Conflicts)
	if err != nil {
		detail += " aborted=" + err.Error()
	}
	r.publish(syncdomain.NewSyncEvent(syncdomain.EventCompleted, detail))

	r.logger.Info("reconciliation pass completed",
		zap.Int("applied", summary.Applied),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("conflicts", summary.Conflicts),
		zap.Duration("duration", summary.Duration),
		zap.Error(err))
	return summary, err
}

// ---------------------------------------------------------------------------
// Order Flow
// ---------------------------------------------------------------------------

func (r *Reconciler) reconcileOrders(ctx context.Context, scope syncdomain.Scope, passSKUs map[string]struct{}, summary *Summary) error {
	since := time.Now().Add(-r.config.OrderLookback)
	fetched, err := r.marketplace.FetchNewOrders(ctx, since)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("failed to fetch new marketplace orders", zap.Error(err))
		r.eventFailed(syncdomain.ActionPullOrder, "", "", err)
		summary.Failed++
		// Locally known orders can still be driven forward.
		fetched = nil
	}

	// Re-drive orders stuck before fulfillment from an earlier interrupted
	// pass. Deduped against the fetched set by external ID.
	seen := make(map[string]struct{}, len(fetched))
	for i := range fetched {
		seen[fetched[i].ExternalID] = struct{}{}
	}
	for _, status := range []syncdomain.OrderStatus{syncdomain.OrderStatusNew, syncdomain.OrderStatusFulfilling} {
		stored, err := r.orders.ListByStatus(ctx, status)
		if err != nil {
			r.logger.Warn("failed to list stored orders", zap.String("status", status.String()), zap.Error(err))
			continue
		}
		for _, o := range stored {
			if _, dup := seen[o.ExternalID]; dup {
				continue
			}
			seen[o.ExternalID] = struct{}{}
			fetched = append(fetched, *o)
		}
	}

	sort.Slice(fetched, func(i, j int) bool { return fetched[i].ExternalID < fetched[j].ExternalID })

	for i := range fetched {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		order := fetched[i]
		if !r.orderInScope(scope, &order) {
			continue
		}
		r.processOrder(ctx, &order, passSKUs, summary)
	}
	return ctx.Err()
}

func (r *Reconciler) orderInScope(scope syncdomain.Scope, order *syncdomain.Order) bool {
	if scope.ContainsOrder(order.ExternalID) {
		return true
	}
	for _, line := range order.Lines {
		if scope.ContainsSKU(line.SKU) {
			return true
		}
	}
	return false
}

// processOrder drives one marketplace order toward a terminal state. The
// local record is the idempotency anchor: a terminal order is never
// reprocessed, and the fulfillment request carries the external ID as
// idempotency key so a resubmission after a crash is a no-op upstream.
func (r *Reconciler) processOrder(ctx context.Context, incoming *syncdomain.Order, passSKUs map[string]struct{}, summary *Summary) {
	r.locks.Lock("order:" + incoming.ExternalID)
	defer r.locks.Unlock("order:" + incoming.ExternalID)

	order, err := r.orders.GetByExternalID(ctx, incoming.Platform, incoming.ExternalID)
	switch {
	case err == nil:
		if order.Status.IsTerminal() {
			summary.Skipped++
			return
		}
	case errors.Is(err, syncdomain.ErrOrderNotFound):
		order = syncdomain.NewOrder(incoming.Platform, incoming.ExternalID, incoming.Lines)
		if err := r.orders.Save(ctx, order); err != nil {
			r.logger.Error("failed to record pulled order",
				zap.String("external_id", order.ExternalID), zap.Error(err))
			r.eventFailed(syncdomain.ActionPullOrder, "", order.ExternalID, err)
			summary.Failed++
			return
		}
		r.eventApplied(syncdomain.ActionPullOrder, "", order.ExternalID,
			fmt.Sprintf("order %s pulled with %d lines", order.ExternalID, len(order.Lines)))
		summary.Applied++
	default:
		r.logger.Error("failed to load order", zap.String("external_id", incoming.ExternalID), zap.Error(err))
		r.eventFailed(syncdomain.ActionPullOrder, "", incoming.ExternalID, err)
		summary.Failed++
		return
	}

	if order.Status == syncdomain.OrderStatusNew {
		if reason := r.validateOrder(ctx, order); reason != "" {
			r.failOrder(ctx, order, reason, summary)
			return
		}
		if err := order.MarkFulfilling(); err != nil {
			r.eventFailed(syncdomain.ActionCreateFulfillment, "", order.ExternalID, err)
			summary.Failed++
			return
		}
		if err := r.orders.Save(ctx, order); err != nil {
			r.logger.Error("failed to persist fulfilling order",
				zap.String("external_id", order.ExternalID), zap.Error(err))
			r.eventFailed(syncdomain.ActionCreateFulfillment, "", order.ExternalID, err)
			summary.Failed++
			return
		}
	}

	req := syncdomain.FulfillmentRequest{
		IdempotencyKey:  order.ExternalID,
		OrderExternalID: order.ExternalID,
		Lines:           order.Lines,
	}
	if err := r.catalog.CreateFulfillment(ctx, req); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.eventFailed(syncdomain.ActionCreateFulfillment, "", order.ExternalID, err)
		summary.Failed++
		if syncdomain.Classify(err) == syncdomain.ErrorClassTransient {
			// Left in Fulfilling; a later pass resubmits under the same
			// idempotency key.
			r.logger.Warn("fulfillment deferred after transient failure",
				zap.String("external_id", order.ExternalID), zap.Error(err))
			return
		}
		r.failOrderTerminal(ctx, order, err.Error())
		return
	}

	if err := order.MarkFulfilled(); err != nil {
		r.eventFailed(syncdomain.ActionCreateFulfillment, "", order.ExternalID, err)
		summary.Failed++
		return
	}
	if err := r.orders.Save(ctx, order); err != nil {
		r.logger.Error("failed to persist fulfilled order",
			zap.String("external_id", order.ExternalID), zap.Error(err))
		r.eventFailed(syncdomain.ActionCreateFulfillment, "", order.ExternalID, err)
		summary.Failed++
		return
	}
	for _, line := range order.Lines {
		passSKUs[line.SKU] = struct{}{}
	}
	r.eventApplied(syncdomain.ActionCreateFulfillment, "", order.ExternalID,
		fmt.Sprintf("order %s fulfilled", order.ExternalID))
	summary.Applied++
}

// validateOrder returns a failure reason, or empty when the order is
// fulfillable: every line sku must be listed and the listed quantity must
// cover the ordered quantity.
func (r *Reconciler) validateOrder(ctx context.Context, order *syncdomain.Order) string {
	if len(order.Lines) == 0 {
		return "order has no lines"
	}
	for _, line := range order.Lines {
		if line.Quantity <= 0 {
			return fmt.Sprintf("sku %s: %v", line.SKU, syncdomain.ErrNegativeQuantity)
		}
		listing, err := r.listings.GetBySKU(ctx, r.marketplace.PlatformCode(), line.SKU)
		if err != nil {
			if errors.Is(err, syncdomain.ErrListingNotFound) {
				return fmt.Sprintf("sku %s: %v", line.SKU, syncdomain.ErrUnknownSKU)
			}
			return fmt.Sprintf("sku %s: %v", line.SKU, err)
		}
		if listing.ListedQuantity < order.TotalQuantity(line.SKU) {
			return fmt.Sprintf("sku %s: %v (listed %d, ordered %d)",
				line.SKU, syncdomain.ErrInsufficientStock, listing.ListedQuantity, order.TotalQuantity(line.SKU))
		}
	}
	return ""
}

func (r *Reconciler) failOrder(ctx context.Context, order *syncdomain.Order, reason string, summary *Summary) {
	r.failOrderTerminal(ctx, order, reason)
	r.eventFailed(syncdomain.ActionCreateFulfillment, "", order.ExternalID, errors.New(reason))
	summary.Failed++
}

func (r *Reconciler) failOrderTerminal(ctx context.Context, order *syncdomain.Order, reason string) {
	if err := order.MarkFailed(reason); err != nil {
		r.logger.Error("failed to mark order failed",
			zap.String("external_id", order.ExternalID), zap.Error(err))
		return
	}
	if err := r.orders.Save(ctx, order); err != nil {
		r.logger.Error("failed to persist failed order",
			zap.String("external_id", order.ExternalID), zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Inventory Flow
// ---------------------------------------------------------------------------

func (r *Reconciler) reconcileInventory(ctx context.Context, scope syncdomain.Scope, passSKUs map[string]struct{}, summary *Summary) error {
	var requested []string
	if !scope.IsFull() {
		set := make(map[string]struct{})
		for _, sku := range scope.SKUs() {
			set[sku] = struct{}{}
		}
		for sku := range passSKUs {
			set[sku] = struct{}{}
		}
		if len(set) == 0 {
			return nil
		}
		requested = make([]string, 0, len(set))
		for sku := range set {
			requested = append(requested, sku)
		}
		sort.Strings(requested)
	}

	items, err := r.catalog.FetchInventory(ctx, requested)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("failed to fetch catalog inventory", zap.Error(err))
		r.eventFailed(syncdomain.ActionPushInventory, "", "", err)
		summary.Failed++
		return nil
	}

	bySKU := make(map[string]*syncdomain.CatalogItem, len(items))
	for i := range items {
		bySKU[items[i].SKU] = &items[i]
	}

	// Explicitly scoped skus absent from the catalog are unknown: the
	// divergence cannot be resolved, so each is surfaced as a failed action.
	for _, sku := range requested {
		if _, ok := bySKU[sku]; !ok {
			r.eventFailed(syncdomain.ActionPushInventory, sku, "", syncdomain.ErrUnknownSKU)
			summary.Failed++
		}
	}

	skus := make([]string, 0, len(bySKU))
	for sku := range bySKU {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	for _, sku := range skus {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.reconcileItem(ctx, bySKU[sku], passSKUs, summary)
	}
	return ctx.Err()
}

// reconcileItem converges one sku's marketplace listing onto the
// authoritative catalog values. Catalog values always win, with one
// exception: an unexplained quantity drop below the listed quantity is
// surfaced as a conflict and the listing is left untouched.
func (r *Reconciler) reconcileItem(ctx context.Context, item *syncdomain.CatalogItem, passSKUs map[string]struct{}, summary *Summary) {
	r.locks.Lock("sku:" + item.SKU)
	defer r.locks.Unlock("sku:" + item.SKU)

	live, err := r.marketplace.FetchListing(ctx, item.SKU)
	if err != nil && !errors.Is(err, syncdomain.ErrListingNotFound) {
		if ctx.Err() != nil {
			return
		}
		r.eventFailed(syncdomain.ActionPushInventory, item.SKU, "", err)
		summary.Failed++
		return
	}

	switch {
	case live == nil || live.Status == syncdomain.ListingStatusEnded:
		if !item.IsActive() || item.Quantity <= 0 {
			summary.Skipped++
			return
		}
		r.createListing(ctx, item, summary)

	case !item.IsActive():
		r.endListing(ctx, item, live, summary)

	case live.InSyncWith(item):
		live.LastSyncedAt = time.Now()
		r.saveListing(ctx, live)
		summary.Skipped++

	default:
		if item.Quantity < live.ListedQuantity && !r.dropExplained(ctx, item.SKU, passSKUs) {
			r.logger.Warn("unexplained inventory drift, surfacing conflict",
				zap.String("sku", item.SKU),
				zap.Int64("catalog_quantity", item.Quantity),
				zap.Int64("listed_quantity", live.ListedQuantity))
			event := syncdomain.NewSyncEvent(syncdomain.EventConflict,
				fmt.Sprintf("catalog quantity %d below listed quantity %d with no open order",
					item.Quantity, live.ListedQuantity))
			event.Platform = r.marketplace.PlatformCode()
			event.SKU = item.SKU
			r.publish(event)
			summary.Conflicts++
			return
		}
		r.pushInventory(ctx, item, live, summary)
	}
}

// dropExplained reports whether a catalog quantity drop for sku is accounted
// for by an order: one fulfilled during this pass or one still open locally.
func (r *Reconciler) dropExplained(ctx context.Context, sku string, passSKUs map[string]struct{}) bool {
	if _, ok := passSKUs[sku]; ok {
		return true
	}
	open, err := r.orders.HasOpenOrderForSKU(ctx, sku)
	if err != nil {
		r.logger.Warn("failed to check open orders for sku", zap.String("sku", sku), zap.Error(err))
		return false
	}
	return open
}

func (r *Reconciler) createListing(ctx context.Context, item *syncdomain.CatalogItem, summary *Summary) {
	ref, err := r.marketplace.CreateListing(ctx, *item)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.eventFailed(syncdomain.ActionCreateListing, item.SKU, "", err)
		summary.Failed++
		return
	}
	ref.LastSyncedAt = time.Now()
	r.saveListing(ctx, ref)
	r.eventApplied(syncdomain.ActionCreateListing, item.SKU, "",
		fmt.Sprintf("listed %s quantity %d price %s", item.SKU, item.Quantity, item.Price.String()))
	summary.Applied++
}

func (r *Reconciler) endListing(ctx context.Context, item *syncdomain.CatalogItem, live *syncdomain.ListingRef, summary *Summary) {
	if err := r.marketplace.EndListing(ctx, item.SKU); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.eventFailed(syncdomain.ActionEndListing, item.SKU, "", err)
		r.markListingError(ctx, live)
		summary.Failed++
		return
	}
	live.Status = syncdomain.ListingStatusEnded
	live.LastSyncedAt = time.Now()
	r.saveListing(ctx, live)
	r.eventApplied(syncdomain.ActionEndListing, item.SKU, "",
		fmt.Sprintf("ended listing for discontinued %s", item.SKU))
	summary.Applied++
}

func (r *Reconciler) pushInventory(ctx context.Context, item *syncdomain.CatalogItem, live *syncdomain.ListingRef, summary *Summary) {
	if err := r.marketplace.PushInventory(ctx, item.SKU, item.Quantity, item.Price); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.eventFailed(syncdomain.ActionPushInventory, item.SKU, "", err)
		r.markListingError(ctx, live)
		summary.Failed++
		return
	}
	live.ListedQuantity = item.Quantity
	live.ListedPrice = item.Price
	live.Status = syncdomain.ListingStatusActive
	live.LastSyncedAt = time.Now()
	r.saveListing(ctx, live)
	r.eventApplied(syncdomain.ActionPushInventory, item.SKU, "",
		fmt.Sprintf("pushed %s quantity %d price %s", item.SKU, item.Quantity, item.Price.String()))
	summary.Applied++
}

func (r *Reconciler) saveListing(ctx context.Context, ref *syncdomain.ListingRef) {
	if err := r.listings.Save(ctx, ref); err != nil {
		r.logger.Error("failed to persist listing",
			zap.String("sku", ref.SKU), zap.Error(err))
	}
}

func (r *Reconciler) markListingError(ctx context.Context, live *syncdomain.ListingRef) {
	live.Status = syncdomain.ListingStatusError
	r.saveListing(ctx, live)
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

func (r *Reconciler) publish(event syncdomain.SyncEvent) {
	if r.publisher != nil {
		r.publisher.Publish(event)
	}
}

func (r *Reconciler) eventApplied(action syncdomain.ActionKind, sku, orderID, detail string) {
	event := syncdomain.NewSyncEvent(syncdomain.EventItemUpdated, detail)
	event.Platform = r.marketplace.PlatformCode()
	event.SKU = sku
	event.OrderID = orderID
	event.Action = action
	r.publish(event)
}

func (r *Reconciler) eventFailed(action syncdomain.ActionKind, sku, orderID string, cause error) {
	event := syncdomain.NewSyncEvent(syncdomain.EventActionFailed, cause.Error())
	event.Platform = r.marketplace.PlatformCode()
	event.SKU = sku
	event.OrderID = orderID
	event.Action = action
	r.publish(event)
}

func scopeDetail(scope syncdomain.Scope) string {
	if scope.IsFull() {
		return "full scope"
	}
	return fmt.Sprintf("partial scope: %d skus, %d orders", len(scope.SKUs()), len(scope.OrderIDs()))
}
