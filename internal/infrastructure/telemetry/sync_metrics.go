package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/event"
)

// SyncMetrics records reconciliation outcomes as OpenTelemetry counters.
// It observes the status bus rather than instrumenting the engine, so the
// engine stays free of metric plumbing.
type SyncMetrics struct {
	passesStarted   metric.Int64Counter
	passesCompleted metric.Int64Counter
	itemsUpdated    metric.Int64Counter
	actionsFailed   metric.Int64Counter
	conflicts       metric.Int64Counter

	sub    *event.Subscription
	logger *zap.Logger
	done   chan struct{}
}

// NewSyncMetrics creates the counters on the global meter provider.
func NewSyncMetrics(logger *zap.Logger) (*SyncMetrics, error) {
	meter := otel.GetMeterProvider().Meter("shoppyshops/sync")

	m := &SyncMetrics{
		logger: logger,
		done:   make(chan struct{}),
	}

	var err error
	if m.passesStarted, err = meter.Int64Counter("sync.passes.started",
		metric.WithDescription("Reconciliation passes started")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.passesCompleted, err = meter.Int64Counter("sync.passes.completed",
		metric.WithDescription("Reconciliation passes completed")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.itemsUpdated, err = meter.Int64Counter("sync.items.updated",
		metric.WithDescription("Listings or orders updated by reconciliation")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.actionsFailed, err = meter.Int64Counter("sync.actions.failed",
		metric.WithDescription("Platform actions that failed")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.conflicts, err = meter.Int64Counter("sync.conflicts",
		metric.WithDescription("Unexplained drift held back for review")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	return m, nil
}

// Observe attaches to the bus and consumes events until Close.
func (m *SyncMetrics) Observe(bus *event.Bus) {
	m.sub = bus.Subscribe()
	go m.consume()
}

func (m *SyncMetrics) consume() {
	defer close(m.done)
	for env := range m.sub.Events() {
		m.record(env.Event)
	}
}

func (m *SyncMetrics) record(e syncdomain.SyncEvent) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("platform", string(e.Platform)),
		attribute.String("action", string(e.Action)),
	)

	switch e.Kind {
	case syncdomain.EventStarted:
		m.passesStarted.Add(ctx, 1)
	case syncdomain.EventCompleted:
		m.passesCompleted.Add(ctx, 1)
	case syncdomain.EventItemUpdated:
		m.itemsUpdated.Add(ctx, 1, attrs)
	case syncdomain.EventActionFailed:
		m.actionsFailed.Add(ctx, 1, attrs)
	case syncdomain.EventConflict:
		m.conflicts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("platform", string(e.Platform)),
		))
	}
}

// Close detaches from the bus and waits for the consumer to drain.
func (m *SyncMetrics) Close() {
	if m.sub == nil {
		return
	}
	m.sub.Close()
	<-m.done
}
