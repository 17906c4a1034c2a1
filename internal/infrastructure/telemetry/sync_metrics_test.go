package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/event"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.NoError(t, tp.ForceFlush(context.Background()))
}

func TestSyncMetrics_ConsumesBusEvents(t *testing.T) {
	m, err := NewSyncMetrics(zap.NewNop())
	require.NoError(t, err)

	bus := event.NewBus(16, zap.NewNop())
	defer bus.Close()

	m.Observe(bus)

	bus.Publish(syncdomain.NewSyncEvent(syncdomain.EventStarted, "pass started"))
	bus.Publish(syncdomain.NewSyncEvent(syncdomain.EventItemUpdated, "pushed"))
	bus.Publish(syncdomain.NewSyncEvent(syncdomain.EventCompleted, "pass done"))

	// Counters go to the global (no-op by default) meter; the assertion here
	// is that the consumer drains without blocking the bus and Close joins.
	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("metrics consumer did not shut down")
	}
}
