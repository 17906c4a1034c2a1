package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/cache"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

type fakeTrigger struct {
	scopes []syncdomain.Scope
	err    error
}

func (f *fakeTrigger) Enqueue(scope syncdomain.Scope) error {
	if f.err != nil {
		return f.err
	}
	f.scopes = append(f.scopes, scope)
	return nil
}

func newTestService(t *testing.T) (*IngestService, *fakeTrigger, func()) {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore()
	trigger := &fakeTrigger{}
	service := NewIngestService(store, trigger, DefaultConfig(), zap.NewNop())
	return service, trigger, func() { _ = store.Close() }
}

func TestIngestService_AcceptsShopifyOrderCreate(t *testing.T) {
	service, trigger, cleanup := newTestService(t)
	defer cleanup()

	result, err := service.Ingest(context.Background(), Notification{
		Platform: syncdomain.PlatformCodeShopify,
		EventID:  "delivery-1",
		Topic:    ShopifyTopicOrdersCreate,
		Payload:  []byte(`{"id": 450789469, "created_at": "2025-01-01T00:00:00Z"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, DispositionAccepted, result.Disposition)
	assert.True(t, result.Scope.ContainsOrder("450789469"))

	require.Len(t, trigger.scopes, 1)
	assert.Equal(t, []string{"450789469"}, trigger.scopes[0].OrderIDs())
}

func TestIngestService_DuplicateDeliveryNotRequeued(t *testing.T) {
	service, trigger, cleanup := newTestService(t)
	defer cleanup()

	notification := Notification{
		Platform: syncdomain.PlatformCodeShopify,
		EventID:  "delivery-1",
		Topic:    ShopifyTopicOrdersCreate,
		Payload:  []byte(`{"id": 1001}`),
	}

	first, err := service.Ingest(context.Background(), notification)
	require.NoError(t, err)
	assert.Equal(t, DispositionAccepted, first.Disposition)

	second, err := service.Ingest(context.Background(), notification)
	require.NoError(t, err)
	assert.Equal(t, DispositionDuplicate, second.Disposition)

	assert.Len(t, trigger.scopes, 1, "duplicate must not queue a second pass")
}

func TestIngestService_DedupFallsBackToPayloadIdentity(t *testing.T) {
	service, trigger, cleanup := newTestService(t)
	defer cleanup()

	// No delivery ID header: two deliveries of the same order still collapse.
	notification := Notification{
		Platform: syncdomain.PlatformCodeShopify,
		Topic:    ShopifyTopicOrdersCreate,
		Payload:  []byte(`{"id": 2002}`),
	}

	first, err := service.Ingest(context.Background(), notification)
	require.NoError(t, err)
	assert.Equal(t, DispositionAccepted, first.Disposition)

	second, err := service.Ingest(context.Background(), notification)
	require.NoError(t, err)
	assert.Equal(t, DispositionDuplicate, second.Disposition)
	assert.Len(t, trigger.scopes, 1)
}

func TestIngestService_IgnoresUnhandledShopifyTopic(t *testing.T) {
	service, trigger, cleanup := newTestService(t)
	defer cleanup()

	result, err := service.Ingest(context.Background(), Notification{
		Platform: syncdomain.PlatformCodeShopify,
		EventID:  "delivery-1",
		Topic:    "customers/create",
		Payload:  []byte(`{"id": 1}`),
	})
	require.NoError(t, err)

	assert.Equal(t, DispositionIgnored, result.Disposition)
	assert.Empty(t, trigger.scopes)
}

func TestIngestService_RejectsMalformedPayload(t *testing.T) {
	service, trigger, cleanup := newTestService(t)
	defer cleanup()

	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{not json`},
		{"missing order id", `{"total_price": "9.99"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.Ingest(context.Background(), Notification{
				Platform: syncdomain.PlatformCodeShopify,
				EventID:  "delivery-" + tt.name,
				Topic:    ShopifyTopicOrdersCreate,
				Payload:  []byte(tt.payload),
			})
			require.NoError(t, err)
			assert.Equal(t, DispositionRejected, result.Disposition)
		})
	}
	assert.Empty(t, trigger.scopes)
}

func TestIngestService_RejectionDoesNotConsumeEventID(t *testing.T) {
	service, trigger, cleanup := newTestService(t)
	defer cleanup()

	rejected, err := service.Ingest(context.Background(), Notification{
		Platform: syncdomain.PlatformCodeShopify,
		EventID:  "delivery-1",
		Topic:    ShopifyTopicOrdersCreate,
		Payload:  []byte(`{broken`),
	})
	require.NoError(t, err)
	assert.Equal(t, DispositionRejected, rejected.Disposition)

	// Corrected redelivery under the same delivery ID still goes through.
	accepted, err := service.Ingest(context.Background(), Notification{
		Platform: syncdomain.PlatformCodeShopify,
		EventID:  "delivery-1",
		Topic:    ShopifyTopicOrdersCreate,
		Payload:  []byte(`{"id": 3003}`),
	})
	require.NoError(t, err)
	assert.Equal(t, DispositionAccepted, accepted.Disposition)
	assert.Len(t, trigger.scopes, 1)
}

func TestIngestService_ShopifyProductUpdateScopesSKUs(t *testing.T) {
	service, trigger, cleanup := newTestService(t)
	defer cleanup()

	result, err := service.Ingest(context.Background(), Notification{
		Platform: syncdomain.PlatformCodeShopify,
		EventID:  "delivery-1",
		Topic:    ShopifyTopicProductsUpdate,
		Payload:  []byte(`{"variants": [{"sku": "A1"}, {"sku": "B2"}]}`),
	})
	require.NoError(t, err)

	assert.Equal(t, DispositionAccepted, result.Disposition)
	require.Len(t, trigger.scopes, 1)
	assert.Equal(t, []string{"A1", "B2"}, trigger.scopes[0].SKUs())
}

func TestIngestService_EbayOrderNotification(t *testing.T) {
	service, trigger, cleanup := newTestService(t)
	defer cleanup()

	result, err := service.Ingest(context.Background(), Notification{
		Platform: syncdomain.PlatformCodeEbay,
		Payload:  []byte(`{"notificationId": "ebay-n-1", "eventType": "ORDER_CREATED", "orderId": "EB-77"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, DispositionAccepted, result.Disposition)
	require.Len(t, trigger.scopes, 1)
	assert.Equal(t, []string{"EB-77"}, trigger.scopes[0].OrderIDs())
}

func TestIngestService_EbayInventoryNotification(t *testing.T) {
	service, trigger, cleanup := newTestService(t)
	defer cleanup()

	result, err := service.Ingest(context.Background(), Notification{
		Platform: syncdomain.PlatformCodeEbay,
		Payload:  []byte(`{"notificationId": "ebay-n-2", "eventType": "INVENTORY_ITEM_CHANGED", "sku": "A1"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, DispositionAccepted, result.Disposition)
	require.Len(t, trigger.scopes, 1)
	assert.Equal(t, []string{"A1"}, trigger.scopes[0].SKUs())
}

func TestIngestService_EbayMissingNotificationIDRejected(t *testing.T) {
	service, _, cleanup := newTestService(t)
	defer cleanup()

	result, err := service.Ingest(context.Background(), Notification{
		Platform: syncdomain.PlatformCodeEbay,
		Payload:  []byte(`{"eventType": "ORDER_CREATED", "orderId": "EB-77"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, DispositionRejected, result.Disposition)
}

func TestIngestService_InsightsPlatformRejected(t *testing.T) {
	service, _, cleanup := newTestService(t)
	defer cleanup()

	result, err := service.Ingest(context.Background(), Notification{
		Platform: syncdomain.PlatformCodeMeta,
		Payload:  []byte(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, DispositionRejected, result.Disposition)
}

func TestIngestService_ConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{DedupTTL: 0}.Validate())
	assert.Error(t, Config{DedupTTL: -time.Hour}.Validate())
}

func TestVerifyShopifySignature(t *testing.T) {
	secret := "shpss_test_secret"
	body := []byte(`{"id": 1001}`)
	signature := ComputeShopifySignature(secret, body)

	assert.True(t, VerifyShopifySignature(secret, body, signature))
	assert.False(t, VerifyShopifySignature(secret, []byte(`{"id": 1002}`), signature))
	assert.False(t, VerifyShopifySignature("wrong-secret", body, signature))
	assert.False(t, VerifyShopifySignature(secret, body, ""))
	assert.False(t, VerifyShopifySignature("", body, signature))
}
