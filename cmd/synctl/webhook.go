package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shoppyshops/shoppyshops.shop/internal/application/webhook"
)

var (
	webhookTopic   string
	webhookSecret  string
	webhookFile    string
	webhookEventID string
)

var simulateWebhookCmd = &cobra.Command{
	Use:   "simulate-webhook [payload]",
	Short: "Send a signed Shopify webhook delivery to a local instance",
	Long: `Send a webhook delivery with a valid HMAC signature, the way Shopify
would. Useful for exercising the ingestion path without a real shop.

The payload is taken from the argument, or from --file. The secret must
match the one the server verifies against.

Examples:
  # Simulate an order creation
  synctl simulate-webhook --secret whsec-dev '{"id": 450789469}'

  # Simulate an inventory change from a file
  synctl simulate-webhook --secret whsec-dev --topic inventory_levels/update --file payload.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimulateWebhook,
}

func init() {
	simulateWebhookCmd.Flags().StringVar(&webhookTopic, "topic", webhook.ShopifyTopicOrdersCreate, "Shopify webhook topic")
	simulateWebhookCmd.Flags().StringVar(&webhookSecret, "secret", "", "Webhook signing secret (required)")
	simulateWebhookCmd.Flags().StringVar(&webhookFile, "file", "", "Read the payload from this file")
	simulateWebhookCmd.Flags().StringVar(&webhookEventID, "event-id", "", "Delivery event ID (random when empty)")
	_ = simulateWebhookCmd.MarkFlagRequired("secret")
	rootCmd.AddCommand(simulateWebhookCmd)
}

func runSimulateWebhook(cmd *cobra.Command, args []string) error {
	var payload []byte
	switch {
	case webhookFile != "":
		raw, err := os.ReadFile(webhookFile)
		if err != nil {
			return fmt.Errorf("reading payload file: %w", err)
		}
		payload = raw
	case len(args) == 1:
		payload = []byte(args[0])
	default:
		return fmt.Errorf("payload required: pass it as an argument or via --file")
	}

	eventID := webhookEventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/v1/webhooks/shopify", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Topic", webhookTopic)
	req.Header.Set("X-Shopify-Webhook-Id", eventID)
	req.Header.Set("X-Shopify-Hmac-Sha256", webhook.ComputeShopifySignature(webhookSecret, payload))

	fmt.Printf("Delivering %s (event %s)\n", webhookTopic, eventID)
	return doRequest(req)
}
