package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	triggerSKUs     []string
	triggerOrderIDs []string
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Trigger a reconciliation pass",
	Long: `Trigger a reconciliation pass on the running service.

Without flags a full pass over every known sku and open order is queued.
With --sku or --order the pass is restricted to the named entities.

Examples:
  # Full pass
  synctl trigger

  # Partial pass over two skus
  synctl trigger --sku WIDGET-1 --sku WIDGET-2

  # Partial pass over one order
  synctl trigger --order 450789469`,
	RunE: runTrigger,
}

func init() {
	triggerCmd.Flags().StringArrayVar(&triggerSKUs, "sku", nil, "Restrict the pass to this sku (repeatable)")
	triggerCmd.Flags().StringArrayVar(&triggerOrderIDs, "order", nil, "Restrict the pass to this order ID (repeatable)")
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	payload := map[string]any{}
	if len(triggerSKUs) > 0 {
		payload["skus"] = triggerSKUs
	}
	if len(triggerOrderIDs) > 0 {
		payload["order_ids"] = triggerOrderIDs
	}

	var body io.Reader
	if len(payload) > 0 {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/v1/sync/trigger", body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return doRequest(req)
}

// doRequest executes the request and pretty-prints the service's response
// envelope, returning an error on non-2xx statuses.
func doRequest(req *http.Request) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(raw))
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
