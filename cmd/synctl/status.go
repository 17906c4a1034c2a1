package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

var eventsLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler, job history, and rate limiter status",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := http.NewRequest(http.MethodGet, serverURL+"/api/v1/sync/status", nil)
		if err != nil {
			return err
		}
		return doRequest(req)
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent sync events from the replay buffer",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := serverURL + "/api/v1/sync/events?limit=" + strconv.Itoa(eventsLimit)
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		return doRequest(req)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check service and platform connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range []string{"/api/v1/health", "/api/v1/health/platforms"} {
			req, err := http.NewRequest(http.MethodGet, serverURL+path, nil)
			if err != nil {
				return err
			}
			if err := doRequest(req); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "Maximum number of events to return")
	rootCmd.AddCommand(statusCmd, eventsCmd, healthCmd)
}
