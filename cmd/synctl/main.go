// Command synctl is the operator CLI for the sync service. It talks to a
// running server over its HTTP API, and can run schema migrations directly
// against the database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "synctl",
	Short: "Operator CLI for the cross-platform sync service",
	Long: `synctl drives a running sync service: trigger reconciliation passes,
inspect scheduler and rate limiter status, replay recent sync events, and
simulate signed webhook deliveries against a local instance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000",
		"Base URL of the sync service")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
