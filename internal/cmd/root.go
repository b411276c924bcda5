package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "storepulse",
	Short: "storepulse - Shopify order analytics and fulfillment alerts",
	Long: `storepulse harvests orders from the Shopify Admin API, aggregates
per-product refund rates and customer lifetime value, and posts the
results to Slack.

It also audits fulfillment locations for unfulfilled orders and parcels
that were shipped but never delivered. Every run re-fetches its window;
nothing is stored between runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: search ./deploy, ., $HOME/.storepulse, /etc/storepulse)")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
