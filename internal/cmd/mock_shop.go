package cmd

import (
	"fmt"
	"time"

	"github.com/matthieukhl/storepulse/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mockOrders int

var mockShopCmd = &cobra.Command{
	Use:   "mock-shop",
	Short: "Serve a fake shop API for local dry runs",
	Long: `Start an in-memory shop admin API on mock.addr with generated orders and
the sample locations. Point shop.base_url at it, for example

  STOREPULSE_SHOP_BASE_URL=http://localhost:8089/admin/api/2025-10

and run any other command with --dry-run. mock.page_size keeps pages small
so pagination is exercised; mock.throttle answers the first N hits of
every page with 429.`,
	RunE: runMockShop,
}

func init() {
	rootCmd.AddCommand(mockShopCmd)

	mockShopCmd.Flags().IntVar(&mockOrders, "orders", 400, "Number of generated orders")
}

func runMockShop(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 Mock shop starting...")

	cfg, logger, err := bootstrap("mock-shop")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data := server.SampleFixtures(time.Now().UTC(), mockOrders)
	srv := server.NewServer(data, server.Options{
		AccessToken: cfg.Shop.AccessToken,
		PageSize:    cfg.Mock.PageSize,
		Throttle:    cfg.Mock.Throttle,
	})
	logger.Info("mock shop ready",
		zap.Int("orders", len(data.Orders)),
		zap.Int("page_size", cfg.Mock.PageSize),
		zap.Int("throttle", cfg.Mock.Throttle),
		zap.Bool("token_required", cfg.Shop.AccessToken != ""),
	)

	fmt.Printf("🌐 Starting mock shop on %s...\n", cfg.Mock.Addr)
	if err := srv.Start(cfg.Mock.Addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
