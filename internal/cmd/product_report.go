package cmd

import (
	"fmt"
	"time"

	"github.com/matthieukhl/storepulse/internal/analyze"
	"github.com/matthieukhl/storepulse/internal/models"
	"github.com/matthieukhl/storepulse/internal/notify"
	"github.com/matthieukhl/storepulse/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reportDryRun     bool
	reportRefundDays int
	reportLTVDays    int
	reportMaxRows    int
)

var productReportCmd = &cobra.Command{
	Use:   "product-report",
	Short: "Post the refund rate and LTV per product report",
	Long: `Fetch every order in the refund window and in the LTV window, then post
two tables to the report webhook:

1) refund rate per product, in units, over the refund window
2) average lifetime net spend of each product's buyers, where buyers come
   from the refund window and spend from the LTV window

Only paid, partially refunded and refunded orders count. Cancelled and
test orders are excluded unless configured otherwise.`,
	RunE: runProductReport,
}

func init() {
	rootCmd.AddCommand(productReportCmd)

	productReportCmd.Flags().BoolVar(&reportDryRun, "dry-run", false, "Print the message instead of posting it")
	productReportCmd.Flags().IntVar(&reportRefundDays, "refund-days", 0, "Refund window in days (overrides report.refund_window_days)")
	productReportCmd.Flags().IntVar(&reportLTVDays, "ltv-days", 0, "LTV window in days (overrides report.ltv_window_days)")
	productReportCmd.Flags().IntVar(&reportMaxRows, "max-rows", 0, "Rows per table (overrides report.max_rows)")
}

func runProductReport(cmd *cobra.Command, args []string) error {
	fmt.Println("📊 Building product report...")

	cfg, logger, err := bootstrap("product-report")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if reportRefundDays > 0 {
		cfg.Report.RefundWindowDays = reportRefundDays
	}
	if reportLTVDays > 0 {
		cfg.Report.LTVWindowDays = reportLTVDays
	}
	if reportMaxRows > 0 {
		cfg.Report.MaxRows = reportMaxRows
	}
	if err := cfg.Validate(!reportDryRun); err != nil {
		return err
	}

	client, err := newShopClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	now := time.Now().UTC()
	refundWindow := models.TrailingWindow(now, cfg.Report.RefundWindowDays)
	ltvWindow := models.TrailingWindow(now, cfg.Report.LTVWindowDays)

	fmt.Printf("📥 Fetching orders for refund window (%s)...\n", refundWindow.Label())
	refundOrders, err := client.FetchOrders(ctx, refundWindow, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch refund window orders: %w", err)
	}

	fmt.Printf("📥 Fetching orders for LTV window (%s)...\n", ltvWindow.Label())
	ltvOrders, err := client.FetchOrders(ctx, ltvWindow, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch LTV window orders: %w", err)
	}

	policy := analyze.Policy{
		IncludeCancelled: cfg.Report.IncludeCancelled,
		IncludeTest:      cfg.Report.IncludeTest,
	}
	r := report.Build(refundWindow, ltvWindow, refundOrders, ltvOrders, policy)
	logger.Info("report built",
		zap.Int("refund_orders", len(refundOrders)),
		zap.Int("ltv_orders", len(ltvOrders)),
		zap.Int("refund_rows", len(r.RefundRows)),
		zap.Int("ltv_rows", len(r.LTVRows)),
	)

	n := notify.New(cfg.Report.WebhookURL, reportDryRun, cmd.OutOrStdout(), "")
	if deliver(ctx, logger, n, r.Message(cfg.Report.MaxRows)) {
		fmt.Println("✅ Product report sent")
	} else {
		fmt.Println("❌ Product report was not delivered")
	}
	return nil
}
