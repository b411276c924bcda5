package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/matthieukhl/storepulse/internal/audit"
	"github.com/matthieukhl/storepulse/internal/notify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var delayedDryRun bool

var auditDelayedCmd = &cobra.Command{
	Use:   "audit-delayed",
	Short: "Report fulfilled orders that were never delivered",
	Long: `Scan fulfilled orders from the last audit.delayed_lookback_days days and
list, per configured location, every fulfillment that is still not delivered
after the location's fulfillment_delay_days. The summary goes to the report
webhook.`,
	RunE: runAuditDelayed,
}

func init() {
	rootCmd.AddCommand(auditDelayedCmd)

	auditDelayedCmd.Flags().BoolVar(&delayedDryRun, "dry-run", false, "Print the message instead of posting it")
}

func runAuditDelayed(cmd *cobra.Command, args []string) error {
	fmt.Println("🚚 Auditing undelivered fulfillments...")

	cfg, logger, err := bootstrap("audit-delayed")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(!delayedDryRun); err != nil {
		return err
	}
	targets := auditTargets(cfg)
	if len(targets) == 0 {
		return errors.New("no locations configured")
	}

	client, err := newShopClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	result, err := audit.FindDelayed(ctx, client, targets, time.Now().UTC(), cfg.Audit.DelayedLookbackDays)
	if err != nil {
		return err
	}
	logger.Info("delivery audit complete", zap.Int("delayed", result.Delayed()))
	fmt.Printf("📦 %d delayed fulfillment(s) across %d location(s)\n", result.Delayed(), len(targets))

	n := notify.New(cfg.Report.WebhookURL, delayedDryRun, cmd.OutOrStdout(), "")
	if deliver(ctx, logger, n, result.Message()) {
		fmt.Println("✅ Delivery audit sent")
	}
	return nil
}
