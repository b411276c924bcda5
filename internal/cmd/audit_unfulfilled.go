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

var unfulfilledDryRun bool

var auditUnfulfilledCmd = &cobra.Command{
	Use:   "audit-unfulfilled",
	Short: "Alert each location about open unfulfilled orders",
	Long: `For every configured location, list the open orders assigned to it that
are still unfulfilled and were created between audit.unfulfilled_lookback_days
and audit.unfulfilled_min_age_days ago. Each location gets its own message on
its own webhook; locations without a webhook are printed.`,
	RunE: runAuditUnfulfilled,
}

func init() {
	rootCmd.AddCommand(auditUnfulfilledCmd)

	auditUnfulfilledCmd.Flags().BoolVar(&unfulfilledDryRun, "dry-run", false, "Print messages instead of posting them")
}

func runAuditUnfulfilled(cmd *cobra.Command, args []string) error {
	fmt.Println("🔎 Auditing unfulfilled orders...")

	cfg, logger, err := bootstrap("audit-unfulfilled")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(false); err != nil {
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
	window := audit.UnfulfilledWindow(time.Now().UTC(), cfg.Audit.UnfulfilledLookbackDays, cfg.Audit.UnfulfilledMinAgeDays)
	results, err := audit.FindUnfulfilled(ctx, client, targets, window)
	if err != nil {
		return err
	}
	if skipped := len(targets) - len(results); skipped > 0 {
		logger.Warn("configured locations not found in shop", zap.Int("skipped", skipped))
	}

	for _, r := range results {
		fmt.Printf("📍 %s: %d unfulfilled order(s)\n", r.LocationName, len(r.Orders))
		logger.Info("location audited",
			zap.Int64("location_id", r.Target.LocationID),
			zap.String("location", r.LocationName),
			zap.Int("unfulfilled", len(r.Orders)),
		)

		n := notify.New(r.Target.WebhookURL, unfulfilledDryRun, cmd.OutOrStdout(), r.LocationName)
		if deliver(ctx, logger.With(zap.String("location", r.LocationName)), n, r.Message()) {
			fmt.Printf("   ✅ Alert sent for %s\n", r.LocationName)
		}
	}
	return nil
}
