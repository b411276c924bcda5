package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/matthieukhl/storepulse/internal/audit"
	"github.com/matthieukhl/storepulse/internal/config"
	"github.com/matthieukhl/storepulse/internal/logging"
	"github.com/matthieukhl/storepulse/internal/shop"
	"github.com/matthieukhl/storepulse/internal/types"
	"go.uber.org/zap"
)

// bootstrap loads configuration and builds a logger tagged with a fresh run id.
func bootstrap(command string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(
		zap.String("command", command),
		zap.String("run_id", uuid.NewString()),
	)
	return cfg, logger, nil
}

func newShopClient(cfg *config.Config, logger *zap.Logger) (*shop.Client, error) {
	logger.Info("connecting to shop",
		zap.String("base_url", cfg.Shop.APIBaseURL()),
		zap.String("access_token", logging.MaskSecret(cfg.Shop.AccessToken)),
		zap.Int("max_retries", cfg.Shop.MaxRetries),
		zap.Duration("page_delay", cfg.Shop.PageDelay),
	)

	client, err := shop.NewClientFromConfig(&cfg.Shop, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create shop client: %w", err)
	}
	return client, nil
}

func auditTargets(cfg *config.Config) []audit.Target {
	targets := make([]audit.Target, 0, len(cfg.Locations))
	for _, l := range cfg.Locations {
		targets = append(targets, audit.Target{
			LocationID: l.ID,
			Name:       l.Name,
			WebhookURL: l.Webhook(),
			DelayDays:  l.FulfillmentDelayDays,
		})
	}
	return targets
}

// deliver sends text. A failed delivery is logged and never fails the run.
func deliver(ctx context.Context, logger *zap.Logger, n types.Notifier, text string) bool {
	if err := n.Notify(ctx, text); err != nil {
		logger.Error("message delivery failed", zap.Error(err))
		return false
	}
	return true
}
