package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissing is returned by Validate when required settings are absent
var ErrMissing = errors.New("missing required configuration")

type Config struct {
	Shop      ShopConfig       `mapstructure:"shop"`
	Report    ReportConfig     `mapstructure:"report"`
	Audit     AuditConfig      `mapstructure:"audit"`
	Locations []LocationConfig `mapstructure:"locations"`
	Log       LogConfig        `mapstructure:"log"`
	Mock      MockConfig       `mapstructure:"mock"`
}

type ShopConfig struct {
	Name        string        `mapstructure:"name"`
	APIVersion  string        `mapstructure:"api_version"`
	AccessToken string        `mapstructure:"access_token"`
	BaseURL     string        `mapstructure:"base_url"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PageDelay   time.Duration `mapstructure:"page_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ReportConfig struct {
	WebhookURL       string `mapstructure:"webhook_url"`
	RefundWindowDays int    `mapstructure:"refund_window_days"`
	LTVWindowDays    int    `mapstructure:"ltv_window_days"`
	IncludeCancelled bool   `mapstructure:"include_cancelled"`
	IncludeTest      bool   `mapstructure:"include_test"`
	MaxRows          int    `mapstructure:"max_rows"`
}

type AuditConfig struct {
	UnfulfilledLookbackDays int `mapstructure:"unfulfilled_lookback_days"`
	UnfulfilledMinAgeDays   int `mapstructure:"unfulfilled_min_age_days"`
	DelayedLookbackDays     int `mapstructure:"delayed_lookback_days"`
}

// LocationConfig maps a fulfillment location to its alert channel.
type LocationConfig struct {
	ID                   int64  `mapstructure:"id"`
	Name                 string `mapstructure:"name"`
	WebhookURL           string `mapstructure:"webhook_url"`
	WebhookEnv           string `mapstructure:"webhook_env"`
	FulfillmentDelayDays int    `mapstructure:"fulfillment_delay_days"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MockConfig struct {
	Addr     string `mapstructure:"addr"`
	PageSize int    `mapstructure:"page_size"`
	Throttle int    `mapstructure:"throttle"`
}

// Webhook returns the location's webhook URL, falling back to the
// environment variable named by WebhookEnv.
func (l LocationConfig) Webhook() string {
	if l.WebhookURL != "" {
		return l.WebhookURL
	}
	if l.WebhookEnv != "" {
		return os.Getenv(l.WebhookEnv)
	}
	return ""
}

// APIBaseURL returns the versioned admin API root for the shop
func (s ShopConfig) APIBaseURL() string {
	if s.BaseURL != "" {
		return strings.TrimRight(s.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", s.Name, s.APIVersion)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("shop.name", "")
	v.SetDefault("shop.api_version", "2025-10")
	v.SetDefault("shop.access_token", "")
	v.SetDefault("shop.base_url", "")
	v.SetDefault("shop.max_retries", 6)
	v.SetDefault("shop.page_delay", 350*time.Millisecond)
	v.SetDefault("shop.timeout", 30*time.Second)

	v.SetDefault("report.webhook_url", "")
	v.SetDefault("report.refund_window_days", 90)
	v.SetDefault("report.ltv_window_days", 365)
	v.SetDefault("report.include_cancelled", false)
	v.SetDefault("report.include_test", false)
	v.SetDefault("report.max_rows", 15)

	v.SetDefault("audit.unfulfilled_lookback_days", 31)
	v.SetDefault("audit.unfulfilled_min_age_days", 2)
	v.SetDefault("audit.delayed_lookback_days", 21)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("mock.addr", ":8089")
	v.SetDefault("mock.page_size", 50)
	v.SetDefault("mock.throttle", 0)
}

// The scheduled job historically exported these names; keep honouring them.
var legacyEnv = map[string][]string{
	"shop.access_token":         {"STOREPULSE_SHOP_ACCESS_TOKEN", "SHOPIFY_ACCESS_TOKEN"},
	"report.webhook_url":        {"STOREPULSE_REPORT_WEBHOOK_URL", "SLACK_WEBHOOK_REPORT"},
	"report.refund_window_days": {"STOREPULSE_REPORT_REFUND_WINDOW_DAYS", "REFUND_WINDOW_DAYS"},
	"report.ltv_window_days":    {"STOREPULSE_REPORT_LTV_WINDOW_DAYS", "LTV_WINDOW_DAYS"},
}

// LoadConfig loads configuration from config.yaml, a .env file and environment
// variables. An explicit path must exist; otherwise a missing file is fine.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./deploy/")
		v.AddConfigPath("./")
		v.AddConfigPath("$HOME/.storepulse/")
		v.AddConfigPath("/etc/storepulse/")
	}

	// Enable environment variable override with STOREPULSE_ prefix
	v.SetEnvPrefix("STOREPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate checks the settings a shop-facing command needs before any
// network call is made.
func (c *Config) Validate(requireWebhook bool) error {
	var missing []string
	if c.Shop.AccessToken == "" {
		missing = append(missing, "shop.access_token")
	}
	if c.Shop.Name == "" && c.Shop.BaseURL == "" {
		missing = append(missing, "shop.name")
	}
	if requireWebhook && c.Report.WebhookURL == "" {
		missing = append(missing, "report.webhook_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	if c.Report.RefundWindowDays <= 0 || c.Report.LTVWindowDays <= 0 {
		return fmt.Errorf("window lengths must be positive (refund=%d, ltv=%d)",
			c.Report.RefundWindowDays, c.Report.LTVWindowDays)
	}
	if c.Shop.MaxRetries < 1 {
		return fmt.Errorf("shop.max_retries must be at least 1, got %d", c.Shop.MaxRetries)
	}
	return nil
}
