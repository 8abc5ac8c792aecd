package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port              string `mapstructure:"PORT"`
	DatabaseDriver    string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	JWTIssuer         string `mapstructure:"JWT_ISSUER"`
	AccessTTLSeconds  int64  `mapstructure:"ACCESS_TTL_SECONDS"`
	RefreshTTLSeconds int64  `mapstructure:"REFRESH_TTL_SECONDS"`

	MediaStoragePath string `mapstructure:"MEDIA_STORAGE_PATH"`
	MaxVideoBytes    int64  `mapstructure:"MAX_VIDEO_BYTES"`

	MetricsDiskPath      string `mapstructure:"METRICS_DISK_PATH"`
	MetricsSampleSeconds int    `mapstructure:"METRICS_SAMPLE_INTERVAL"`

	CorsOriginsRaw string   `mapstructure:"CORS_ORIGINS"`
	CorsOrigins    []string `mapstructure:"-"`

	LogFile       string `mapstructure:"LOG_FILE"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormatJSON bool   `mapstructure:"LOG_FORMAT_JSON"`
	LogToStdout   bool   `mapstructure:"LOG_TO_STDOUT"`

	AIServiceURL            string `mapstructure:"AI_SERVICE_URL"`
	AIServiceTimeoutSeconds int    `mapstructure:"AI_SERVICE_TIMEOUT_SECONDS"`
	AIRateLimitPerMin       int    `mapstructure:"AI_RATE_LIMIT_PER_MIN"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripePricePremium  string `mapstructure:"STRIPE_PRICE_PREMIUM"`
	StripePriceElite    string `mapstructure:"STRIPE_PRICE_ELITE"`

	AMQPURL        string `mapstructure:"AMQP_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`
	RedisURL       string `mapstructure:"REDIS_URL"`

	EntitlementCacheMB         int `mapstructure:"ENTITLEMENT_CACHE_MB"`
	EntitlementCacheTTLSeconds int `mapstructure:"ENTITLEMENT_CACHE_TTL_SECONDS"`

	FoodSearchURL string `mapstructure:"FOOD_SEARCH_URL"`

	StatsJobSchedule           string `mapstructure:"JOBS_STATS_SCHEDULE"`
	BillingEventsJobSchedule   string `mapstructure:"JOBS_BILLING_EVENTS_SCHEDULE"`
	BillingEventsRetentionDays int    `mapstructure:"BILLING_EVENTS_RETENTION_DAYS"`
}

var defaults = map[string]interface{}{
	"PORT":                          "8080",
	"DATABASE_DRIVER":               "pgx",
	"JWT_ISSUER":                    "fitcoach",
	"ACCESS_TTL_SECONDS":            14400,
	"REFRESH_TTL_SECONDS":           1209600,
	"MEDIA_STORAGE_PATH":            "storage/media",
	"MAX_VIDEO_BYTES":               50 * 1024 * 1024,
	"METRICS_DISK_PATH":             "storage/media",
	"METRICS_SAMPLE_INTERVAL":       5,
	"CORS_ORIGINS":                  "",
	"LOG_FILE":                      "",
	"LOG_LEVEL":                     "info",
	"LOG_FORMAT_JSON":               false,
	"LOG_TO_STDOUT":                 true,
	"AI_SERVICE_URL":                "http://localhost:8000",
	"AI_SERVICE_TIMEOUT_SECONDS":    30,
	"AI_RATE_LIMIT_PER_MIN":         20,
	"STRIPE_SECRET_KEY":             "",
	"STRIPE_WEBHOOK_SECRET":         "",
	"STRIPE_PRICE_PREMIUM":          "",
	"STRIPE_PRICE_ELITE":            "",
	"AMQP_URL":                      "",
	"EVENTS_EXCHANGE":               "fitcoach.events",
	"REDIS_URL":                     "",
	"ENTITLEMENT_CACHE_MB":          8,
	"ENTITLEMENT_CACHE_TTL_SECONDS": 300,
	"FOOD_SEARCH_URL":               "",
	"JOBS_STATS_SCHEDULE":           "15 3 * * *",
	"JOBS_BILLING_EVENTS_SCHEDULE":  "@daily",
	"BILLING_EVENTS_RETENTION_DAYS": 30,
}

var required = []string{"DATABASE_URL", "JWT_SECRET"}

// Load reads configuration from the environment. A .env file, when present,
// is expected to have been loaded by the caller.
func Load() (Config, error) {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
	viper.AutomaticEnv()
	for key := range defaults {
		_ = viper.BindEnv(key)
	}
	for _, key := range required {
		_ = viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	for _, key := range required {
		if strings.TrimSpace(viper.GetString(key)) == "" {
			return Config{}, fmt.Errorf("missing env var: %s", key)
		}
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	if cfg.DatabaseDriver != "pgx" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.MetricsSampleSeconds <= 0 {
		cfg.MetricsSampleSeconds = 5
	}
	cfg.CorsOrigins = parseCSV(cfg.CorsOriginsRaw)
	return cfg, nil
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
