package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                 string        `mapstructure:"ENV"`
	Port                string        `mapstructure:"PORT"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	AdminKey            string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed         string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	RiskThreshold       time.Duration `mapstructure:"RISK_THRESHOLD"`
	ResponseDue         time.Duration `mapstructure:"RESPONSE_DUE"`
	SnoozeDefaultHours  int           `mapstructure:"SNOOZE_DEFAULT_HOURS"`
	IntentKeywords      string        `mapstructure:"INTENT_KEYWORDS"`
	BackfillConcurrency int           `mapstructure:"BACKFILL_CONCURRENCY"`
	SweepConcurrency    int           `mapstructure:"SWEEP_CONCURRENCY"`
	SweepInterval       time.Duration `mapstructure:"SWEEP_INTERVAL"`
	DeliveryURL         string        `mapstructure:"DELIVERY_URL"`
	DeliveryTimeout     time.Duration `mapstructure:"DELIVERY_TIMEOUT"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("RISK_THRESHOLD", "2h")
	v.SetDefault("RESPONSE_DUE", "4h")
	v.SetDefault("SNOOZE_DEFAULT_HOURS", 4)
	v.SetDefault("INTENT_KEYWORDS", strings.Join(DefaultIntentKeywords, ","))
	v.SetDefault("BACKFILL_CONCURRENCY", 8)
	v.SetDefault("SWEEP_CONCURRENCY", 8)
	v.SetDefault("SWEEP_INTERVAL", "0")
	v.SetDefault("DELIVERY_TIMEOUT", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultIntentKeywords signal purchase readiness in free-text notes.
// The marketplace serves Hebrew-speaking customers, so both languages appear.
var DefaultIntentKeywords = []string{
	"budget", "urgent", "ready", "this week", "serious", "signed", "approval", "starting",
	"תקציב", "דחוף", "מוכן", "השבוע", "רציני", "חתמנו", "אישור", "מתחילים",
}

// IntentKeywordList splits the configured comma-separated keyword set,
// falling back to the defaults when the value is empty.
func (c Config) IntentKeywordList() []string {
	raw := strings.TrimSpace(c.IntentKeywords)
	if raw == "" {
		return DefaultIntentKeywords
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.TrimSpace(p); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
