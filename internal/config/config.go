package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout int      `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string   `mapstructure:"BODY_LIMIT"`
	BulkBodyLimit  string   `mapstructure:"BULK_BODY_LIMIT"`

	RiskBatchSize    int `mapstructure:"RISK_BATCH_SIZE"`
	RiskAdmitHigh    int `mapstructure:"RISK_ADMIT_HIGH"`
	RiskAdmitMedium  int `mapstructure:"RISK_ADMIT_MEDIUM"`
	RiskSweepHigh    int `mapstructure:"RISK_SWEEP_HIGH"`
	RiskSweepMedium  int `mapstructure:"RISK_SWEEP_MEDIUM"`
	RiskImportHigh   int `mapstructure:"RISK_IMPORT_HIGH"`
	RiskImportMedium int `mapstructure:"RISK_IMPORT_MEDIUM"`

	SeedCount int `mapstructure:"SEED_COUNT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", 30)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("BULK_BODY_LIMIT", "16M")
	v.SetDefault("RISK_BATCH_SIZE", 100)
	v.SetDefault("RISK_ADMIT_HIGH", 50)
	v.SetDefault("RISK_ADMIT_MEDIUM", 30)
	v.SetDefault("RISK_SWEEP_HIGH", 50)
	v.SetDefault("RISK_SWEEP_MEDIUM", 25)
	v.SetDefault("RISK_IMPORT_HIGH", 60)
	v.SetDefault("RISK_IMPORT_MEDIUM", 40)
	v.SetDefault("SEED_COUNT", 500)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("BODY_LIMIT")
	v.BindEnv("BULK_BODY_LIMIT")
	v.BindEnv("RISK_BATCH_SIZE")
	v.BindEnv("RISK_ADMIT_HIGH")
	v.BindEnv("RISK_ADMIT_MEDIUM")
	v.BindEnv("RISK_SWEEP_HIGH")
	v.BindEnv("RISK_SWEEP_MEDIUM")
	v.BindEnv("RISK_IMPORT_HIGH")
	v.BindEnv("RISK_IMPORT_MEDIUM")
	v.BindEnv("SEED_COUNT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Each risk
// threshold pair must keep the High cutoff at or above the Medium
// cutoff and both within the score range, otherwise classification
// would silently invert.
func (c *Config) Validate() error {
	pairs := []struct {
		name         string
		high, medium int
	}{
		{"RISK_ADMIT", c.RiskAdmitHigh, c.RiskAdmitMedium},
		{"RISK_SWEEP", c.RiskSweepHigh, c.RiskSweepMedium},
		{"RISK_IMPORT", c.RiskImportHigh, c.RiskImportMedium},
	}
	for _, p := range pairs {
		if p.high < 0 || p.high > 100 || p.medium < 0 || p.medium > 100 {
			return fmt.Errorf("%s thresholds must be within [0,100], got high=%d medium=%d", p.name, p.high, p.medium)
		}
		if p.high < p.medium {
			return fmt.Errorf("%s_HIGH (%d) must be >= %s_MEDIUM (%d)", p.name, p.high, p.name, p.medium)
		}
	}

	if c.RiskBatchSize < 0 {
		return fmt.Errorf("RISK_BATCH_SIZE must not be negative, got %d", c.RiskBatchSize)
	}

	return nil
}
