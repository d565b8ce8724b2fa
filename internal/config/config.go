package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// devJWTSecret signs tokens when ENV=development and JWT_SECRET is unset.
const devJWTSecret = "medroute-development-secret"

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	LockTTL        time.Duration `mapstructure:"LOCK_TTL"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	StaticDir      string        `mapstructure:"STATIC_DIR"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	KafkaBrokers   []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic     string        `mapstructure:"KAFKA_TOPIC"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("LOCK_TTL", "5s")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("STATIC_DIR", "public")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("KAFKA_TOPIC", "appointment-events")

	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"REDIS_URL", "LOCK_TTL", "JWT_SECRET", "AUTH_ISSUER", "AUTH_AUDIENCE",
		"CORS_ORIGINS", "STATIC_DIR", "REQUEST_TIMEOUT", "KAFKA_BROKERS", "KAFKA_TOPIC",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.IsDev() {
		log.Println("WARNING: JWT_SECRET is not set, using the built-in development secret.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// splitList normalises comma separated env values. Viper hands back a single
// element slice for "a,b" when the value comes from the environment.
func splitList(parsed []string, raw string) []string {
	if len(parsed) > 1 {
		return parsed
	}
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// RedisEnabled reports whether allocation locks should go through Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// KafkaEnabled reports whether appointment events are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret must be provided explicitly.
func (c *Config) Validate() error {
	if !c.IsDev() && (c.JWTSecret == "" || c.JWTSecret == devJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set when ENV=%q", c.Env)
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, got %d", c.DBMinConns)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive, got %s", c.LockTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.KafkaEnabled() && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}
