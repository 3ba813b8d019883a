package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Log      LogConfig
	Auth     AuthConfig
	Payments PaymentsConfig
	Maps     MapsConfig
	Engine   EngineConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string // json, text
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// PaymentsConfig selects and configures the card payment processor.
type PaymentsConfig struct {
	Provider          string // mock, stripe, razorpay
	Currency          string
	StripeSecretKey   string
	RazorpayKeyID     string
	RazorpayKeySecret string
}

// MapsConfig holds the routing distance provider settings.
type MapsConfig struct {
	GoogleAPIKey string
}

// EngineConfig holds ride engine tunables.
type EngineConfig struct {
	StaleAfter        time.Duration
	HeartbeatTTL      time.Duration
	FeedRadiusKm      float64
	FeedLimit         int
	SettlementLockTTL time.Duration
	UpstreamTimeout   time.Duration
	NearbyNotifyKm    float64
}

// Load loads configuration from environment variables and an optional .env file.
func Load() *Config {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", "10s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "5s")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "drivio")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("NEW_RELIC_APP_NAME", "drivio-ride-engine")
	v.SetDefault("NEW_RELIC_LICENSE_KEY", "")
	v.SetDefault("NEW_RELIC_ENABLED", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("PAYMENT_PROVIDER", "mock")
	v.SetDefault("PAYMENT_CURRENCY", "INR")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("RAZORPAY_KEY_ID", "")
	v.SetDefault("RAZORPAY_KEY_SECRET", "")

	v.SetDefault("GOOGLE_MAPS_API_KEY", "")

	v.SetDefault("RIDE_STALE_AFTER", "10m")
	v.SetDefault("DRIVER_HEARTBEAT_TTL", "60s")
	v.SetDefault("FEED_RADIUS_KM", 10.0)
	v.SetDefault("FEED_LIMIT", 50)
	v.SetDefault("SETTLEMENT_LOCK_TTL", "15s")
	v.SetDefault("UPSTREAM_TIMEOUT", "5s")
	v.SetDefault("NEARBY_NOTIFY_KM", 5.0)

	// The .env file is optional; plain environment variables are enough.
	_ = v.ReadInConfig()

	return &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			AllowedOrigins:  splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			DBName:      v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		NewRelic: NewRelicConfig{
			AppName:    v.GetString("NEW_RELIC_APP_NAME"),
			LicenseKey: v.GetString("NEW_RELIC_LICENSE_KEY"),
			Enabled:    v.GetBool("NEW_RELIC_ENABLED"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Issuer:    v.GetString("JWT_ISSUER"),
		},
		Payments: PaymentsConfig{
			Provider:          strings.ToLower(v.GetString("PAYMENT_PROVIDER")),
			Currency:          v.GetString("PAYMENT_CURRENCY"),
			StripeSecretKey:   v.GetString("STRIPE_SECRET_KEY"),
			RazorpayKeyID:     v.GetString("RAZORPAY_KEY_ID"),
			RazorpayKeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
		},
		Maps: MapsConfig{
			GoogleAPIKey: v.GetString("GOOGLE_MAPS_API_KEY"),
		},
		Engine: EngineConfig{
			StaleAfter:        v.GetDuration("RIDE_STALE_AFTER"),
			HeartbeatTTL:      v.GetDuration("DRIVER_HEARTBEAT_TTL"),
			FeedRadiusKm:      v.GetFloat64("FEED_RADIUS_KM"),
			FeedLimit:         v.GetInt("FEED_LIMIT"),
			SettlementLockTTL: v.GetDuration("SETTLEMENT_LOCK_TTL"),
			UpstreamTimeout:   v.GetDuration("UPSTREAM_TIMEOUT"),
			NearbyNotifyKm:    v.GetFloat64("NEARBY_NOTIFY_KM"),
		},
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
