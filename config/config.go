package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	LogPath           string `mapstructure:"LOG_PATH"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	// Bearer token required on lifecycle signal endpoints; empty disables it.
	OpsAPIToken string `mapstructure:"OPS_API_TOKEN"`

	// Mongo holds bookings, offers and the provider directory.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Offer audit archive (gorm).
	AuditDriver string `mapstructure:"AUDIT_DRIVER"`
	AuditDSN    string `mapstructure:"AUDIT_DSN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisEventsDB int    `mapstructure:"REDIS_EVENTS_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Path to the firebase service account used for offer pushes.
	FirebaseCredentials string `mapstructure:"FIREBASE_CREDENTIALS"`

	// Dispatch tuning.
	OfferWindow         time.Duration `mapstructure:"OFFER_WINDOW"`
	DispatchBudget      time.Duration `mapstructure:"DISPATCH_BUDGET"`
	DispatchConcurrency int64         `mapstructure:"DISPATCH_CONCURRENCY"`
	RetryBackoff        time.Duration `mapstructure:"RETRY_BACKOFF"`
	RetryMaxAttempts    int           `mapstructure:"RETRY_MAX_ATTEMPTS"`
	SearchRadiusKm      float64       `mapstructure:"SEARCH_RADIUS_KM"`

	// Ranking weights.
	RankRatingWeight     float64 `mapstructure:"RANK_RATING_WEIGHT"`
	RankDistanceWeight   float64 `mapstructure:"RANK_DISTANCE_WEIGHT"`
	RankCompletionWeight float64 `mapstructure:"RANK_COMPLETION_WEIGHT"`
	RankAcceptanceWeight float64 `mapstructure:"RANK_ACCEPTANCE_WEIGHT"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PATH", "")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("OPS_API_TOKEN", "")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "servicehub")
	viper.SetDefault("AUDIT_DRIVER", "postgres")
	viper.SetDefault("AUDIT_DSN", "host=localhost user=servicehub password=servicehub dbname=servicehub_audit port=5432 sslmode=disable TimeZone=UTC")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_EVENTS_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("FIREBASE_CREDENTIALS", "")
	viper.SetDefault("OFFER_WINDOW", "30s")
	viper.SetDefault("DISPATCH_BUDGET", "5m")
	viper.SetDefault("DISPATCH_CONCURRENCY", 64)
	viper.SetDefault("RETRY_BACKOFF", "1m")
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 6)
	viper.SetDefault("SEARCH_RADIUS_KM", 25.0)
	viper.SetDefault("RANK_RATING_WEIGHT", 0.5)
	viper.SetDefault("RANK_DISTANCE_WEIGHT", 0.3)
	viper.SetDefault("RANK_COMPLETION_WEIGHT", 0.2)
	viper.SetDefault("RANK_ACCEPTANCE_WEIGHT", 0.0)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
