package config

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBDriver   string // sqlite or postgres
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBLogLevel string

	// Auth
	AuthEnabled      bool
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Integrity
	StartupAutoFix      bool
	ReconcileRatePerMin int
	ReportCacheTTL      time.Duration
}

var (
	appConfig *Config
	mu        sync.Mutex
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "finledger.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "finledger")
	v.SetDefault("DB_PASSWORD", "finledger")
	v.SetDefault("DB_NAME", "finledger")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_LOG_LEVEL", "warn")

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "fallback-secret-key-for-dev-only")
	v.SetDefault("JWT_EXPIRES_IN", "720h")

	v.SetDefault("STARTUP_AUTO_FIX", true)
	v.SetDefault("RECONCILE_RATE_PER_MIN", 6)
	v.SetDefault("REPORT_CACHE_TTL", "10m")
}

// Load loads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	config := fromViper(v)

	mu.Lock()
	appConfig = config
	mu.Unlock()
	return config, nil
}

func fromViper(v *viper.Viper) *Config {
	config := &Config{
		Port: v.GetString("PORT"),
		Env:  v.GetString("ENV"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBPath:     v.GetString("DB_PATH"),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),
		DBLogLevel: strings.ToLower(v.GetString("DB_LOG_LEVEL")),

		AuthEnabled: v.GetBool("AUTH_ENABLED"),
		JWTSecret:   v.GetString("JWT_SECRET"),

		StartupAutoFix:      v.GetBool("STARTUP_AUTO_FIX"),
		ReconcileRatePerMin: v.GetInt("RECONCILE_RATE_PER_MIN"),
	}

	config.JWTExpirationDur = parseDuration(v, "JWT_EXPIRES_IN", 30*24*time.Hour)
	config.ReportCacheTTL = parseDuration(v, "REPORT_CACHE_TTL", 10*time.Minute)

	if config.ReconcileRatePerMin <= 0 {
		config.ReconcileRatePerMin = 6
	}

	return config
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, fallback)
		return fallback
	}
	return d
}

// Get returns the application configuration
func Get() *Config {
	mu.Lock()
	cfg := appConfig
	mu.Unlock()
	if cfg == nil {
		var err error
		cfg, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return cfg
}
