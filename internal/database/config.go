package database

import (
	"fmt"

	"finledger/internal/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database configuration
type Config struct {
	Driver         string
	Path           string
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	LogLevel       string
	MigrationsPath string
}

// NewConfig derives the database configuration from the application config.
func NewConfig(cfg *config.Config) *Config {
	driver := cfg.DBDriver
	if driver == "" {
		driver = DriverSQLite
	}
	return &Config{
		Driver:         driver,
		Path:           cfg.DBPath,
		Host:           cfg.DBHost,
		Port:           cfg.DBPort,
		User:           cfg.DBUser,
		Password:       cfg.DBPassword,
		DBName:         cfg.DBName,
		SSLMode:        cfg.DBSSLMode,
		LogLevel:       cfg.DBLogLevel,
		MigrationsPath: "migrations",
	}
}

// DSN returns the connection string gorm opens.
func (c *Config) DSN() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path + "?_busy_timeout=5000"
}

// MigrateURL returns the database URL golang-migrate expects.
func (c *Config) MigrateURL() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
	}
	return "sqlite3://" + c.Path
}

// SourceURL returns the migrations source URL.
func (c *Config) SourceURL() string {
	return "file://" + c.MigrationsPath
}
