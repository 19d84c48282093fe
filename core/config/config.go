package config

import (
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	Paths     PathsConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasePath           string
	BasicAuth          []string
	TrustedProxies     []string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	Storages string
}

type DatabaseConfig struct {
	// ScheduleStore (relational)
	Driver   string // "sqlite" (default) or "postgres"
	Host     string
	Port     int
	User     string
	Password string
	Name     string // file path for SQLite, database name for Postgres

	// ContentStore (documents)
	MongoURI      string
	MongoDatabase string

	// Due-row queue
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type SchedulerConfig struct {
	// OptimisticStatus restores the legacy ordering where the content record
	// claims "scheduled" before the ScheduleStore transaction commits. Off by
	// default: the conservative ordering keeps the record in "draft" until the
	// schedule reference is patched back.
	OptimisticStatus  bool
	PromoteInterval   time.Duration
	ReconcileInterval time.Duration
	LookAhead         time.Duration
}

// Global provides access to the loaded configuration (set once at boot).
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Version:            "v1.0.0",
			Port:               getEnv("APP_PORT", "3000"),
			Debug:              getEnvBool("APP_DEBUG", false),
			Environment:        getEnv("APP_ENV", "production"),
			BasePath:           getEnv("APP_BASE_PATH", ""),
			BasicAuth:          getEnvList("APP_BASIC_AUTH"),
			TrustedProxies:     getEnvList("APP_TRUSTED_PROXIES"),
			CorsAllowedOrigins: getEnvListDefault("APP_CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			ServerID:           getEnv("APP_SERVER_ID", ""),
		},
		Paths: PathsConfig{
			Storages: getEnv("APP_STORAGES_PATH", "storages"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "storages/schedules.db"),
			MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase:   getEnv("MONGO_DATABASE", "solocreatorhub"),
			ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
			ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
			ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
			ValkeyDB:        getEnvInt("VALKEY_DB", 0),
			ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "schub"),
		},
		Scheduler: SchedulerConfig{
			OptimisticStatus:  getEnvBool("SCHEDULER_OPTIMISTIC_STATUS", false),
			PromoteInterval:   getEnvDuration("SCHEDULER_PROMOTE_INTERVAL", time.Minute),
			ReconcileInterval: getEnvDuration("SCHEDULER_RECONCILE_INTERVAL", 5*time.Minute),
			LookAhead:         getEnvDuration("SCHEDULER_LOOK_AHEAD", 24*time.Hour),
		},
	}

	Global = cfg
	return cfg, nil
}
