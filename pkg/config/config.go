package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// CloudConfig holds the cloud document database connection descriptor
type CloudConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	ConnectTimeout  time.Duration
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
	NotifyChannel   string
}

// placeholders are the values shipped in sample configuration files
var placeholders = []string{
	"TU_API_KEY_AQUI",
	"YOUR_API_KEY",
	"changeme",
}

var placeholderFragments = []string{
	"tu-proyecto",
	"your-project",
}

func isPlaceholder(value string) bool {
	for _, p := range placeholders {
		if strings.EqualFold(value, p) {
			return true
		}
	}
	lower := strings.ToLower(value)
	for _, fragment := range placeholderFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// Configured reports whether the descriptor carries real values
func (c *CloudConfig) Configured() bool {
	for _, value := range []string{c.Host, c.Password, c.DBName} {
		value = strings.TrimSpace(value)
		if value == "" || isPlaceholder(value) {
			return false
		}
	}
	return true
}

// GetDSN returns the PostgreSQL connection string
func (c *CloudConfig) GetDSN() string {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	if c.ConnectTimeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", int(c.ConnectTimeout.Seconds()))
	}
	return dsn
}

// LocalConfig holds the single-device store settings
type LocalConfig struct {
	Dir string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// SyncConfig holds the synchronization service options
type SyncConfig struct {
	StrictTransitions bool
	KitchenFeedLimit  int
	DefaultCashier    string
}

// Config holds all configuration
type Config struct {
	Cloud  CloudConfig
	Local  LocalConfig
	Server ServerConfig
	JWT    JWTConfig
	Log    LogConfig
	Sync   SyncConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := &Config{
		Cloud: CloudConfig{
			Host:            getEnv("CLOUD_DB_HOST", ""),
			Port:            getEnv("CLOUD_DB_PORT", "5432"),
			User:            getEnv("CLOUD_DB_USER", "postgres"),
			Password:        getEnv("CLOUD_DB_PASSWORD", ""),
			DBName:          getEnv("CLOUD_DB_NAME", ""),
			SSLMode:         getEnv("CLOUD_DB_SSL_MODE", "require"),
			ConnectTimeout:  getEnvAsDuration("CLOUD_DB_CONNECT_TIMEOUT", 10*time.Second),
			MaxIdleConns:    getEnvAsInt("CLOUD_DB_MAX_IDLE_CONNS", 5),
			MaxOpenConns:    getEnvAsInt("CLOUD_DB_MAX_OPEN_CONNS", 20),
			ConnMaxLifetime: getEnvAsDuration("CLOUD_DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("CLOUD_DB_LOG_LEVEL", logger.Warn),
			NotifyChannel:   getEnv("CLOUD_NOTIFY_CHANNEL", "retail_changes"),
		},
		Local: LocalConfig{
			Dir: getEnv("LOCAL_STORE_DIR", "./data"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "retailservicesecretkey"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 12),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Sync: SyncConfig{
			StrictTransitions: getEnvAsBool("SYNC_STRICT_TRANSITIONS", true),
			KitchenFeedLimit:  getEnvAsInt("KITCHEN_FEED_LIMIT", 50),
			DefaultCashier:    getEnv("DEFAULT_CASHIER", "Sistema WA"),
		},
	}

	if config.Sync.KitchenFeedLimit <= 0 {
		return nil, fmt.Errorf("KITCHEN_FEED_LIMIT must be positive, got %d", config.Sync.KitchenFeedLimit)
	}
	if config.Cloud.NotifyChannel == "" {
		return nil, fmt.Errorf("CLOUD_NOTIFY_CHANNEL must not be empty")
	}

	return config, nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.Bool("cloud_configured", c.Cloud.Configured()),
		zap.String("cloud_host", c.Cloud.Host),
		zap.String("cloud_db_name", c.Cloud.DBName),
		zap.String("local_store_dir", c.Local.Dir),
		zap.Bool("strict_transitions", c.Sync.StrictTransitions),
		zap.Int("kitchen_feed_limit", c.Sync.KitchenFeedLimit),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
