package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	TickStore TickStoreConfig
	Terminal  TerminalConfig
	Sync      SyncConfig
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers   []string
	DealTopic string
	SyncTopic string
	GroupID   string
}

// RedisConfig holds the optional quote-cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// TickStoreConfig holds per-venue tick archive configuration
type TickStoreConfig struct {
	DataDir    string
	Compressed bool
}

// TerminalConfig holds terminal feed configuration
type TerminalConfig struct {
	Server  string
	FeedURL string
	// LocalTimeshift is the display offset in whole hours east of UTC.
	LocalTimeshift int
}

// SyncConfig holds deal-history sync configuration
type SyncConfig struct {
	IntervalSeconds int
	// HistoryStart bounds how far back deal history is fetched, "2006-01-02".
	HistoryStart    string
	BackfillWorkers int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "tradedash"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:   strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			DealTopic: getEnv("KAFKA_DEAL_TOPIC", "deal-events"),
			SyncTopic: getEnv("KAFKA_SYNC_TOPIC", "sync-events"),
			GroupID:   getEnv("KAFKA_GROUP_ID", "trade-dashboard"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", false),
		},
		TickStore: TickStoreConfig{
			DataDir:    getEnv("TICKS_DATA_DIR", "ticks_data"),
			Compressed: getEnvBool("TICKS_COMPRESSED", false),
		},
		Terminal: TerminalConfig{
			Server:         getEnv("TERMINAL_SERVER", ""),
			FeedURL:        getEnv("TERMINAL_FEED_URL", "http://localhost:8787"),
			LocalTimeshift: getEnvInt("LOCAL_TIMESHIFT", 3),
		},
		Sync: SyncConfig{
			IntervalSeconds: getEnvInt("SYNC_INTERVAL_SECONDS", 300),
			HistoryStart:    getEnv("SYNC_HISTORY_START", "2024-01-01"),
			BackfillWorkers: getEnvInt("SYNC_BACKFILL_WORKERS", 4),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
