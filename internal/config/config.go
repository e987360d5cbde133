package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Extractor ExtractorConfig
	Redis     RedisConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// StoreConfig selects and parameterizes the persistence backend.
type StoreConfig struct {
	// Backend is "flatfile" or "sqlite".
	Backend      string
	ProductsFile string
	HistoryFile  string
	SQLitePath   string
}

type ExtractorConfig struct {
	// UserAgent is sent on every fetch to reduce trivial bot-blocking.
	UserAgent string
	Timeout   time.Duration
}

// RedisConfig configures the scrape rate limiter. An empty Host disables
// rate limiting entirely.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("STORE_BACKEND", "flatfile")
	viper.SetDefault("PRODUCTS_FILE", "products.csv")
	viper.SetDefault("HISTORY_FILE", "price_history.csv")
	viper.SetDefault("SQLITE_PATH", "pricewatch.db")
	viper.SetDefault("EXTRACTOR_USER_AGENT", defaultUserAgent)
	viper.SetDefault("EXTRACTOR_TIMEOUT_SECONDS", 30)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Store: StoreConfig{
			Backend:      viper.GetString("STORE_BACKEND"),
			ProductsFile: viper.GetString("PRODUCTS_FILE"),
			HistoryFile:  viper.GetString("HISTORY_FILE"),
			SQLitePath:   viper.GetString("SQLITE_PATH"),
		},
		Extractor: ExtractorConfig{
			UserAgent: viper.GetString("EXTRACTOR_USER_AGENT"),
			Timeout:   time.Duration(viper.GetInt("EXTRACTOR_TIMEOUT_SECONDS")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
	}
}
