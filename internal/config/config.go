package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Bitstamp Bitstamp `mapstructure:"bitstamp"`
	Trading  Trading  `mapstructure:"trading"`
	Workers  Workers  `mapstructure:"workers"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Bitstamp holds the configuration for the Bitstamp API.
type Bitstamp struct {
	Username       string  `mapstructure:"username"`
	APIKey         string  `mapstructure:"api_key"`
	APISecret      string  `mapstructure:"api_secret"`
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Trading holds the configuration for the trading logic.
type Trading struct {
	// DoTrade gates whether the trader actually places exchange orders.
	// When false the bot runs dry: it computes and logs trade actions
	// but never submits them.
	DoTrade bool `mapstructure:"do_trade"`
}

// Workers holds the per-watcher polling intervals, in seconds.
type Workers struct {
	MonitoringInterval   int `mapstructure:"monitoring_interval"`
	TickerInterval       int `mapstructure:"ticker_interval"`
	BalanceInterval      int `mapstructure:"balance_interval"`
	TransactionsInterval int `mapstructure:"transactions_interval"`
	OrdersInterval       int `mapstructure:"orders_interval"`
}

// Server holds the configuration for the websocket/metrics endpoint.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("bitstamp.rate_limit", 5) // requests per second
	viper.SetDefault("bitstamp.rate_limit_burst", 5)
	viper.SetDefault("trading.do_trade", false)
	viper.SetDefault("workers.monitoring_interval", 1)
	viper.SetDefault("workers.ticker_interval", 3)
	viper.SetDefault("workers.balance_interval", 3)
	viper.SetDefault("workers.transactions_interval", 15)
	viper.SetDefault("workers.orders_interval", 10)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
