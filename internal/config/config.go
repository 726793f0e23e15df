package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// DatabaseURL selects the postgres store; empty runs in memory.
	DatabaseURL     string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"50"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"1m"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicPrefix string   `env:"KAFKA_TOPIC_PREFIX" envDefault:"bookkeeping."`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	ServiceCostRatio decimal.Decimal `env:"SERVICE_COST_RATIO" envDefault:"0.5"`
	RejectOverdraft  bool            `env:"LEDGER_REJECT_OVERDRAFT" envDefault:"false"`
	ProgramAreas     []string        `env:"PROGRAM_AREAS" envSeparator:"," envDefault:"Climate Change,Education,Health,Livelihoods"`
}

// Load reads .env when present and parses the environment.
func Load() (Config, error) {
	// a missing .env is fine; the real environment still applies
	_ = godotenv.Load()
	return Parse()
}

// Parse reads Config from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
