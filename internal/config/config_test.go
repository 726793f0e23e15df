package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 50, cfg.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
	assert.True(t, cfg.ServiceCostRatio.Equal(decimal.RequireFromString("0.5")))
	assert.False(t, cfg.RejectOverdraft)
	assert.Equal(t, []string{"Climate Change", "Education", "Health", "Livelihoods"}, cfg.ProgramAreas)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://books@localhost/books?sslmode=disable")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SERVICE_COST_RATIO", "0.7")
	t.Setenv("LEDGER_REJECT_OVERDRAFT", "true")
	t.Setenv("PROGRAM_AREAS", "Water,Climate Change")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "postgres://books@localhost/books?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.ServiceCostRatio.Equal(decimal.RequireFromString("0.7")))
	assert.True(t, cfg.RejectOverdraft)
	assert.Equal(t, []string{"Water", "Climate Change"}, cfg.ProgramAreas)
}

func TestParseRejectsMalformedRatio(t *testing.T) {
	t.Setenv("SERVICE_COST_RATIO", "half")
	_, err := Parse()
	assert.Error(t, err)
}

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("loud").GetLevel())
}
