package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("sales-service")
	require.NoError(t, err)

	assert.Equal(t, "sales-service", cfg.ServiceName)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "sales_service", cfg.DB.DBName)
	assert.Equal(t, "sales_service", cfg.Metrics.Prefix)
	assert.Equal(t, "rabbitmq", cfg.Broker.Type)
	assert.Equal(t, "erp.events", cfg.Broker.Exchange)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 30, cfg.Finance.PaymentTermDays)
	assert.InDelta(t, 10.0, cfg.Finance.DefaultTaxPercent, 0.0001)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "file::memory:")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_TTL", "30s")
	t.Setenv("FINANCE_DEFAULT_TAX_PERCENT", "7.5")

	cfg, err := Load("financial-service")
	require.NoError(t, err)

	assert.Equal(t, "file::memory:", cfg.DB.GetDSN())
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.Brokers)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.InDelta(t, 7.5, cfg.Finance.DefaultTaxPercent, 0.0001)
}

func TestPostgresDSN(t *testing.T) {
	c := DBConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.GetDSN())
}
