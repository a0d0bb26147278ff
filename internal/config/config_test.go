package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("INVOICE_DEFAULT_CURRENCY", "")
	t.Setenv("INVOICE_ID_STRATEGY", "")
	t.Setenv("STORAGE_TYPE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "USD", cfg.Invoice.DefaultCurrency)
	assert.Equal(t, "uuid", cfg.Invoice.IDStrategy)
	assert.Equal(t, "local", cfg.Storage.Type)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("INVOICE_DEFAULT_CURRENCY", "eur")
	t.Setenv("INVOICE_ID_STRATEGY", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DB_TX_TIMEOUT", "2s")
	t.Setenv("INNGEST_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "EUR", cfg.Invoice.DefaultCurrency)
	assert.Equal(t, "redis", cfg.Invoice.IDStrategy)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 2*time.Second, cfg.Database.TxTimeout)
	assert.True(t, cfg.Inngest.Enabled())
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	cases := map[string]string{
		"STORE_DRIVER":        "mongo",
		"STORAGE_TYPE":        "ftp",
		"INVOICE_ID_STRATEGY": "sequence",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestS3RequiresEndpoint(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("S3_ENDPOINT", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_ENDPOINT")
}

func TestGetEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	t.Setenv("SOME_BOOL", "maybe")
	t.Setenv("SOME_DURATION", "soon")

	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
	assert.True(t, getEnvAsBool("SOME_BOOL", true))
	assert.Equal(t, time.Minute, getEnvAsDuration("SOME_DURATION", time.Minute))
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.GetDSN())
}
