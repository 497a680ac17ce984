package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, BackendSpanner, cfg.LedgerBackend)
	assert.Equal(t, 5*time.Second, cfg.LedgerReadTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)

	policy, err := cfg.RegressionPolicy()
	require.NoError(t, err)
	assert.Equal(t, domain.AllowRegression, policy)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("STATUS_REGRESSION_POLICY", "forward-only")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOAD_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.LedgerBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 8, cfg.LoadConcurrency)

	policy, err := cfg.RegressionPolicy()
	require.NoError(t, err)
	assert.Equal(t, domain.ForwardOnly, policy)
}

func TestLoad_RejectsUnknownValues(t *testing.T) {
	tests := map[string]string{
		"LEDGER_BACKEND":           "postgres",
		"LOCK_BACKEND":             "etcd",
		"STATUS_REGRESSION_POLICY": "sometimes",
		"LOAD_CONCURRENCY":         "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
