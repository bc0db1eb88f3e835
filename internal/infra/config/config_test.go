package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/config"
)

func TestLoad_WithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	err := os.WriteFile(path, []byte(`
database:
  driver: postgres
  dsn: postgres://gateway@localhost/gateway?sslmode=disable
queue:
  backend: rabbitmq
  concurrency: 2
processing:
  test_mode: true
  test_processing_delay: 250ms
`), 0o600)
	require.NoError(t, err)

	t.Setenv("GATEWAY_QUEUE_CONCURRENCY", "4")
	t.Setenv("GATEWAY_PROCESSING_TEST_PAYMENT_SUCCESS", "false")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, config.BackendRabbitMQ, cfg.Queue.Backend)
	require.Equal(t, 4, cfg.Queue.Concurrency)
	require.True(t, cfg.Processing.TestMode)
	require.Equal(t, 250*time.Millisecond, cfg.Processing.TestProcessingDelay)
	require.False(t, cfg.Processing.TestPaymentSuccess)
	require.Equal(t, 5*time.Second, cfg.Processing.WebhookTimeout)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("GATEWAY_QUEUE_BACKEND", "kafka")

	_, err := config.Load("")
	require.ErrorContains(t, err, "unsupported queue backend")
}

func TestYAML_RoundTrips(t *testing.T) {
	out, err := config.Default().YAML()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	require.Contains(t, decoded, "queue")
	require.Contains(t, string(out), "webhook_timeout: 5s")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults", func(*config.Config) {}, ""},
		{"memory store with memory queue", func(c *config.Config) {
			c.Database.Driver = config.DriverMemory
			c.Database.DSN = ""
			c.Queue.Backend = config.BackendMemory
		}, ""},
		{"memory store with sql queue", func(c *config.Config) {
			c.Database.Driver = config.DriverMemory
		}, "needs a sql database"},
		{"missing dsn", func(c *config.Config) { c.Database.DSN = "" }, "dsn is required"},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }, "unsupported database driver"},
		{"zero concurrency", func(c *config.Config) { c.Queue.Concurrency = 0 }, "concurrency"},
		{"rabbitmq without url", func(c *config.Config) {
			c.Queue.Backend = config.BackendRabbitMQ
			c.Queue.RabbitMQURL = ""
		}, "rabbitmq_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
