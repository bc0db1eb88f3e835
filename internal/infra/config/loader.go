package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GATEWAY_DATABASE_DSN.
const EnvPrefix = "GATEWAY"

// Load reads defaults, then the optional YAML file at path, then the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)

	v.SetDefault("queue.backend", d.Queue.Backend)
	v.SetDefault("queue.rabbitmq_url", d.Queue.RabbitMQURL)
	v.SetDefault("queue.prefix", d.Queue.Prefix)
	v.SetDefault("queue.poll_interval", d.Queue.PollInterval)
	v.SetDefault("queue.batch_size", d.Queue.BatchSize)
	v.SetDefault("queue.concurrency", d.Queue.Concurrency)
	v.SetDefault("queue.lease", d.Queue.Lease)

	v.SetDefault("processing.test_mode", d.Processing.TestMode)
	v.SetDefault("processing.test_processing_delay", d.Processing.TestProcessingDelay)
	v.SetDefault("processing.test_payment_success", d.Processing.TestPaymentSuccess)
	v.SetDefault("processing.webhook_retry_intervals_test", d.Processing.WebhookRetryIntervalsTest)
	v.SetDefault("processing.webhook_timeout", d.Processing.WebhookTimeout)

	v.SetDefault("log.level", d.Log.Level)
}
