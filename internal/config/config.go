package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration of the order service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Orders  OrdersConfig  `yaml:"orders"`
	Polling PollingConfig `yaml:"polling"`
	Events  EventsConfig  `yaml:"events"`
	AWS     AWSConfig     `yaml:"aws"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
}

type OrdersConfig struct {
	// manual | auto
	ArchivePolicy    string        `yaml:"archive_policy"`
	IdempotencyTTL   time.Duration `yaml:"idempotency_ttl"`
	IdempotencyLease time.Duration `yaml:"idempotency_lease"` // unfinished submissions block retries this long
}

// PollingConfig holds the intervals advertised to polling clients.
type PollingConfig struct {
	Orders  time.Duration `yaml:"orders"`
	History time.Duration `yaml:"history"`
	Stats   time.Duration `yaml:"stats"`
}

type EventsConfig struct {
	QueueSize           int    `yaml:"queue_size"`
	Workers             int    `yaml:"workers"`
	SQSQueueURL         string `yaml:"sqs_queue_url"`
	CloudWatchNamespace string `yaml:"cloudwatch_namespace"`
}

type AWSConfig struct {
	Region string `yaml:"region"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":3000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:   LogConfig{Level: "info", Env: "production"},
		Store: StoreConfig{DataDir: "data"},
		Orders: OrdersConfig{
			ArchivePolicy:    "manual",
			IdempotencyTTL:   48 * time.Hour,
			IdempotencyLease: 2 * time.Minute,
		},
		Polling: PollingConfig{
			Orders:  5 * time.Second,
			History: 30 * time.Second,
			Stats:   5 * time.Second,
		},
		Events: EventsConfig{QueueSize: 256, Workers: 2},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RUN_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Log.Env = v
	}
	if v := os.Getenv("ARCHIVE_POLICY"); v != "" {
		cfg.Orders.ArchivePolicy = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("ORDER_EVENTS_QUEUE_URL"); v != "" {
		cfg.Events.SQSQueueURL = v
	}
	if v := os.Getenv("CLOUDWATCH_NAMESPACE"); v != "" {
		cfg.Events.CloudWatchNamespace = v
	}
}

// Validate rejects values the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Store.DataDir == "" {
		errs = append(errs, errors.New("store.data_dir is required"))
	}
	switch c.Orders.ArchivePolicy {
	case "", "manual", "auto":
	default:
		errs = append(errs, fmt.Errorf("orders.archive_policy must be manual or auto, got %q", c.Orders.ArchivePolicy))
	}
	if c.Orders.IdempotencyLease < 0 || c.Orders.IdempotencyLease >= c.Orders.IdempotencyTTL {
		errs = append(errs, errors.New("orders.idempotency_lease must be shorter than orders.idempotency_ttl"))
	}
	if c.Polling.Orders < time.Second || c.Polling.History < time.Second || c.Polling.Stats < time.Second {
		errs = append(errs, errors.New("polling intervals must be at least 1s"))
	}
	if c.Events.QueueSize < 1 || c.Events.Workers < 1 {
		errs = append(errs, errors.New("events.queue_size and events.workers must be positive"))
	}
	return errors.Join(errs...)
}

// AWSEnabled reports whether any AWS-backed event sink is configured.
func (c Config) AWSEnabled() bool {
	return c.Events.SQSQueueURL != "" || c.Events.CloudWatchNamespace != ""
}
