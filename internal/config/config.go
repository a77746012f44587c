// Package config loads the gateway's structural configuration: queue
// locations, timeouts, and pool sizes. Credentials and TLS material are
// intentionally not modeled here — callers inject a grpc.DialOption slice
// built however their deployment requires.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gateway's top-level structural configuration.
type Config struct {
	Queue      QueueConfig      `yaml:"queue"`
	Connector  ConnectorConfig  `yaml:"connector"`
	Resender   ResenderConfig   `yaml:"resender"`
	Exporter   ExporterConfig   `yaml:"exporter"`
	Distributor DistributorConfig `yaml:"distributor"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Log        LogConfig        `yaml:"log"`
}

// QueueConfig configures the on-disk journaled export queue.
type QueueConfig struct {
	RootDir   string `yaml:"root_dir"`
	BatchSize int    `yaml:"batch_size"`
}

// ConnectorConfig configures the outbound GWSConnector link.
type ConnectorConfig struct {
	ServerAddr string `yaml:"server_addr"`
}

// ResenderConfig configures unacknowledged-message resend timing.
type ResenderConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ExporterConfig configures the QueuingExporter/Optimistic shipment loop.
type ExporterConfig struct {
	AcquireTimeout     time.Duration `yaml:"acquire_timeout"`
	SendFailedDelay    time.Duration `yaml:"send_failed_delay"`
	BatchSize          int           `yaml:"batch_size"`
	ExportNonConfirmed int           `yaml:"export_non_confirmed"`
}

// DistributorConfig configures per-exporter queue sizing and health.
type DistributorConfig struct {
	DeadTimeout time.Duration `yaml:"dead_timeout"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Capacity    int           `yaml:"capacity"`
	BatchSize   int           `yaml:"batch_size"`
	Threshold   int           `yaml:"threshold"`
}

// ExecutorConfig sizes the bounded worker pool shared by the dispatcher
// and connector listener fan-out.
type ExecutorConfig struct {
	PoolSize int `yaml:"pool_size"`
}

// LogConfig mirrors log.Config, kept separate so this package has no
// dependency on internal/log.
type LogConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
	Console  bool   `yaml:"console"`
}

// Load reads and parses a YAML config file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 30
	}
	if cfg.Resender.Timeout == 0 {
		cfg.Resender.Timeout = 10 * time.Second
	}
	if cfg.Exporter.AcquireTimeout == 0 {
		cfg.Exporter.AcquireTimeout = time.Second
	}
	if cfg.Exporter.SendFailedDelay == 0 {
		cfg.Exporter.SendFailedDelay = time.Second
	}
	if cfg.Exporter.BatchSize == 0 {
		cfg.Exporter.BatchSize = 30
	}
	if cfg.Distributor.DeadTimeout == 0 {
		cfg.Distributor.DeadTimeout = 10 * time.Second
	}
	if cfg.Distributor.IdleTimeout == 0 {
		cfg.Distributor.IdleTimeout = 5 * time.Second
	}
	if cfg.Distributor.Capacity == 0 {
		cfg.Distributor.Capacity = 1000
	}
	if cfg.Distributor.BatchSize == 0 {
		cfg.Distributor.BatchSize = 30
	}
	if cfg.Distributor.Threshold == 0 {
		cfg.Distributor.Threshold = 10
	}
	if cfg.Executor.PoolSize == 0 {
		cfg.Executor.PoolSize = 8
	}
}
