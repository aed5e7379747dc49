package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Redis        RedisConfig        `yaml:"redis"`
	MySQL        MySQLConfig        `yaml:"mysql"`
	Logger       LoggerConfig       `yaml:"logger"`
	Collector    CollectorConfig    `yaml:"collector"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Credentials  CredentialsConfig  `yaml:"credentials"`
	Notification NotificationConfig `yaml:"notification"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // API key for management API (optional, if empty, auth is disabled)
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// CollectorConfig data collection configuration
type CollectorConfig struct {
	FetchDelayDays int `yaml:"fetch_delay_days"` // how many days behind today the default target date is
	MaxRetries     int `yaml:"max_retries"`      // HTTP retry attempts per vendor request
	RetryDelaySec  int `yaml:"retry_delay_sec"`  // base delay between retries (seconds)
	RequestTimeout int `yaml:"request_timeout"`  // per-request timeout (seconds)
}

// SchedulerConfig scheduler configuration
type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"`         // whether the minute tick loop runs in this instance
	LockKey        string `yaml:"lock_key"`        // distributed lock key for multi-replica deployments
	LockTTLSec     int    `yaml:"lock_ttl_sec"`    // lock TTL (seconds)
	DefaultTimeout int    `yaml:"default_timeout"` // default task timeout (minutes) when a schedule has none
}

// CredentialsConfig vendor credential configuration
type CredentialsConfig struct {
	AppStore   AppStoreCredentials   `yaml:"appstore"`
	GooglePlay GooglePlayCredentials `yaml:"googleplay"`
}

// AppStoreCredentials App Store Connect API credentials
type AppStoreCredentials struct {
	KeyID          string `yaml:"key_id"`
	IssuerID       string `yaml:"issuer_id"`
	PrivateKeyPath string `yaml:"private_key_path"` // PEM file with the ES256 private key
}

// GooglePlayCredentials Google Play Console credentials
type GooglePlayCredentials struct {
	ServiceAccountPath string `yaml:"service_account_path"` // service account JSON key file
	ReportBucket       string `yaml:"report_bucket"`        // GCS bucket holding exported reports
}

// NotificationConfig alert notification configuration
type NotificationConfig struct {
	LarkWebhook string `yaml:"lark_webhook"` // Lark/Feishu webhook URL (optional)
}

// DefaultCollectorConfig returns collector defaults used when the
// configuration file omits or invalidates a value.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		FetchDelayDays: 2,
		MaxRetries:     3,
		RetryDelaySec:  5,
		RequestTimeout: 60,
	}
}

// DefaultSchedulerConfig returns scheduler defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:        true,
		LockKey:        "storepulse:scheduler:tick",
		LockTTLSec:     55,
		DefaultTimeout: 30,
	}
}

// validateAndApplyDefaults replaces invalid numeric settings with defaults
// so a bad config file cannot stall collection or the tick loop.
func validateAndApplyDefaults(cfg *Config) {
	collectorDefaults := DefaultCollectorConfig()
	if cfg.Collector.FetchDelayDays < 0 {
		cfg.Collector.FetchDelayDays = collectorDefaults.FetchDelayDays
	}
	if cfg.Collector.MaxRetries <= 0 {
		cfg.Collector.MaxRetries = collectorDefaults.MaxRetries
	}
	if cfg.Collector.RetryDelaySec <= 0 {
		cfg.Collector.RetryDelaySec = collectorDefaults.RetryDelaySec
	}
	if cfg.Collector.RequestTimeout <= 0 {
		cfg.Collector.RequestTimeout = collectorDefaults.RequestTimeout
	}

	schedulerDefaults := DefaultSchedulerConfig()
	if cfg.Scheduler.LockKey == "" {
		cfg.Scheduler.LockKey = schedulerDefaults.LockKey
	}
	if cfg.Scheduler.LockTTLSec <= 0 {
		cfg.Scheduler.LockTTLSec = schedulerDefaults.LockTTLSec
	}
	if cfg.Scheduler.DefaultTimeout <= 0 {
		cfg.Scheduler.DefaultTimeout = schedulerDefaults.DefaultTimeout
	}
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	validateAndApplyDefaults(&cfg)

	GlobalConfig = &cfg
	return nil
}
