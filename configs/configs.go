package configs

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config defines all environment variables and derived config for the poller.
type Config struct {
	// Transformed time.Duration fields (not loaded from env directly)
	ResolveRetryDuration   time.Duration `env:"-"` // Queue URL lookup retry interval
	CreateRetryDuration    time.Duration `env:"-"` // Delay between queue creation attempts
	EmulatorSettleDuration time.Duration `env:"-"` // Wait after creating an emulator queue
	InvokeTimeoutDuration  time.Duration `env:"-"` // Upper bound for one consumer invocation

	Region          string   `env:"SQS_REGION" envDefault:"us-east-1"`
	AccountID       string   `env:"SQS_ACCOUNT_ID" envDefault:"000000000000"`
	Endpoint        string   `env:"SQS_ENDPOINT"`
	AccessKeyID     string   `env:"SQS_ACCESS_KEY_ID" envDefault:"root"`
	SecretAccessKey string   `env:"SQS_SECRET_ACCESS_KEY" envDefault:"root"`
	AutoCreate      bool     `env:"SQS_AUTO_CREATE" envDefault:"true"`
	EmulatorHosts   []string `env:"SQS_EMULATOR_HOSTS" envDefault:"localhost:9324" envSeparator:","`

	ReceiveWaitSeconds  int32 `env:"SQS_RECEIVE_WAIT_SECONDS" envDefault:"5"`
	ResolveRetrySeconds int   `env:"SQS_RESOLVE_RETRY_SECONDS" envDefault:"10"`
	CreateRetries       int   `env:"SQS_CREATE_RETRIES" envDefault:"5"`
	CreateRetryDelayMs  int   `env:"SQS_CREATE_RETRY_DELAY_MS" envDefault:"1000"`
	EmulatorSettleMs    int   `env:"SQS_EMULATOR_SETTLE_MS" envDefault:"1000"`

	CatalogPath string `env:"CATALOG_PATH,required"`

	InvokeEndpoint       string `env:"INVOKE_ENDPOINT" envDefault:"http://localhost:3002"`
	InvokeTimeoutSeconds int    `env:"INVOKE_TIMEOUT_SECONDS" envDefault:"900"`
	InvokeMaxRetries     int    `env:"INVOKE_MAX_RETRIES" envDefault:"3"`

	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
}

// Parse loads configuration from environment variables, validates and normalizes it.
func Parse() (*Config, error) {
	var cfg Config

	// 1. 解析環境變數
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	// 2. 驗證
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// 3. 計算衍生欄位
	cfg.normalize()

	return &cfg, nil
}

// validate performs all required configuration checks.
func (c *Config) validate() error {
	if c.CatalogPath == "" {
		return errors.New("CATALOG_PATH must not be empty")
	}

	if c.Region == "" {
		return errors.New("SQS_REGION must not be empty")
	}

	if c.ReceiveWaitSeconds < 0 || c.ReceiveWaitSeconds > 20 {
		return errors.New("SQS_RECEIVE_WAIT_SECONDS must be between 0 and 20")
	}

	if c.CreateRetries < 0 {
		return errors.New("SQS_CREATE_RETRIES must not be negative")
	}

	if c.ResolveRetrySeconds <= 0 {
		return errors.New("SQS_RESOLVE_RETRY_SECONDS must be greater than 0")
	}

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("SQS_ENDPOINT must be an absolute URL, got %q", c.Endpoint)
		}
	}

	return nil
}

// normalize converts int values to duration and sets derived fields.
func (c *Config) normalize() {
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	c.ResolveRetryDuration = time.Duration(c.ResolveRetrySeconds) * time.Second
	c.CreateRetryDuration = time.Duration(c.CreateRetryDelayMs) * time.Millisecond
	c.EmulatorSettleDuration = time.Duration(c.EmulatorSettleMs) * time.Millisecond
	c.InvokeTimeoutDuration = time.Duration(c.InvokeTimeoutSeconds) * time.Second
}

// IsEmulator reports whether the configured endpoint targets the local queue emulator.
func (c *Config) IsEmulator() bool {
	if c.Endpoint == "" {
		return false
	}
	for _, host := range c.EmulatorHosts {
		if host != "" && strings.Contains(c.Endpoint, host) {
			return true
		}
	}
	return false
}
