package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/tournevent/oto/pkg/oto"
)

// Config holds all configuration for the CLI and relay server.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// TryOto
	APIKey        string        `envconfig:"OTO_API_KEY"`
	BaseURL       string        `envconfig:"OTO_BASE_URL" default:"https://apis.tryoto.com/"`
	Timeout       int           `envconfig:"OTO_TIMEOUT" default:"30"`
	VerifySSL     bool          `envconfig:"OTO_VERIFY_SSL" default:"true"`
	Debug         bool          `envconfig:"OTO_DEBUG" default:"false"`
	APIVersion    string        `envconfig:"OTO_API_VERSION" default:"v1"`
	UseMock       bool          `envconfig:"OTO_USE_MOCK" default:"false"`
	OptionsFile   string        `envconfig:"OTO_OPTIONS_FILE"`
	MaxRetries    uint64        `envconfig:"OTO_MAX_RETRIES" default:"0"`
	RetryInterval time.Duration `envconfig:"OTO_RETRY_INTERVAL" default:"500ms"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"oto"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads an optional .env file, then configuration from environment
// variables. Variables already set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// SDKOptions returns the client options. Values from OptionsFile, when set,
// take precedence over the environment.
func (c *Config) SDKOptions() (oto.Options, error) {
	verify := c.VerifySSL
	opts := oto.Options{
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		VerifySSL: &verify,
		Debug:     c.Debug,
		Version:   c.APIVersion,
	}
	if c.OptionsFile == "" {
		return opts, nil
	}

	data, err := os.ReadFile(c.OptionsFile)
	if err != nil {
		return oto.Options{}, fmt.Errorf("reading options file: %w", err)
	}
	var file oto.Options
	if err := yaml.Unmarshal(data, &file); err != nil {
		return oto.Options{}, fmt.Errorf("parsing options file %s: %w", c.OptionsFile, err)
	}

	if file.BaseURL != "" {
		opts.BaseURL = file.BaseURL
	}
	if file.Timeout > 0 {
		opts.Timeout = file.Timeout
	}
	if file.VerifySSL != nil {
		opts.VerifySSL = file.VerifySSL
	}
	if file.Debug {
		opts.Debug = true
	}
	if file.Version != "" {
		opts.Version = file.Version
	}
	opts.Extra = file.Extra
	return opts, nil
}

// ClientOptions returns the retry setting as client options.
func (c *Config) ClientOptions() []oto.ClientOption {
	if c.MaxRetries == 0 {
		return nil
	}
	return []oto.ClientOption{oto.WithRetry(c.MaxRetries, c.RetryInterval)}
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("oto.base_url", c.BaseURL),
		attribute.String("oto.api_version", c.APIVersion),
		attribute.Bool("oto.mock", c.UseMock),
	}
}
