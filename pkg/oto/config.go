package oto

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Defaults applied by NewConfig for options left unset.
const (
	DefaultBaseURL        = "https://apis.tryoto.com/"
	DefaultTimeoutSeconds = 30
	DefaultVerifySSL      = true
	DefaultDebug          = false
	DefaultVersion        = "v1"
)

// Canonical option keys, shared by Options yaml tags and Config.Get/Set.
const (
	KeyBaseURL   = "base_url"
	KeyTimeout   = "timeout"
	KeyVerifySSL = "verify_ssl"
	KeyDebug     = "debug"
	KeyVersion   = "version"
)

// Options holds user-supplied client options. Zero values fall back to the
// defaults; unrecognized keys from a yaml document land in Extra.
type Options struct {
	BaseURL   string         `yaml:"base_url"`
	Timeout   int            `yaml:"timeout"` // seconds
	VerifySSL *bool          `yaml:"verify_ssl"`
	Debug     bool           `yaml:"debug"`
	Version   string         `yaml:"version"`
	Extra     map[string]any `yaml:",inline"`
}

// Config is the resolved client configuration. It is read-mostly: getters are
// safe for concurrent use and Set takes a write lock.
type Config struct {
	mu        sync.RWMutex
	baseURL   string
	timeout   int
	verifySSL bool
	debug     bool
	version   string
	extra     map[string]any
}

// NewConfig merges opts over the defaults.
func NewConfig(opts Options) *Config {
	c := &Config{
		baseURL:   DefaultBaseURL,
		timeout:   DefaultTimeoutSeconds,
		verifySSL: DefaultVerifySSL,
		debug:     DefaultDebug,
		version:   DefaultVersion,
		extra:     make(map[string]any, len(opts.Extra)),
	}

	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		c.timeout = opts.Timeout
	}
	if opts.VerifySSL != nil {
		c.verifySSL = *opts.VerifySSL
	}
	c.debug = opts.Debug
	if opts.Version != "" {
		c.version = opts.Version
	}
	for k, v := range opts.Extra {
		c.Set(k, v)
	}
	return c
}

// BaseURL returns the API base URL with exactly one trailing slash.
func (c *Config) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return normalizeBaseURL(c.baseURL)
}

// TimeoutSeconds returns the per-request timeout in seconds.
func (c *Config) TimeoutSeconds() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds()) * time.Second
}

// VerifySSL reports whether TLS certificates are verified.
func (c *Config) VerifySSL() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.verifySSL
}

// Debug reports whether request tracing and body logging are enabled.
func (c *Config) Debug() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debug
}

// Version returns the API version string.
func (c *Config) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Get returns the value stored under key, or def when absent. The canonical
// keys map onto the typed fields; anything else is looked up in the
// forward-compatible extra set.
func (c *Config) Get(key string, def any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch key {
	case KeyBaseURL:
		return normalizeBaseURL(c.baseURL)
	case KeyTimeout:
		return c.timeout
	case KeyVerifySSL:
		return c.verifySSL
	case KeyDebug:
		return c.debug
	case KeyVersion:
		return c.version
	}
	if v, ok := c.extra[key]; ok {
		return v
	}
	return def
}

// Set overwrites or inserts key. Canonical keys are coerced into their typed
// field; a value that cannot be coerced leaves the field unchanged.
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch key {
	case KeyBaseURL:
		if s, ok := toString(value); ok {
			c.baseURL = s
		}
	case KeyTimeout:
		if n, ok := toInt(value); ok {
			c.timeout = n
		}
	case KeyVerifySSL:
		if b, ok := toBool(value); ok {
			c.verifySSL = b
		}
	case KeyDebug:
		if b, ok := toBool(value); ok {
			c.debug = b
		}
	case KeyVersion:
		if s, ok := toString(value); ok {
			c.version = s
		}
	default:
		c.extra[key] = value
	}
}

func normalizeBaseURL(u string) string {
	return strings.TrimRight(u, "/") + "/"
}

func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case nil:
		return "", false
	}
	return "", false
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint64:
		return int(t), true
	case float32:
		return int(t), true
	case float64:
		return int(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	case nil:
		return false, false
	}
	if n, ok := toInt(v); ok {
		return n != 0, true
	}
	return false, false
}
