package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"render-crawler/pkg/utils"
)

// AppConfig holds the global application configuration
type AppConfig struct {
	MaxUrlsToCrawl         int              `yaml:"max_urls_to_crawl"`
	MaxConcurrency         int              `yaml:"max_concurrency"`
	ServerMaxConcurrency   int              `yaml:"server_max_concurrency,omitempty"` // Concurrency used by the HTTP adapter
	Engine                 string           `yaml:"engine"`                           // "rod" (headless browser) or "static" (plain HTTP)
	Headless               *bool            `yaml:"headless,omitempty"`               // nil = default (true)
	BrowserBin             string           `yaml:"browser_bin,omitempty"`            // Optional browser executable for the rod engine
	NavigationTimeout      time.Duration    `yaml:"navigation_timeout,omitempty"`
	WaitForSelectorTimeout time.Duration    `yaml:"wait_for_selector_timeout,omitempty"`
	Selector               string           `yaml:"selector,omitempty"`         // Readiness selector (CSS, or XPath when it starts with "/")
	ContentSelector        string           `yaml:"content_selector,omitempty"` // Content root; defaults to "body", "auto" detects it
	IgnoreSelector         string           `yaml:"ignore_selector,omitempty"`  // Elements removed before content extraction
	ContentFormat          string           `yaml:"content_format,omitempty"`   // "text" or "markdown"
	UserAgent              string           `yaml:"user_agent,omitempty"`
	StateDir               string           `yaml:"state_dir,omitempty"` // Run record store location; empty disables it
	Host                   string           `yaml:"host,omitempty"`
	Port                   int              `yaml:"port,omitempty"`
	Cache                  CacheConfig      `yaml:"cache,omitempty"`
	HTTPClientSettings     HTTPClientConfig `yaml:"http_client_settings,omitempty"`
	EnableTokenCounting    bool             `yaml:"enable_token_counting,omitempty"`
	TokenizerEncoding      string           `yaml:"tokenizer_encoding,omitempty"`
}

// CacheConfig holds settings for the HTTP adapter's response cache
type CacheConfig struct {
	MaxSize  int           `yaml:"max_size,omitempty"`
	Strategy string        `yaml:"strategy,omitempty"` // lru, lfu, fifo, random
	TTL      time.Duration `yaml:"ttl,omitempty"`      // 0 = entries never expire
}

// HTTPClientConfig holds settings for the shared HTTP client used by the static engine
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
	MaxPageSizeBytes      int64         `yaml:"max_page_size_bytes,omitempty"`     // Body read limit
}

// Load reads the YAML config at path, then applies .env and environment overrides
// A missing file is not an error: the zero config is returned and Validate fills in defaults
func Load(path string) (*AppConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg AppConfig
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("%w: parse config '%s': %w", utils.ErrConfigValidation, path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// Defaults apply
		default:
			return nil, fmt.Errorf("%w: read config '%s': %w", utils.ErrFilesystem, path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides the server address from HOST and PORT
func (c *AppConfig) applyEnv() error {
	if host := os.Getenv("HOST"); host != "" {
		c.Host = host
	}
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%w: invalid PORT '%s'", utils.ErrConfigValidation, portStr)
		}
		c.Port = port
	}
	return nil
}

// Addr returns the host:port the HTTP adapter listens on
func (c *AppConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsHeadless determines the effective headless setting
func (c *AppConfig) IsHeadless() bool {
	if c.Headless != nil {
		return *c.Headless
	}
	return true
}
