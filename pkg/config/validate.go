package config

import (
	"fmt"
	"strings"
	"time"

	"render-crawler/pkg/utils"
)

const (
	EngineRod    = "rod"
	EngineStatic = "static"

	FormatText     = "text"
	FormatMarkdown = "markdown"
)

var validCacheStrategies = []string{"lru", "lfu", "fifo", "random"}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// MaxUrlsToCrawl
	if c.MaxUrlsToCrawl <= 0 {
		warnings = append(warnings, "max_urls_to_crawl should be > 0, defaulting to 10")
		c.MaxUrlsToCrawl = 10
	}

	// MaxConcurrency
	if c.MaxConcurrency <= 0 {
		warnings = append(warnings, "max_concurrency should be > 0, defaulting to 10")
		c.MaxConcurrency = 10
	}

	if c.ServerMaxConcurrency <= 0 {
		c.ServerMaxConcurrency = 5
	}

	// Engine
	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	switch c.Engine {
	case EngineRod, EngineStatic:
	case "":
		c.Engine = EngineRod
	default:
		return warnings, fmt.Errorf("%w: engine must be '%s' or '%s', got '%s'", utils.ErrConfigValidation, EngineRod, EngineStatic, c.Engine)
	}

	// Timeouts
	if c.NavigationTimeout < 0 {
		warnings = append(warnings, "navigation_timeout cannot be negative, defaulting to 30s")
		c.NavigationTimeout = 0
	}
	if c.NavigationTimeout == 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.WaitForSelectorTimeout < 0 {
		warnings = append(warnings, "wait_for_selector_timeout cannot be negative, defaulting to 1s")
		c.WaitForSelectorTimeout = 0
	}
	if c.WaitForSelectorTimeout == 0 {
		c.WaitForSelectorTimeout = 1 * time.Second
	}

	// ContentFormat
	c.ContentFormat = strings.ToLower(strings.TrimSpace(c.ContentFormat))
	switch c.ContentFormat {
	case FormatText, FormatMarkdown:
	case "":
		c.ContentFormat = FormatText
	default:
		warnings = append(warnings, fmt.Sprintf("content_format '%s' is unknown, defaulting to '%s'", c.ContentFormat, FormatText))
		c.ContentFormat = FormatText
	}

	// Server address
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 3000
	}
	if c.Port < 0 || c.Port > 65535 {
		return warnings, fmt.Errorf("%w: port %d out of range", utils.ErrConfigValidation, c.Port)
	}

	// Cache
	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = 100
	}
	c.Cache.Strategy = strings.ToLower(strings.TrimSpace(c.Cache.Strategy))
	if c.Cache.Strategy == "" {
		c.Cache.Strategy = "lru"
	} else if !contains(validCacheStrategies, c.Cache.Strategy) {
		warnings = append(warnings, fmt.Sprintf("cache.strategy '%s' is unknown, defaulting to 'lru'", c.Cache.Strategy))
		c.Cache.Strategy = "lru"
	}
	if c.Cache.TTL < 0 {
		warnings = append(warnings, "cache.ttl cannot be negative, disabling expiry")
		c.Cache.TTL = 0
	}

	// Token counting
	if c.EnableTokenCounting && c.TokenizerEncoding == "" {
		c.TokenizerEncoding = "cl100k_base"
	}

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
	if h.MaxPageSizeBytes <= 0 {
		h.MaxPageSizeBytes = 50 * 1024 * 1024
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
