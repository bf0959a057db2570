package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-crawler/pkg/utils"
)

func TestAppConfig_Validate_Defaults(t *testing.T) {
	cfg := AppConfig{} // Zero value
	warnings, err := cfg.Validate()

	require.NoError(t, err)

	// Check defaults applied
	assert.Equal(t, 10, cfg.MaxUrlsToCrawl)
	assert.Equal(t, 10, cfg.MaxConcurrency)
	assert.Equal(t, 5, cfg.ServerMaxConcurrency)
	assert.Equal(t, EngineRod, cfg.Engine)
	assert.True(t, cfg.IsHeadless())
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 1*time.Second, cfg.WaitForSelectorTimeout)
	assert.Equal(t, FormatText, cfg.ContentFormat)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "localhost:3000", cfg.Addr())

	// Cache defaults
	assert.Equal(t, 100, cfg.Cache.MaxSize)
	assert.Equal(t, "lru", cfg.Cache.Strategy)
	assert.Equal(t, time.Duration(0), cfg.Cache.TTL)

	// Check HTTP client defaults
	assert.Equal(t, 45*time.Second, cfg.HTTPClientSettings.Timeout)
	assert.Equal(t, 100, cfg.HTTPClientSettings.MaxIdleConns)
	assert.Equal(t, 2, cfg.HTTPClientSettings.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, cfg.HTTPClientSettings.IdleConnTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTPClientSettings.TLSHandshakeTimeout)
	assert.Equal(t, 1*time.Second, cfg.HTTPClientSettings.ExpectContinueTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTPClientSettings.DialerTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientSettings.DialerKeepAlive)
	assert.Equal(t, int64(50*1024*1024), cfg.HTTPClientSettings.MaxPageSizeBytes)

	// Check warnings generated
	assert.True(t, containsWarning(warnings, "max_urls_to_crawl should be > 0"))
	assert.True(t, containsWarning(warnings, "max_concurrency should be > 0"))
}

func TestAppConfig_Validate_ValidConfig(t *testing.T) {
	headless := false
	cfg := AppConfig{
		MaxUrlsToCrawl:         50,
		MaxConcurrency:         4,
		Engine:                 "Static",
		Headless:               &headless,
		NavigationTimeout:      10 * time.Second,
		WaitForSelectorTimeout: 2 * time.Second,
		ContentFormat:          "markdown",
		Host:                   "0.0.0.0",
		Port:                   8080,
		Cache:                  CacheConfig{MaxSize: 20, Strategy: "LFU", TTL: time.Minute},
		HTTPClientSettings: HTTPClientConfig{
			Timeout:      30 * time.Second,
			MaxIdleConns: 50,
		},
	}

	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Empty(t, warnings)

	// Values should be preserved (and normalized)
	assert.Equal(t, 50, cfg.MaxUrlsToCrawl)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, EngineStatic, cfg.Engine)
	assert.False(t, cfg.IsHeadless())
	assert.Equal(t, FormatMarkdown, cfg.ContentFormat)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "lfu", cfg.Cache.Strategy)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientSettings.Timeout)
}

func TestAppConfig_Validate_Warnings(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*AppConfig)
		wantWarning string
		check       func(*testing.T, *AppConfig)
	}{
		{
			name:        "negative navigation_timeout",
			setup:       func(c *AppConfig) { c.NavigationTimeout = -1 * time.Second },
			wantWarning: "navigation_timeout cannot be negative",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, 30*time.Second, c.NavigationTimeout)
			},
		},
		{
			name:        "negative wait_for_selector_timeout",
			setup:       func(c *AppConfig) { c.WaitForSelectorTimeout = -1 * time.Second },
			wantWarning: "wait_for_selector_timeout cannot be negative",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, 1*time.Second, c.WaitForSelectorTimeout)
			},
		},
		{
			name:        "unknown content_format",
			setup:       func(c *AppConfig) { c.ContentFormat = "pdf" },
			wantWarning: "content_format 'pdf' is unknown",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, FormatText, c.ContentFormat)
			},
		},
		{
			name:        "unknown cache strategy",
			setup:       func(c *AppConfig) { c.Cache.Strategy = "mru" },
			wantWarning: "cache.strategy 'mru' is unknown",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, "lru", c.Cache.Strategy)
			},
		},
		{
			name:        "negative cache ttl",
			setup:       func(c *AppConfig) { c.Cache.TTL = -time.Second },
			wantWarning: "cache.ttl cannot be negative",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, time.Duration(0), c.Cache.TTL)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{MaxUrlsToCrawl: 1, MaxConcurrency: 1}
			tt.setup(&cfg)

			warnings, err := cfg.Validate()

			require.NoError(t, err)
			assert.True(t, containsWarning(warnings, tt.wantWarning),
				"expected warning containing %q, got %v", tt.wantWarning, warnings)
			tt.check(t, &cfg)
		})
	}
}

func TestAppConfig_Validate_FatalErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AppConfig
		wantErr string
	}{
		{
			name:    "unknown engine",
			cfg:     AppConfig{Engine: "phantomjs"},
			wantErr: "engine must be",
		},
		{
			name:    "port out of range",
			cfg:     AppConfig{Port: 70000},
			wantErr: "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Validate()

			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrConfigValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAppConfig_Validate_TokenizerEncodingDefault(t *testing.T) {
	cfg := AppConfig{EnableTokenCounting: true}
	_, err := cfg.Validate()

	require.NoError(t, err)
	assert.Equal(t, "cl100k_base", cfg.TokenizerEncoding)
}

// containsWarning checks if any warning contains the substring.
func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
