package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"render-crawler/pkg/config"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.AppConfig{
		MaxUrlsToCrawl:         25,
		MaxConcurrency:         4,
		Selector:               "#app",
		IgnoreSelector:         "footer",
		NavigationTimeout:      10 * time.Second,
		WaitForSelectorTimeout: 2 * time.Second,
	}

	opts := OptionsFromConfig(cfg, testLogger())
	assert.Equal(t, 25, opts.MaxUrlsToCrawl)
	assert.Equal(t, 4, opts.MaxConcurrency)
	assert.Equal(t, "#app", opts.Selector)
	assert.Equal(t, "footer", opts.IgnoreSelector)
	assert.Equal(t, 2*time.Second, opts.WaitForSelectorTimeout)
	assert.Equal(t, 22*time.Second, opts.TaskTimeout)
	assert.Nil(t, opts.Tokens)
	assert.Empty(t, opts.URLs)
}

func TestOptionsFromConfig_Tokenizer(t *testing.T) {
	cfg := &config.AppConfig{EnableTokenCounting: true, TokenizerEncoding: "cl100k_base"}
	assert.NotNil(t, OptionsFromConfig(cfg, testLogger()).Tokens)

	cfg.TokenizerEncoding = "no_such_encoding"
	assert.Nil(t, OptionsFromConfig(cfg, testLogger()).Tokens)
}
