package crawler

import (
	"github.com/sirupsen/logrus"

	"render-crawler/pkg/config"
	"render-crawler/pkg/process"
)

// OptionsFromConfig returns CrawlOptions carrying the configured limits, selectors and tokenizer
// Seeds, patterns and the run store are left for the caller
func OptionsFromConfig(cfg *config.AppConfig, log *logrus.Entry) CrawlOptions {
	opts := CrawlOptions{
		Selector:               cfg.Selector,
		ContentSelector:        cfg.ContentSelector,
		IgnoreSelector:         cfg.IgnoreSelector,
		WaitForSelectorTimeout: cfg.WaitForSelectorTimeout,
		MaxUrlsToCrawl:         cfg.MaxUrlsToCrawl,
		MaxConcurrency:         cfg.MaxConcurrency,
	}
	// Navigation plus one selector wait is the longest a healthy task should take
	if cfg.NavigationTimeout > 0 {
		opts.TaskTimeout = 2*cfg.NavigationTimeout + cfg.WaitForSelectorTimeout
	}

	if cfg.EnableTokenCounting {
		counter, err := process.NewTokenCounter(cfg.TokenizerEncoding)
		if err != nil {
			log.Warnf("Failed to initialize tokenizer with encoding '%s': %v. Token counting disabled.", cfg.TokenizerEncoding, err)
		} else {
			opts.Tokens = counter
			log.Infof("Token counting enabled with encoding: %s", cfg.TokenizerEncoding)
		}
	}
	return opts
}
