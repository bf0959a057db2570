package render

import (
	"github.com/sirupsen/logrus"

	"render-crawler/pkg/config"
	"render-crawler/pkg/fetch"
)

// NewLauncher selects the engine named by cfg.Engine; cfg is expected to be validated
func NewLauncher(cfg *config.AppConfig, log *logrus.Entry) Launcher {
	if cfg.Engine == config.EngineStatic {
		client := fetch.NewClient(cfg.HTTPClientSettings, log)
		fetcher := fetch.NewFetcher(client, cfg.UserAgent, cfg.HTTPClientSettings.MaxPageSizeBytes, log)
		return StaticLauncher(fetcher, cfg.ContentFormat, log)
	}
	return RodLauncher(RodOptions{
		Headless:          cfg.IsHeadless(),
		Bin:               cfg.BrowserBin,
		UserAgent:         cfg.UserAgent,
		NavigationTimeout: cfg.NavigationTimeout,
		Format:            cfg.ContentFormat,
	}, log)
}
