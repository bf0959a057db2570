package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"render-crawler/pkg/config"
)

// rootOptions holds the flags shared by every subcommand
type rootOptions struct {
	configFile string
	logLevel   string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "render-crawler",
		Short: "Bounded-concurrency crawler that renders pages and extracts their text",
		Long: `render-crawler crawls from seed URLs, follows the links that match the given
glob patterns and returns the title and text of every page it fetched.

Pages are rendered in a headless browser (engine: rod) or fetched over plain
HTTP (engine: static). The crawl can also be served over HTTP or MCP.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "config.yaml", "Path to YAML config file (optional)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "loglevel", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newCrawlCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMcpServerCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger builds the process logger. Logs always go to out so stdout stays free for results
func setupLogger(logLevelStr string, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", logLevelStr, err)
	}
	log.SetLevel(level)
	return log, nil
}

// loadConfig loads the config file and applies configure before validation,
// so flag overrides are validated and defaulted like file values
func loadConfig(path string, log *logrus.Logger, configure func(cfg *config.AppConfig)) (*config.AppConfig, error) {
	appCfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if configure != nil {
		configure(appCfg)
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, err
	}
	logAppConfig(appCfg, log)
	return appCfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Config: Engine:%s, Headless:%t, Format:%s, MaxUrls:%d, MaxConcurrency:%d",
		appCfg.Engine, appCfg.IsHeadless(), appCfg.ContentFormat, appCfg.MaxUrlsToCrawl, appCfg.MaxConcurrency)
	log.Infof("Config Timeouts: Navigation:%v, WaitForSelector:%v",
		appCfg.NavigationTimeout, appCfg.WaitForSelectorTimeout)
	log.Debugf("Config Selectors: Ready:'%s', Content:'%s', Ignore:'%s'",
		appCfg.Selector, appCfg.ContentSelector, appCfg.IgnoreSelector)
	log.Debugf("Config HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, MaxPageSize:%d bytes",
		appCfg.HTTPClientSettings.Timeout, appCfg.HTTPClientSettings.MaxIdleConns,
		appCfg.HTTPClientSettings.MaxIdleConnsPerHost, appCfg.HTTPClientSettings.MaxPageSizeBytes)
}
