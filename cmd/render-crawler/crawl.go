package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"render-crawler/pkg/config"
	"render-crawler/pkg/crawler"
	"render-crawler/pkg/models"
	"render-crawler/pkg/render"
	"render-crawler/pkg/storage"
	"render-crawler/pkg/utils"
)

const dbGCInterval = 10 * time.Minute

// crawlFlags holds the crawl subcommand flags; zero values defer to the config file
type crawlFlags struct {
	urls            []string
	match           []string
	exclude         []string
	selector        string
	maxUrls         int
	maxConcurrency  int
	engine          string
	format          string
	output          string
	metadataFile    string
	stateDir        string
	writeVisitedLog bool
}

func newCrawlCmd(root *rootOptions) *cobra.Command {
	flags := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl from seed URLs and print the collected pages as JSON",
		Example: `  render-crawler crawl --url https://example.com/docs/ --match 'https://example.com/docs/**'
  render-crawler crawl --url https://example.com/ --engine static --max-urls 50 --output pages.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), root, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&flags.urls, "url", nil, "Seed URL (repeatable or comma separated)")
	f.StringSliceVar(&flags.match, "match", nil, "Glob pattern a discovered link must match to be followed (empty follows all)")
	f.StringSliceVar(&flags.exclude, "exclude", nil, "Glob pattern that is never followed")
	f.StringVar(&flags.selector, "selector", "", "CSS selector or XPath to wait for; also the content root")
	f.IntVar(&flags.maxUrls, "max-urls", 0, "Maximum number of pages to fetch (default from config)")
	f.IntVar(&flags.maxConcurrency, "max-concurrency", 0, "Maximum number of simultaneous fetches (default from config)")
	f.StringVar(&flags.engine, "engine", "", "Render engine: rod or static (default from config)")
	f.StringVar(&flags.format, "format", "", "Content format: text or markdown (default from config)")
	f.StringVarP(&flags.output, "output", "o", "", "Write the JSON report to this file instead of stdout")
	f.StringVar(&flags.metadataFile, "metadata", "", "Write run metadata as YAML to this file")
	f.StringVar(&flags.stateDir, "state-dir", "", "Directory for the run record store (default from config; empty disables it)")
	f.BoolVar(&flags.writeVisitedLog, "write-visited-log", false, "Write every dispatched URL and its status to the state dir")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

// runCrawl is the testable body of the crawl subcommand
func runCrawl(ctx context.Context, root *rootOptions, flags *crawlFlags, stdout, stderr io.Writer) error {
	log, err := setupLogger(root.logLevel, stderr)
	if err != nil {
		return err
	}

	appCfg, err := loadConfig(root.configFile, log, func(cfg *config.AppConfig) {
		if flags.maxUrls > 0 {
			cfg.MaxUrlsToCrawl = flags.maxUrls
		}
		if flags.maxConcurrency > 0 {
			cfg.MaxConcurrency = flags.maxConcurrency
		}
		if flags.engine != "" {
			cfg.Engine = flags.engine
		}
		if flags.format != "" {
			cfg.ContentFormat = flags.format
		}
		if flags.stateDir != "" {
			cfg.StateDir = flags.stateDir
		}
		if flags.selector != "" {
			cfg.Selector = flags.selector
		}
	})
	if err != nil {
		return err
	}

	crawlCtx, stop := signalContext(ctx)
	defer stop()

	runID := uuid.New().String()
	logEntry := log.WithField("run_id", runID)

	opts := crawler.OptionsFromConfig(appCfg, logEntry)
	opts.URLs = flags.urls
	opts.Match = flags.match
	opts.Exclude = flags.exclude

	var store *storage.BadgerStore
	if appCfg.StateDir != "" {
		store, err = storage.NewBadgerStore(crawlCtx, appCfg.StateDir, runID, logEntry)
		if err != nil {
			return err
		}
		defer store.Close()
		gcCtx, stopGC := context.WithCancel(crawlCtx)
		defer stopGC()
		go store.RunGC(gcCtx, dbGCInterval)
		opts.Store = store
	} else if flags.writeVisitedLog {
		log.Warn("--write-visited-log needs a state dir, skipping")
	}

	startTime := time.Now()
	report, crawlErr := crawler.Crawl(crawlCtx, opts, render.NewLauncher(appCfg, logEntry), logEntry)
	if report == nil {
		return crawlErr
	}

	if err := writeReport(report, flags.output, stdout); err != nil {
		return err
	}
	if flags.metadataFile != "" {
		meta := runMetadata(runID, opts, report, startTime)
		if err := writeMetadata(meta, flags.metadataFile); err != nil {
			log.Errorf("Failed to write run metadata: %v", err)
		} else {
			log.Infof("Run metadata written to %s", flags.metadataFile)
		}
	}
	if store != nil && flags.writeVisitedLog {
		visitedPath := filepath.Join(appCfg.StateDir, fmt.Sprintf("%s-visited.txt", utils.SanitizeFilename(runID)))
		if err := store.WriteVisitedLog(visitedPath); err != nil {
			log.Errorf("Error writing visited log: %v", err)
		}
	}

	switch {
	case crawlErr == nil:
		logEntry.Infof("Crawl completed: %d page(s), %d failure(s)", len(report.Pages), len(report.Failures))
		return nil
	case errors.Is(crawlErr, context.Canceled):
		logEntry.Warn("Crawl cancelled gracefully; partial results written")
		return nil
	default:
		return fmt.Errorf("crawl finished with error: %w", crawlErr)
	}
}

func writeReport(report *crawler.Report, outputPath string, stdout io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal report: %w", utils.ErrParsing, err)
	}
	data = append(data, '\n')

	if outputPath == "" || outputPath == "-" {
		_, err = stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create output dir '%s': %w", utils.ErrFilesystem, dir, err)
		}
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("%w: write report '%s': %w", utils.ErrFilesystem, outputPath, err)
	}
	return nil
}

func runMetadata(runID string, opts crawler.CrawlOptions, report *crawler.Report, startTime time.Time) models.RunMetadata {
	pages := make([]models.PageMetadata, 0, len(report.Pages))
	for _, p := range report.Pages {
		pages = append(pages, models.PageMetadata{
			URL:         p.URL,
			Title:       p.Title,
			ContentHash: utils.CalculateStringSHA256(p.Content),
			TokenCount:  p.TokenCount,
		})
	}
	return models.RunMetadata{
		RunID:     runID,
		Seeds:     opts.URLs,
		Match:     opts.Match,
		Exclude:   opts.Exclude,
		StartTime: startTime,
		EndTime:   time.Now(),
		Stats:     report.Stats,
		Pages:     pages,
	}
}

func writeMetadata(meta models.RunMetadata, path string) error {
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("%w: marshal metadata: %w", utils.ErrParsing, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: write metadata '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

