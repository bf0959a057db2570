package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"render-crawler/pkg/detect"
	"render-crawler/pkg/utils"
)

// RodOptions configures the headless browser engine
type RodOptions struct {
	Headless          bool
	Bin               string        // Browser executable; empty lets rod locate or download one
	UserAgent         string        // Overrides the browser default when set
	NavigationTimeout time.Duration // Bounds Navigate + WaitLoad per page
	Format            string        // Content format: text or markdown
}

// RodEngine renders pages in a shared headless Chrome; each session is its own tab
type RodEngine struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opts     RodOptions
	extract  Extractor
	log      *logrus.Entry
}

// RodLauncher returns a Launcher that starts a browser when first acquired
func RodLauncher(opts RodOptions, log *logrus.Entry) Launcher {
	return func(ctx context.Context) (Engine, error) {
		return NewRodEngine(ctx, opts, log)
	}
}

// NewRodEngine launches a browser and connects to it
func NewRodEngine(ctx context.Context, opts RodOptions, log *logrus.Entry) (*RodEngine, error) {
	engineLog := log.WithField("engine", "rod")

	l := launcher.New().Context(ctx).Headless(opts.Headless)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	engineLog.Debugf("Browser started: %s", controlURL)

	return &RodEngine{
		browser:  browser,
		launcher: l,
		opts:     opts,
		extract:  Extractor{Format: opts.Format, Detector: detect.NewDetector(engineLog)},
		log:      engineLog,
	}, nil
}

// Open creates a tab and navigates it to pageURL
func (e *RodEngine) Open(ctx context.Context, pageURL string) (Session, error) {
	page, err := e.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: creating page for '%s': %w", utils.ErrNavigation, pageURL, err)
	}
	page = page.Context(ctx)

	if e.opts.UserAgent != "" {
		if uaErr := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: e.opts.UserAgent}); uaErr != nil {
			e.log.Warnf("Failed to set user agent: %v", uaErr)
		}
	}

	nav := page
	if e.opts.NavigationTimeout > 0 {
		nav = page.Timeout(e.opts.NavigationTimeout)
	}
	if err := nav.Navigate(pageURL); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("%w: navigating to '%s': %w", utils.ErrNavigation, pageURL, err)
	}
	if err := nav.WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("%w: waiting for load of '%s': %w", utils.ErrNavigation, pageURL, err)
	}

	finalURL := pageURL
	if info, infoErr := page.Info(); infoErr == nil && info.URL != "" {
		finalURL = info.URL
	}

	return &rodSession{
		page:    page,
		url:     finalURL,
		extract: e.extract,
		log:     e.log.WithField("url", pageURL),
	}, nil
}

// Close shuts the browser down and removes its profile directory
func (e *RodEngine) Close() error {
	err := e.browser.Close()
	e.launcher.Kill()
	e.launcher.Cleanup()
	return err
}

type rodSession struct {
	page    *rod.Page
	url     string
	extract Extractor
	log     *logrus.Entry
}

func (s *rodSession) URL() string { return s.url }

// WaitReady polls for the element until timeout
func (s *rodSession) WaitReady(ctx context.Context, selectorOrXPath string, timeout time.Duration) error {
	if selectorOrXPath == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	page := s.page.Context(ctx).Timeout(timeout)
	var err error
	if IsXPath(selectorOrXPath) {
		_, err = page.ElementX(selectorOrXPath)
	} else {
		_, err = page.Element(selectorOrXPath)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: '%s' not found on '%s' within %v", utils.ErrTimeout, selectorOrXPath, s.url, timeout)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: waiting for '%s' on '%s': %w", utils.ErrTimeout, selectorOrXPath, s.url, err)
}

func (s *rodSession) Links(ctx context.Context) ([]string, error) {
	res, err := s.page.Context(ctx).Eval(`() => Array.from(document.querySelectorAll('a[href]'), a => a.href)`)
	if err != nil {
		return nil, fmt.Errorf("%w: reading links of '%s': %w", utils.ErrExtraction, s.url, err)
	}
	values := res.Value.Arr()
	links := make([]string, 0, len(values))
	for _, v := range values {
		if href := v.Str(); href != "" {
			links = append(links, href)
		}
	}
	return links, nil
}

func (s *rodSession) Title(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.title`)
	if err != nil {
		return "", fmt.Errorf("%w: reading title of '%s': %w", utils.ErrExtraction, s.url, err)
	}
	return res.Value.Str(), nil
}

// Content snapshots the rendered DOM and extracts from the snapshot
func (s *rodSession) Content(ctx context.Context, include, exclude string) (string, error) {
	rendered, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("%w: reading HTML of '%s': %w", utils.ErrExtraction, s.url, err)
	}
	return s.extract.Extract(rendered, s.url, include, exclude)
}

func (s *rodSession) Close() error {
	return s.page.Close()
}
