package render

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"render-crawler/pkg/detect"
	"render-crawler/pkg/fetch"
	"render-crawler/pkg/utils"
)

// StaticEngine renders pages from their raw HTML; no JavaScript is executed
type StaticEngine struct {
	fetcher *fetch.Fetcher
	extract Extractor
	log     *logrus.Entry
}

// NewStaticEngine creates an engine that downloads pages with fetcher
func NewStaticEngine(fetcher *fetch.Fetcher, format string, log *logrus.Entry) *StaticEngine {
	engineLog := log.WithField("engine", "static")
	return &StaticEngine{
		fetcher: fetcher,
		extract: Extractor{Format: format, Detector: detect.NewDetector(engineLog)},
		log:     engineLog,
	}
}

// StaticLauncher returns a Launcher producing a StaticEngine
func StaticLauncher(fetcher *fetch.Fetcher, format string, log *logrus.Entry) Launcher {
	return func(ctx context.Context) (Engine, error) {
		return NewStaticEngine(fetcher, format, log), nil
	}
}

// Open fetches pageURL and parses it into a session
func (e *StaticEngine) Open(ctx context.Context, pageURL string) (Session, error) {
	res, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML of '%s': %w", utils.ErrParsing, pageURL, err)
	}

	return &staticSession{
		url:     res.FinalURL.String(),
		base:    res.FinalURL,
		raw:     string(res.Body),
		root:    root,
		doc:     goquery.NewDocumentFromNode(root),
		extract: e.extract,
		log:     e.log.WithField("url", pageURL),
	}, nil
}

// Close is a no-op; the HTTP client is owned by the caller
func (e *StaticEngine) Close() error {
	return nil
}

type staticSession struct {
	url     string
	base    *url.URL
	raw     string
	root    *html.Node
	doc     *goquery.Document
	extract Extractor
	log     *logrus.Entry
}

func (s *staticSession) URL() string { return s.url }

// WaitReady checks the parsed document once; without scripts nothing can appear later
func (s *staticSession) WaitReady(ctx context.Context, selectorOrXPath string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if selectorOrXPath == "" {
		return nil
	}

	if IsXPath(selectorOrXPath) {
		node, err := htmlquery.Query(s.root, selectorOrXPath)
		if err != nil {
			return fmt.Errorf("%w: xpath '%s': %w", utils.ErrInvalidPattern, selectorOrXPath, err)
		}
		if node == nil {
			return fmt.Errorf("%w: xpath '%s' not found on '%s'", utils.ErrTimeout, selectorOrXPath, s.url)
		}
		return nil
	}

	if s.doc.Find(selectorOrXPath).Length() == 0 {
		return fmt.Errorf("%w: selector '%s' not found on '%s'", utils.ErrTimeout, selectorOrXPath, s.url)
	}
	return nil
}

func (s *staticSession) Links(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return documentLinks(s.doc, s.base), nil
}

func (s *staticSession) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return documentTitle(s.doc), nil
}

// Content re-parses the raw HTML so element removal never affects later calls
func (s *staticSession) Content(ctx context.Context, include, exclude string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.extract.Extract(s.raw, s.url, include, exclude)
}

func (s *staticSession) Close() error {
	s.log.Trace("Session closed")
	return nil
}
