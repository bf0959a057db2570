// Package render defines the capability the crawler needs from a page renderer
// and provides a headless-browser engine (go-rod) and a plain HTTP engine (goquery).
package render

import (
	"context"
	"strings"
	"time"
)

const (
	// DefaultContentSelector is the content root used when no selector is configured
	DefaultContentSelector = "body"
	// DefaultIgnoreSelector lists page chrome removed before content extraction
	DefaultIgnoreSelector = `script, style, nav, .hidden, .hide, [class*="menu"], .navbar, .nav, .sidebar, .aside, .modal, [class*="sidebar"]`
	// DefaultWaitTimeout bounds WaitReady when the caller passes no timeout
	DefaultWaitTimeout = 1 * time.Second
)

// Engine is the shared fetch resource that creates render sessions
// Implementations must allow concurrent Open calls
type Engine interface {
	// Open navigates a fresh session to pageURL; failures wrap utils.ErrNavigation
	Open(ctx context.Context, pageURL string) (Session, error)
	// Close releases the engine; sessions must not be used afterwards
	Close() error
}

// Session is a handle to one loaded page, owned by exactly one task
type Session interface {
	// URL returns the page URL after redirects
	URL() string
	// WaitReady waits until selectorOrXPath matches an element; an XPath expression starts with "/"
	// Returns an error wrapping utils.ErrTimeout when nothing matches within timeout
	WaitReady(ctx context.Context, selectorOrXPath string, timeout time.Duration) error
	// Links returns the absolute href of every anchor on the page
	Links(ctx context.Context) ([]string, error)
	// Title returns the document title
	Title(ctx context.Context) (string, error)
	// Content returns the text of include (CSS or XPath) with the exclude elements removed
	Content(ctx context.Context, include, exclude string) (string, error)
	Close() error
}

// Launcher creates the Engine for one crawl
type Launcher func(ctx context.Context) (Engine, error)

// IsXPath reports whether a selector is an XPath expression rather than CSS
func IsXPath(selector string) bool {
	return strings.HasPrefix(strings.TrimSpace(selector), "/")
}
