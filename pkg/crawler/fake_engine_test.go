package crawler

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"render-crawler/pkg/render"
	"render-crawler/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// fakeEngine serves an in-memory link graph and records how it is used
type fakeEngine struct {
	links     map[string][]string // page URL -> hrefs on the page
	failOpen  map[string]bool     // pages whose Open fails with a navigation error
	notReady  map[string]bool     // pages whose WaitReady times out
	openDelay time.Duration

	mu     sync.Mutex
	opened []string

	active         atomic.Int32
	maxActive      atomic.Int32
	sessionsClosed atomic.Int32
	closed         atomic.Int32
}

func newFakeEngine(links map[string][]string) *fakeEngine {
	return &fakeEngine{
		links:    links,
		failOpen: map[string]bool{},
		notReady: map[string]bool{},
	}
}

func (e *fakeEngine) Open(ctx context.Context, pageURL string) (render.Session, error) {
	e.mu.Lock()
	e.opened = append(e.opened, pageURL)
	e.mu.Unlock()

	if e.failOpen[pageURL] {
		return nil, fmt.Errorf("%w: net::ERR_NAME_NOT_RESOLVED at '%s'", utils.ErrNavigation, pageURL)
	}

	n := e.active.Add(1)
	for {
		peak := e.maxActive.Load()
		if n <= peak || e.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}
	if e.openDelay > 0 {
		time.Sleep(e.openDelay)
	}
	return &fakeSession{engine: e, url: pageURL}, nil
}

func (e *fakeEngine) Close() error {
	e.closed.Add(1)
	return nil
}

func (e *fakeEngine) launcher() render.Launcher {
	return func(ctx context.Context) (render.Engine, error) { return e, nil }
}

func (e *fakeEngine) Opened() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.opened...)
}

func (e *fakeEngine) openCount(pageURL string) int {
	count := 0
	for _, u := range e.Opened() {
		if u == pageURL {
			count++
		}
	}
	return count
}

type fakeSession struct {
	engine *fakeEngine
	url    string
	closed atomic.Bool
}

func (s *fakeSession) URL() string { return s.url }

func (s *fakeSession) WaitReady(ctx context.Context, selectorOrXPath string, timeout time.Duration) error {
	if s.engine.notReady[s.url] {
		return fmt.Errorf("%w: '%s' after %v", utils.ErrTimeout, selectorOrXPath, timeout)
	}
	return nil
}

func (s *fakeSession) Links(ctx context.Context) ([]string, error) {
	return s.engine.links[s.url], nil
}

func (s *fakeSession) Title(ctx context.Context) (string, error) {
	return "Title of " + s.url, nil
}

func (s *fakeSession) Content(ctx context.Context, include, exclude string) (string, error) {
	return fmt.Sprintf("content of %s [%s]", s.url, include), nil
}

func (s *fakeSession) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.engine.active.Add(-1)
		s.engine.sessionsClosed.Add(1)
	}
	return nil
}

// followLinks is the minimal handler: push every link on the page
func followLinks(ctx context.Context, s render.Session, pageURL string, push PushFunc) error {
	links, err := s.Links(ctx)
	if err != nil {
		return err
	}
	push(links...)
	return nil
}
