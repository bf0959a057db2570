package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"render-crawler/pkg/utils"
)

// Lifecycle owns the Engine of one crawl: launched lazily on first Acquire, closed exactly once by Release
type Lifecycle struct {
	launch Launcher
	log    *logrus.Entry

	mu        sync.Mutex
	engine    Engine
	launchErr error
	released  bool

	releaseOnce sync.Once
	releaseErr  error
}

// NewLifecycle wraps launch; nothing is started until Acquire
func NewLifecycle(launch Launcher, log *logrus.Entry) *Lifecycle {
	return &Lifecycle{
		launch: launch,
		log:    log.WithField("component", "engine_lifecycle"),
	}
}

// Acquire returns the engine, launching it on the first call
// A failed launch is remembered and returned to later callers without relaunching
// After Release, Acquire fails with utils.ErrEngineClosed
func (l *Lifecycle) Acquire(ctx context.Context) (Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil, utils.ErrEngineClosed
	}
	if l.engine != nil {
		return l.engine, nil
	}
	if l.launchErr != nil {
		return nil, l.launchErr
	}

	l.log.Debug("Launching render engine")
	engine, err := l.launch(ctx)
	if err != nil {
		l.launchErr = fmt.Errorf("%w: %w", utils.ErrEngineLaunch, err)
		return nil, l.launchErr
	}
	if engine == nil {
		l.launchErr = fmt.Errorf("%w: launcher returned no engine", utils.ErrEngineLaunch)
		return nil, l.launchErr
	}
	l.engine = engine
	l.log.Info("Render engine launched")
	return engine, nil
}

// Release closes the engine if it was launched; only the first call has any effect
func (l *Lifecycle) Release() error {
	l.releaseOnce.Do(func() {
		l.mu.Lock()
		engine := l.engine
		l.engine = nil
		l.released = true
		l.mu.Unlock()

		if engine == nil {
			l.log.Debug("Release called before any engine was launched")
			return
		}
		if err := engine.Close(); err != nil {
			l.releaseErr = fmt.Errorf("closing render engine: %w", err)
			l.log.Warnf("Error closing render engine: %v", err)
			return
		}
		l.log.Info("Render engine released")
	})
	return l.releaseErr
}

// Released reports whether Release has run
func (l *Lifecycle) Released() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}
