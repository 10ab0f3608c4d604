package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"virtualcare/internal/logging"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// LintResult is the outcome of re-reading a watched catalog file.
type LintResult struct {
	Path    string
	Catalog *Catalog // nil when Err is set
	Err     error
	At      time.Time
}

// Watcher re-lints a catalog file whenever it changes on disk. Rapid saves
// are debounced into one lint.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	debounceDur time.Duration
	pending     time.Time
	results     chan LintResult
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for one catalog file. The parent directory
// is watched so editors that replace the file on save are still seen.
func NewWatcher(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Watcher{
		watcher:     w,
		path:        abs,
		debounceDur: 200 * time.Millisecond,
		results:     make(chan LintResult, 4),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Results delivers one LintResult per settled change. It is closed when the
// watcher stops.
func (cw *Watcher) Results() <-chan LintResult { return cw.results }

// Start begins watching. It does not block.
func (cw *Watcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	if cw.running {
		cw.mu.Unlock()
		return nil
	}
	cw.running = true
	cw.mu.Unlock()

	if err := cw.watcher.Add(filepath.Dir(cw.path)); err != nil {
		cw.mu.Lock()
		cw.running = false
		cw.mu.Unlock()
		return err
	}
	logging.Get(logging.CategoryCatalog).Info("watching catalog", zap.String("path", cw.path))

	go cw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (cw *Watcher) Stop() {
	cw.mu.Lock()
	if !cw.running {
		cw.mu.Unlock()
		return
	}
	cw.running = false
	cw.mu.Unlock()

	close(cw.stopCh)
	<-cw.doneCh

	if err := cw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryCatalog).Error("closing catalog watcher", zap.Error(err))
	}
}

func (cw *Watcher) run(ctx context.Context) {
	defer close(cw.doneCh)
	defer close(cw.results)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopCh:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleEvent(event)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryCatalog).Warn("catalog watcher error", zap.Error(err))
		case <-ticker.C:
			cw.flush(ctx)
		}
	}
}

func (cw *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != cw.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	cw.mu.Lock()
	cw.pending = time.Now()
	cw.mu.Unlock()
}

func (cw *Watcher) flush(ctx context.Context) {
	cw.mu.Lock()
	if cw.pending.IsZero() || time.Since(cw.pending) < cw.debounceDur {
		cw.mu.Unlock()
		return
	}
	cw.pending = time.Time{}
	cw.mu.Unlock()

	c, err := Load(cw.path)
	res := LintResult{Path: cw.path, Catalog: c, Err: err, At: time.Now()}
	if err != nil {
		logging.Get(logging.CategoryCatalog).Warn("catalog lint failed", zap.String("path", cw.path), zap.Error(err))
	} else {
		logging.Get(logging.CategoryCatalog).Debug("catalog lint ok", zap.Int("questions", c.Len()))
	}

	select {
	case cw.results <- res:
	case <-ctx.Done():
	case <-cw.stopCh:
	}
}
