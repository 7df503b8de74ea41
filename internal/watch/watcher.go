// Package watch keeps a configured toast scale applied across Steam
// client updates. Steam replaces the whole steamui bundle on update,
// silently reverting any patched values; the watcher notices the target
// files changing, waits for the writes to settle, and re-applies the
// scale when the targets no longer express it.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/serious-angel/steam-client-custom-toasts/internal/config"
	"github.com/serious-angel/steam-client-custom-toasts/internal/logging"
	"github.com/serious-angel/steam-client-custom-toasts/internal/scaler"
)

// Watcher monitors both patch targets and re-applies the configured
// factor after they change. Events are debounced: a Steam update writes
// the bundle in many bursts, and patching a half-written file would only
// fail anchor validation.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	scaler      *scaler.Scaler
	cfg         *config.Config
	factor      float64
	reload      bool
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Stats tracks watcher activity for the status output and for tests.
type Stats struct {
	EventsSeen    int
	Reapplied     int
	Skipped       int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// New creates a watcher that keeps factor applied to the targets named
// by cfg. With reload set, every re-apply also restarts the client's
// shared JS context.
func New(cfg *config.Config, s *scaler.Scaler, factor float64, reload bool) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		scaler:      s,
		cfg:         cfg,
		factor:      factor,
		reload:      reload,
		debounceMap: make(map[string]time.Time),
		debounceDur: 2 * time.Second, // bundle writes come in bursts
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the directories holding both targets. It is
// non-blocking; Stop waits for the event loop to drain.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// fsnotify watches directories; updates replace the files inside
	// them, so watching the files directly would drop on first rename.
	dirs := []string{
		filepath.Dir(w.cfg.ScriptPath()),
		filepath.Dir(w.cfg.StylesheetPath()),
	}
	seen := make(map[string]bool)
	for _, dir := range dirs {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := w.watcher.Add(dir); err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return err
		}
		logging.Watch("Watching directory: %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("Error closing watcher: %v", err)
	}
	logging.Watch("Watcher stopped")
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats returns a snapshot of the watcher counters.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// CheckNow runs one immediate check-and-reapply pass, outside of any
// event debounce. Used for the initial sync at startup and by the
// periodic audit, which catches changes fsnotify never reported.
func (w *Watcher) CheckNow(ctx context.Context) {
	at, err := w.scaler.AtFactor(w.factor)
	if err != nil {
		logging.Get(logging.CategoryWatch).Error("Target check failed: %v", err)
		w.countError()
		return
	}
	if at {
		logging.WatchDebug("Targets already at factor %v", w.factor)
		w.mu.Lock()
		w.stats.Skipped++
		w.mu.Unlock()
		return
	}

	logging.Watch("Targets diverged from factor %v, re-applying", w.factor)
	res, err := w.scaler.Apply(ctx, w.factor, w.reload)
	if err != nil {
		logging.Get(logging.CategoryWatch).Error("Re-apply failed: %v", err)
		w.countError()
		if res == nil {
			return
		}
		// Patch landed, only the reload failed; still count the apply.
	}
	w.mu.Lock()
	w.stats.Reapplied++
	w.mu.Unlock()
	logging.Watch("Re-applied: width %d, heights %d/%d", res.Width, res.HeightCompact, res.HeightExpanded)
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(250 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("Context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("Watcher error: %v", err)
			w.countError()

		case <-debounceTicker.C:
			w.processSettled(ctx)
		}
	}
}

// handleEvent records an event against a target for later processing.
// Everything else in the watched directories is noise.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Name != w.cfg.ScriptPath() && event.Name != w.cfg.StylesheetPath() {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.WatchDebug("%s changed (%s)", event.Name, event.Op)

	w.mu.Lock()
	w.stats.EventsSeen++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processSettled re-applies once when every recorded event has settled
// past the debounce window. Both targets belong to one bundle revision,
// so a single pass covers however many of them changed.
func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	settled := false
	pending := false
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			delete(w.debounceMap, path)
			settled = true
		} else {
			pending = true
		}
	}
	w.mu.Unlock()

	// Wait until the whole burst is quiet, not just one file of it.
	if !settled || pending {
		return
	}
	w.CheckNow(ctx)
}

func (w *Watcher) countError() {
	w.mu.Lock()
	w.stats.Errors++
	w.mu.Unlock()
}
