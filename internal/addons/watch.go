package addons

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"odoogen/internal/logging"
)

// DefaultDebounce is how long an entry must be quiet before it is synced.
const DefaultDebounce = 500 * time.Millisecond

// SyncFunc is told about every re-materialization.
type SyncFunc func(entry string, out *Outcome, err error)

// Watcher re-materializes catalog entries into a project when their
// sources change. fsnotify watches are not recursive, so every directory
// under a watched entry is added, including ones created later.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	m           *Materializer
	catalogRoot string
	destRoot    string
	entries     map[string]struct{}
	pending     map[string]time.Time
	debounce    time.Duration
	onSync      SyncFunc
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	closeOnce   sync.Once
	log         *zap.Logger
}

// NewWatcher creates a watcher for the named entries of catalogRoot.
// onSync may be nil.
func NewWatcher(m *Materializer, catalogRoot string, entries []string, destRoot string, onSync SyncFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e] = struct{}{}
	}
	return &Watcher{
		watcher:     fw,
		m:           m,
		catalogRoot: filepath.Clean(catalogRoot),
		destRoot:    destRoot,
		entries:     set,
		pending:     make(map[string]time.Time),
		debounce:    DefaultDebounce,
		onSync:      onSync,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		log:         logging.Get(logging.CategoryAddons),
	}, nil
}

// SetDebounce changes the quiet period. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Start adds the watches and begins the event loop. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	watched := 0
	for entry := range w.entries {
		n, err := w.addRecursive(filepath.Join(w.catalogRoot, entry))
		if err != nil {
			w.log.Warn("cannot watch entry", zap.String("entry", entry), zap.Error(err))
			continue
		}
		watched += n
	}
	if watched == 0 {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("watch: none of %d entries could be watched", len(w.entries))
	}
	w.log.Info("watching catalog entries", zap.Int("entries", len(w.entries)), zap.Int("dirs", watched))

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the watches.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	w.closeOnce.Do(func() {
		if err := w.watcher.Close(); err != nil {
			w.log.Error("closing watcher", zap.Error(err))
		}
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
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
			w.log.Error("watch error", zap.Error(err))
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	entry, ok := w.entryFor(event.Name)
	if !ok {
		return
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, err := w.addRecursive(event.Name); err != nil {
				w.log.Warn("cannot watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}
	w.log.Debug("catalog change", zap.String("entry", entry), zap.String("path", event.Name),
		zap.Stringer("op", event.Op))

	w.mu.Lock()
	w.pending[entry] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	now := time.Now()
	var ready []string
	w.mu.Lock()
	for entry, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, entry)
			delete(w.pending, entry)
		}
	}
	w.mu.Unlock()

	for _, entry := range ready {
		out, err := w.m.Materialize(filepath.Join(w.catalogRoot, entry), w.destRoot)
		if err != nil {
			w.log.Warn("sync failed", zap.String("entry", entry), zap.Error(err))
		}
		if w.onSync != nil {
			w.onSync(entry, out, err)
		}
	}
}

// entryFor maps a changed path to the watched entry containing it.
func (w *Watcher) entryFor(path string) (string, bool) {
	rel, err := filepath.Rel(w.catalogRoot, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	entry := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	_, ok := w.entries[entry]
	return entry, ok
}

func (w *Watcher) addRecursive(root string) (int, error) {
	added := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		added++
		return nil
	})
	return added, err
}
