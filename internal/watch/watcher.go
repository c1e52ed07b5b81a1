// Package watch reloads a schedule file whenever it changes on disk.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/gantry/internal/event"
	"github.com/Iron-Ham/gantry/internal/logging"
	"github.com/Iron-Ham/gantry/internal/schedule"
)

// DefaultDebounce collapses the burst of events most editors emit for a single save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches one schedule file. The file's directory is watched rather
// than the file itself so that editors which save by renaming a temporary
// file over the original keep being tracked.
type Watcher struct {
	watcher  *fsnotify.Watcher
	fs       afero.Fs
	path     string
	bus      *event.Bus
	logger   *logging.Logger
	debounce time.Duration

	onLoad  func(*schedule.Schedule)
	onError func(error)

	mu       sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Watcher for path. The file must exist. A nil bus or logger
// is replaced with a private bus or a discarding logger.
func New(fs afero.Fs, path string, bus *event.Bus, logger *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving schedule path: %w", err)
	}
	info, err := fs.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("schedule file does not exist: %s", path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("schedule path is a directory: %s", path)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	if bus == nil {
		bus = event.NewBus()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Watcher{
		watcher:  fw,
		fs:       fs,
		path:     abs,
		bus:      bus,
		logger:   logger.WithOperation("watch"),
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// SetLoadCallback sets the function called with every successfully reloaded schedule.
func (w *Watcher) SetLoadCallback(cb func(*schedule.Schedule)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onLoad = cb
}

// SetErrorCallback sets the function called when a reload fails.
func (w *Watcher) SetErrorCallback(cb func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = cb
}

// SetDebounce changes the quiet period before a reload. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d > 0 {
		w.debounce = d
	}
}

// Load reads and decodes the schedule now and publishes a ScheduleLoadedEvent.
func (w *Watcher) Load() (*schedule.Schedule, error) {
	s, err := schedule.LoadFile(w.fs, w.path)
	if err != nil {
		return nil, err
	}
	w.bus.Publish(event.NewScheduleLoadedEvent(w.path, s.Name, s.Len()))
	return s, nil
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) watchLoop() {
	w.mu.RLock()
	debounce := w.debounce
	w.mu.RUnlock()

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	var lastOp fsnotify.Op
	pending := false

	for {
		select {
		case <-w.stopCh:
			debounceTimer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			lastOp = ev.Op
			pending = true
			debounceTimer.Reset(debounce)

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false
			w.reload(lastOp)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) reload(op fsnotify.Op) {
	w.bus.Publish(event.NewScheduleChangedEvent(w.path, op.String()))

	s, err := w.Load()

	w.mu.RLock()
	onLoad, onError := w.onLoad, w.onError
	w.mu.RUnlock()

	if err != nil {
		w.logger.Warn("schedule reload failed", "path", w.path, "error", err.Error())
		if onError != nil {
			onError(err)
		}
		return
	}
	w.logger.Debug("schedule reloaded", "path", w.path, "tasks", s.Len())
	if onLoad != nil {
		onLoad(s)
	}
}
