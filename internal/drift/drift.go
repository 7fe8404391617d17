// Package drift watches the files the toolkit renders and reports
// out-of-band modifications. A change only counts as drift when the
// file's content hash stops matching the last checksum recorded in
// the render journal, so the toolkit's own writes stay silent.
package drift

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"slurmdbdops/internal/fsutil"
	"slurmdbdops/internal/state"
)

// Event reports one watched file whose content settled on a new
// checksum. Expected is empty when the journal has no baseline for
// the file.
type Event struct {
	Path     string    `json:"path"`
	Checksum string    `json:"checksum"`
	Expected string    `json:"expected,omitempty"`
	At       time.Time `json:"at"`
}

// Drifted reports whether the file diverged from a known baseline.
func (e Event) Drifted() bool {
	return e.Expected != "" && e.Checksum != e.Expected
}

// Watcher monitors a fixed set of files for drift.
type Watcher struct {
	fsw      *fsnotify.Watcher
	store    *state.Store
	paths    []string
	watched  map[string]bool
	debounce time.Duration
	log      *slog.Logger

	// dirty maps a path to its last modification instant; a path is
	// processed once it has been stable for the debounce window.
	mu    sync.Mutex
	dirty map[string]time.Time

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a watcher for paths, comparing settled content against
// the render journal in store.
func New(store *state.Store, paths []string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		store:    store,
		debounce: debounce,
		log:      slog.Default(),
		watched:  make(map[string]bool, len(paths)),
		dirty:    make(map[string]time.Time),
		events:   make(chan Event, 16),
		errors:   make(chan error, 4),
		done:     make(chan struct{}),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.paths = append(w.paths, abs)
		w.watched[abs] = true
	}
	return w, nil
}

// Events returns the drift event channel. It closes on Stop.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns the error channel. It closes on Stop.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Start begins watching. The parent directory of each file is
// watched rather than the file itself, so atomic rename-over
// rewrites keep being seen.
func (w *Watcher) Start() error {
	dirs := make(map[string]bool)
	for _, p := range w.paths {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.scanLoop()

	w.log.Info("watching for drift", "paths", w.paths, "debounce", w.debounce)
	return nil
}

// Stop shuts the watcher down and closes both channels.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsw.Close()
}

// eventLoop marks watched files dirty as notifications arrive.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			name := filepath.Clean(ev.Name)
			if !w.watched[name] {
				continue
			}
			w.mu.Lock()
			w.dirty[name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// scanLoop processes files once they have been stable for the
// debounce window.
func (w *Watcher) scanLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				w.check(path, now)
			}
		}
	}
}

// settled removes and returns the dirty paths whose last modification
// is older than the debounce window.
func (w *Watcher) settled(now time.Time) []string {
	threshold := now.Add(-w.debounce)

	w.mu.Lock()
	defer w.mu.Unlock()

	var out []string
	for path, last := range w.dirty {
		if last.Before(threshold) {
			out = append(out, path)
			delete(w.dirty, path)
		}
	}
	return out
}

// check hashes one settled file and emits an event when its content
// no longer matches the journal baseline.
func (w *Watcher) check(path string, now time.Time) {
	sum, err := fsutil.Checksum(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A removed managed file is drift too.
			sum = ""
		} else {
			select {
			case w.errors <- err:
			default:
			}
			return
		}
	}

	last, err := w.store.LastRender(path)
	if err != nil {
		select {
		case w.errors <- err:
		default:
		}
		return
	}

	expected := ""
	if last != nil {
		expected = last.Checksum
	}
	if expected != "" && sum == expected {
		w.log.Debug("watched file matches baseline", "path", path)
		return
	}

	ev := Event{Path: path, Checksum: sum, Expected: expected, At: now}
	select {
	case w.events <- ev:
	default:
		// Channel full; the next modification re-arms the path.
	}
}
