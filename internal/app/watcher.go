package app

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ManualWatcher polls a local manual file and calls back when it is
// replaced, so an open viewer can reload it. Remote manuals are not watched.
type ManualWatcher struct {
	path     string
	modTime  time.Time
	interval time.Duration
	onChange func(path string)

	mu     sync.Mutex
	stopCh chan struct{}
}

// NewManualWatcher returns nil for URLs and files that cannot be stat'ed.
func NewManualWatcher(manual string, interval time.Duration, onChange func(path string)) *ManualWatcher {
	path := strings.TrimPrefix(manual, "file://")
	if strings.Contains(path, "://") {
		return nil
	}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	return &ManualWatcher{path: path, modTime: info.ModTime(), interval: interval, onChange: onChange}
}

// Path returns the watched file.
func (w *ManualWatcher) Path() string { return w.path }

// Start begins polling in a background goroutine.
func (w *ManualWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	go w.loop(w.stopCh)
}

// Stop ends polling. It is safe to call more than once.
func (w *ManualWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *ManualWatcher) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if w.changed() && w.onChange != nil {
				w.onChange(w.path)
			}
		}
	}
}

// changed reports a newer modification time and adopts it as the baseline.
func (w *ManualWatcher) changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !info.ModTime().After(w.modTime) {
		return false
	}
	w.modTime = info.ModTime()
	return true
}
