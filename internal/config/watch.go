package config

import (
	"os"
	"sync"
	"time"
)

// FileWatcher polls file modification times and calls onChange once per
// scan in which any watched file appeared, changed or disappeared.
type FileWatcher struct {
	Paths    []string
	Interval time.Duration
	onChange func(changed []string)

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	last     map[string]time.Time // zero time: file absent
}

// NewFileWatcher creates a watcher for given paths and interval.
func NewFileWatcher(paths []string, interval time.Duration, onChange func([]string)) *FileWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &FileWatcher{
		Paths:    paths,
		Interval: interval,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		last:     make(map[string]time.Time),
	}
}

// Start primes the mtime cache and begins polling in a goroutine.
func (w *FileWatcher) Start() {
	w.scan()
	ticker := time.NewTicker(w.Interval)
	go func() {
		defer close(w.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if changed := w.scan(); len(changed) > 0 && w.onChange != nil {
					w.onChange(changed)
				}
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the watcher and waits for the polling goroutine.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
}

func (w *FileWatcher) scan() []string {
	var changed []string
	for _, p := range w.Paths {
		var mt time.Time
		if fi, err := os.Stat(p); err == nil {
			mt = fi.ModTime()
		}
		last, seen := w.last[p]
		w.last[p] = mt
		if seen && !mt.Equal(last) {
			changed = append(changed, p)
		}
	}
	return changed
}
