package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher reloads the configuration file when it changes on disk and hands
// the parsed result to a callback. Editors replace files through rename and
// chmod dances, so events are debounced before reloading.
type Watcher struct {
	path     string
	onChange func(*Config)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	lastLoad time.Time
	running bool
}

// NewWatcher builds a watcher for path. onChange receives each successfully
// reloaded configuration; parse failures keep the previous one.
func NewWatcher(path string, onChange func(*Config)) *Watcher {
	return &Watcher{path: path, onChange: onChange}
}

// Start begins watching in a goroutine. Calling Start twice is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory, not the file: file replacement breaks a direct
	// file watch.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}
	w.watcher = fsw
	w.stopCh = make(chan struct{})
	w.running = true
	go w.loop()
	return nil
}

// Stop ends watching. Safe to call on a never-started watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopCh)
	_ = w.watcher.Close()
	w.running = false
}

func (w *Watcher) loop() {
	const debounce = 500 * time.Millisecond
	base := filepath.Base(w.path)
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			recent := time.Since(w.lastLoad) < debounce
			if !recent {
				w.lastLoad = time.Now()
			}
			w.mu.Unlock()
			if recent {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("config watcher: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Warnf("config reload failed, keeping previous: %v", err)
		return
	}
	log.Infof("config reloaded from %s", w.path)
	w.onChange(cfg)
}
