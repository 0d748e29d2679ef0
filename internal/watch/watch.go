// Package watch reports changes to scenario and interpolator script files.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ivlev/timeline/internal/scenario"
)

// DefaultDebounce drops repeated events for one file within this window.
const DefaultDebounce = 100 * time.Millisecond

type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	dirs     map[string]bool
	debounce time.Duration
	Events   chan string
	Errors   chan error
	closeCh  chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewWatcher watches each path. Directories report every scenario or script
// file in them; files report only themselves. Files are watched through their
// directory so that editors which replace files on save are seen.
func NewWatcher(debounce time.Duration, paths ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	added := make(map[string]bool)
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		dir := filepath.Clean(path)
		if fi.IsDir() {
			dirs[dir] = true
		} else {
			files[dir] = true
			dir = filepath.Dir(dir)
		}
		if added[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
		added[dir] = true
	}

	watcher := &Watcher{
		watcher:  w,
		files:    files,
		dirs:     dirs,
		debounce: debounce,
		Events:   make(chan string, 16),
		Errors:   make(chan error, 1),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher and closes Events and Errors.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer func() {
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !w.wants(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < w.debounce {
				continue
			}
			last[event.Name] = now
			select {
			case w.Events <- event.Name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.closeCh:
				return
			}
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) wants(path string) bool {
	path = filepath.Clean(path)
	if w.files[path] {
		return true
	}
	return w.dirs[filepath.Dir(path)] && (scenario.IsScenarioFile(path) || isScriptFile(path))
}

func isScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".tengo"
}
