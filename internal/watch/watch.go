// Package watch follows a document file on disk and reports new contents.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nsouzaco/code-assistant/internal/logging"
)

const debounceDelay = 100 * time.Millisecond

// Watcher calls back with the file's contents after it changes on disk.
// The parent directory is watched so editors that save by rename are seen.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(content string)
	delay    time.Duration

	mu    sync.Mutex
	timer *time.Timer
	last  string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts watching path. onChange runs on the watcher's goroutine and is
// not called for contents equal to the last seen or Mark'ed contents.
func New(path string, onChange func(content string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     abs,
		watcher:  fw,
		onChange: onChange,
		delay:    debounceDelay,
		ctx:      ctx,
		cancel:   cancel,
	}
	if data, err := os.ReadFile(abs); err == nil {
		w.last = string(data)
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Mark records content as already seen, e.g. after the session saved it.
func (w *Watcher) Mark(content string) {
	w.mu.Lock()
	w.last = content
	w.mu.Unlock()
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.cancel()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	log := logging.Component("watch")

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", w.path).Msg("watch error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.reload)
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		// mid-rename; the Create that follows reschedules
		return
	}
	content := string(data)

	w.mu.Lock()
	if content == w.last {
		w.mu.Unlock()
		return
	}
	w.last = content
	w.mu.Unlock()

	logger := logging.Component("watch")
	logger.Debug().Str("path", w.path).Int("bytes", len(data)).Msg("document changed on disk")
	w.onChange(content)
}
