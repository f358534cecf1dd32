package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the Manager whenever its file changes on disk
type Watcher struct {
	mgr       *Manager
	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	stopOnce  sync.Once

	timerMu sync.Mutex
	timer   *time.Timer
}

// Watch starts watching the config file. The directory is watched rather than
// the file so that atomic rename-over writes are seen.
func (m *Manager) Watch() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(m.GetConfigDir()); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		mgr:       m,
		fsWatcher: fsWatcher,
		done:      make(chan struct{}),
	}
	go w.processEvents()
	return w, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()
		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()
	})
}

func (w *Watcher) processEvents() {
	log := logger.WithComponent("config-watcher")
	target := filepath.Clean(w.mgr.GetConfigPath())

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		log := logger.WithComponent("config-watcher")
		if err := w.mgr.Reload(); err != nil {
			log.Warn().Err(err).Msg("Config reload failed, keeping previous config")
			return
		}
		log.Info().Str("path", w.mgr.GetConfigPath()).Msg("Config reloaded")
	})
}
