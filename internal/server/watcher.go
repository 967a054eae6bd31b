package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/livetemplate/chapterdeck/internal/logging"
)

// Watcher watches for file changes and triggers reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	rootDir  string
	onReload func(path string) error
	done     chan struct{}
	logger   *zap.Logger

	dirs map[string]bool // watched directories, touched only by the event loop after start
}

// NewWatcher creates a new file watcher for the given directory. onReload
// receives the absolute path of every changed Markdown file.
func NewWatcher(rootDir string, onReload func(string) error, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		rootDir:  rootDir,
		onReload: onReload,
		done:     make(chan struct{}),
		logger:   logging.OrNop(logger),
		dirs:     make(map[string]bool),
	}

	if err := w.addDirectoryRecursive(rootDir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// addDirectoryRecursive adds a directory and all its subdirectories to the watcher.
func (w *Watcher) addDirectoryRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip hidden dirs like .git
			if path != dir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}

			if err := w.watcher.Add(path); err != nil {
				return err
			}
			w.dirs[path] = true

			w.logger.Debug("watching directory", zap.String("path", path))
		}

		return nil
	})
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handle(event)

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", zap.Error(err))

			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New directories need their own watch.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirectoryRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
				return
			}
			// A directory moved in already holds its articles.
			w.reload(event)
			return
		}
	}

	// A removed directory takes its articles with it but reports only itself.
	if w.dirs[event.Name] && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
		w.forgetDirectory(event.Name)
		w.reload(event)
		return
	}

	if filepath.Ext(event.Name) != ".md" {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.reload(event)
}

func (w *Watcher) reload(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.rootDir, event.Name)
	if err != nil {
		relPath = event.Name
	}
	w.logger.Debug("file changed", zap.String("path", relPath), zap.String("op", event.Op.String()))

	if err := w.onReload(event.Name); err != nil {
		w.logger.Error("reload failed", zap.String("path", relPath), zap.Error(err))
	}
}

// forgetDirectory drops dir and everything below it from the watched set.
// fsnotify already removed the watches themselves.
func (w *Watcher) forgetDirectory(dir string) {
	prefix := dir + string(filepath.Separator)
	for path := range w.dirs {
		if path == dir || strings.HasPrefix(path, prefix) {
			delete(w.dirs, path)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
