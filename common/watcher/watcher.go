package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/platform-mesh/golang-commons/logger"
)

// FileEventHandler handles file system events
type FileEventHandler interface {
	OnFileChanged(filepath string)
	OnFileDeleted(filepath string)
}

// FileWatcher reports changes of a set of files and directories, coalescing bursts of events.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	handler FileEventHandler
	log     *logger.Logger

	files []string
	dirs  []string

	mu      sync.Mutex
	pending map[string]fsnotify.Op
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(handler FileEventHandler, log *logger.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		handler: handler,
		log:     log,
		pending: map[string]fsnotify.Op{},
	}, nil
}

// Watch blocks until ctx is done, reporting changes below paths once no event arrived for
// debounce. Empty paths are ignored. With nothing to watch it waits for ctx.
func (w *FileWatcher) Watch(ctx context.Context, paths []string, debounce time.Duration) error {
	defer w.watcher.Close()

	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := w.add(p); err != nil {
			return err
		}
	}

	if len(w.files) == 0 && len(w.dirs) == 0 {
		w.log.Info().Msg("no paths to watch, waiting for graceful termination")
		<-ctx.Done()
		return nil
	}

	w.log.Info().Strs("files", w.files).Strs("dirs", w.dirs).Msg("started watching")
	return w.loop(ctx, debounce)
}

func (w *FileWatcher) add(path string) error {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		if err := w.addRecursively(path); err != nil {
			return err
		}
		w.dirs = append(w.dirs, path)
		return nil
	}

	// Editors replace files on save, so the parent directory is watched instead of the file.
	dir := filepath.Dir(path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	w.files = append(w.files, path)
	return nil
}

func (w *FileWatcher) addRecursively(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to add watch path %s: %w", path, err)
		}
		return nil
	})
}

func (w *FileWatcher) loop(ctx context.Context, debounce time.Duration) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping file watcher gracefully")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("file watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug().Str("event", event.String()).Msg("file event")

			if event.Op&fsnotify.Create != 0 && w.underDir(event.Name) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursively(event.Name); err != nil {
						w.log.Error().Err(err).Str("path", event.Name).Msg("failed to add directory to watcher")
					}
				}
			}

			w.mu.Lock()
			w.pending[filepath.Clean(event.Name)] |= event.Op
			w.mu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, w.flush)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("file watcher errors channel closed")
			}
			w.log.Error().Err(err).Msg("file watcher error")
		}
	}
}

// flush reports every pending path once, in path order.
func (w *FileWatcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = map[string]fsnotify.Op{}
	w.mu.Unlock()

	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err != nil:
			w.handler.OnFileDeleted(p)
		case !info.IsDir():
			w.handler.OnFileChanged(p)
		}
	}
}

func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return slices.Contains(w.files, name) || w.underDir(name)
}

func (w *FileWatcher) underDir(name string) bool {
	for _, dir := range w.dirs {
		if strings.HasPrefix(name, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
