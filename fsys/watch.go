package fsys

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/drewcsillag/notecove-sub008/internal/zlog"
)

// localHandle wraps an fsnotify.Watcher plus the goroutine draining it.
type localHandle struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func (h *localHandle) stop() {
	close(h.done)
	h.watcher.Close()
}

// Watch recursively watches root. fsnotify only watches a single directory
// level per Add call, so this walks the tree once at setup time and adds a
// watch for every existing subdirectory, then adds a watch for any
// subdirectory created afterwards so newly created note directories
// (<notesRoot>/<noteId>/updates/) are picked up without a restart.
// Directory recursion is best-effort per the Filesystem Capability
// contract: a directory that can't be walked (permission, race with
// deletion) is skipped rather than failing the whole watch.
func (Local) Watch(root string, callback WatchCallback) (Handle, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	addTree(watcher, root)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				kind, ok := translate(event.Op)
				if !ok {
					continue
				}
				if event.Op&fsnotify.Create == fsnotify.Create {
					if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
						addTree(watcher, event.Name)
					}
				}
				callback(Event{Kind: kind, Path: event.Name})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zlog.Named("fsys").Warn("watch error", zap.Error(err))
			}
		}
	}()

	return &localHandle{watcher: watcher, done: done}, nil
}

// Unwatch stops the watch started by Watch and releases its resources.
func (Local) Unwatch(h Handle) error {
	h.stop()
	return nil
}

func addTree(watcher *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = watcher.Add(path)
		}
		return nil
	})
}

func translate(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op&fsnotify.Create == fsnotify.Create:
		return EventAdd, true
	case op&fsnotify.Write == fsnotify.Write:
		return EventChange, true
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return EventUnlink, true
	default:
		return "", false
	}
}
