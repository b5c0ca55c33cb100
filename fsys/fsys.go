// Package fsys is the injected filesystem capability every other package
// depends on instead of touching os/io/fs directly: existence checks,
// recursive mkdir, whole-file read/write (write is atomic via a
// temp-file-plus-rename), directory listing, and recursive change
// notification. Nothing here is note-aware; fsys only knows about paths
// and bytes.
package fsys

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DirEntry is the subset of fs.DirEntry callers of ReadDir need.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FS is the capability contract. A real instance is rooted at nothing in
// particular — callers pass absolute (or process-relative) paths, same as
// the stdlib.
type FS interface {
	Exists(path string) bool
	MkdirAll(path string) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	ReadDir(path string) ([]DirEntry, error)
	Watch(path string, callback WatchCallback) (Handle, error)
	Unwatch(h Handle) error
}

// EventKind enumerates the three change kinds a watcher can report.
type EventKind string

const (
	EventAdd    EventKind = "add"
	EventChange EventKind = "change"
	EventUnlink EventKind = "unlink"
)

// Event is delivered to a WatchCallback.
type Event struct {
	Kind EventKind
	Path string
}

// WatchCallback receives filesystem change notifications. It must not
// block; long-running work belongs on another goroutine.
type WatchCallback func(Event)

// Handle identifies an active watch so it can later be passed to Unwatch.
type Handle interface {
	stop()
}

// Local is the OS-backed FS implementation used in production.
type Local struct{}

// New returns the OS-backed filesystem capability.
func New() *Local { return &Local{} }

func (Local) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (Local) MkdirAll(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir -p %s", path)
	}
	return nil
}

func (Local) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// WriteFile creates parent directories as needed and overwrites the target
// atomically: it writes to a sibling temp file and renames it into place,
// so a reader never observes a partially written file (spec.md §5's "write
// temp + rename if the platform allows").
func (Local) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir -p %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file in %s", dir)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "write temp file for %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "close temp file for %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "rename temp file onto %s", path)
	}
	return nil
}

func (Local) ReadDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read dir %s", path)
	}

	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}
