// Package syncmanager composes the registry, note adapter, update store,
// and filesystem watcher into the single component that binds a note to
// disk, drains local edits into the log, and ingests peers' writes as they
// land (spec.md §4.8).
package syncmanager

import (
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/drewcsillag/notecove-sub008/fsys"
	"github.com/drewcsillag/notecove-sub008/internal/zlog"
	"github.com/drewcsillag/notecove-sub008/noteadapter"
	"github.com/drewcsillag/notecove-sub008/notelog"
	"github.com/drewcsillag/notecove-sub008/registry"
)

// Status is one of the four states a Manager reports (spec.md §4.8).
type Status string

const (
	StatusIdle     Status = "idle"
	StatusWatching Status = "watching"
	StatusSyncing  Status = "syncing"
	StatusError    Status = "error"
)

// NoteSyncedEvent is emitted after ingest drains every new update for a note.
type NoteSyncedEvent struct {
	NoteID string
	Count  int
}

// FileRemovedEvent is emitted when a packed update file disappears. It is
// informational only — the CRDT tolerates missing history as long as no
// writer is referenced that was never seen at all (spec.md §4.8).
type FileRemovedEvent struct {
	Path string
}

// Manager binds, watches, and ingests notes under one notes root.
type Manager struct {
	fs        fsys.FS
	notesRoot string
	registry  *registry.Registry
	store     *notelog.Store
	adapter   *noteadapter.Adapter
	log       *zap.Logger

	mu             sync.Mutex
	status         Status
	watchHandle    fsys.Handle
	stopped        bool
	openNotes      map[string]bool
	noteSynced     []func(NoteSyncedEvent)
	fileRemoved    []func(FileRemovedEvent)
}

// New wires a Manager over an already-constructed registry/store/adapter
// triple, and subscribes to the registry's local-edit fan-out so every
// locally authored change reaches the store (spec.md §4.8 "Binding").
func New(fs fsys.FS, notesRoot string, reg *registry.Registry, store *notelog.Store, adapter *noteadapter.Adapter) *Manager {
	m := &Manager{
		fs:        fs,
		notesRoot: notesRoot,
		registry:  reg,
		store:     store,
		adapter:   adapter,
		log:       zlog.Named("syncmanager"),
		status:    StatusIdle,
		openNotes: make(map[string]bool),
	}

	reg.OnDocUpdated(func(ev registry.DocUpdatedEvent) {
		if _, err := store.AddUpdate(ev.NoteID, ev.Update); err != nil {
			m.log.Warn("failed to buffer local update", zap.String("note", ev.NoteID), zap.Error(err))
		}
	})

	return m
}

// OpenNote ensures the store has loaded noteID's per-writer state before any
// local edit for it can be buffered (spec.md §4.8 "Binding").
func (m *Manager) OpenNote(noteID string) error {
	if err := m.store.Initialize(noteID); err != nil {
		return err
	}
	m.mu.Lock()
	m.openNotes[noteID] = true
	m.mu.Unlock()
	return nil
}

// Status returns the manager's current state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// OnNoteSynced registers a listener invoked after ingest drains a note.
func (m *Manager) OnNoteSynced(l func(NoteSyncedEvent)) {
	m.mu.Lock()
	m.noteSynced = append(m.noteSynced, l)
	m.mu.Unlock()
}

// OnFileRemoved registers a listener invoked when a packed update file
// disappears from disk.
func (m *Manager) OnFileRemoved(l func(FileRemovedEvent)) {
	m.mu.Lock()
	m.fileRemoved = append(m.fileRemoved, l)
	m.mu.Unlock()
}

// StartWatching watches notesRoot recursively and begins ingesting updates
// as their packed files land (spec.md §4.8 "Watching"). Calling it again
// while already watching is a no-op.
func (m *Manager) StartWatching() error {
	m.mu.Lock()
	if m.watchHandle != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	handle, err := m.fs.Watch(m.notesRoot, m.onFSEvent)
	if err != nil {
		m.setStatus(StatusError)
		return err
	}

	m.mu.Lock()
	m.watchHandle = handle
	m.mu.Unlock()
	m.setStatus(StatusWatching)
	return nil
}

// onFSEvent is the fsys.Watch callback: it recognizes update-log paths,
// drops everything else, and ignores events once destroy has begun.
func (m *Manager) onFSEvent(ev fsys.Event) {
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if stopped {
		return
	}

	noteID, ok := noteIDFromUpdatePath(m.notesRoot, ev.Path)
	if !ok {
		return
	}

	switch ev.Kind {
	case fsys.EventAdd, fsys.EventChange:
		m.setStatus(StatusSyncing)
		m.ingest(noteID)
		m.setStatus(StatusWatching)
	case fsys.EventUnlink:
		m.emitFileRemoved(FileRemovedEvent{Path: ev.Path})
	}
}

// ingest reads every update a note has accumulated since the last time this
// process looked, applies each to the live document with origin=remote, and
// emits note-synced with the count drained (spec.md §4.8 "Ingest").
func (m *Manager) ingest(noteID string) {
	records, err := m.store.ReadNewUpdates(noteID)
	if err != nil {
		m.log.Warn("ingest: read new updates failed", zap.String("note", noteID), zap.Error(err))
		m.setStatus(StatusError)
		return
	}

	for _, r := range records {
		if err := m.registry.ApplyState(noteID, r.Update); err != nil {
			m.log.Warn("ingest: failed to apply update",
				zap.String("note", noteID), zap.String("writer", r.InstanceID), zap.Error(err))
			continue
		}
	}

	m.emitNoteSynced(NoteSyncedEvent{NoteID: noteID, Count: len(records)})
}

func (m *Manager) emitNoteSynced(ev NoteSyncedEvent) {
	m.mu.Lock()
	listeners := append([]func(NoteSyncedEvent)(nil), m.noteSynced...)
	m.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

func (m *Manager) emitFileRemoved(ev FileRemovedEvent) {
	m.mu.Lock()
	listeners := append([]func(FileRemovedEvent)(nil), m.fileRemoved...)
	m.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

// Destroy stops watching, flushes and closes the store state of every note
// this process opened, and drops every note-synced and file-removed
// listener (spec.md §4.8 "Cancellation & shutdown"). The subscription to
// the registry's local-edit fan-out made in New stays registered; the
// store rejects its later updates for the notes closed here with
// ErrClosed. It is idempotent.
func (m *Manager) Destroy() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	handle := m.watchHandle
	m.watchHandle = nil
	notes := make([]string, 0, len(m.openNotes))
	for noteID := range m.openNotes {
		notes = append(notes, noteID)
	}
	m.mu.Unlock()

	if handle != nil {
		if err := m.fs.Unwatch(handle); err != nil {
			return err
		}
	}

	for _, noteID := range notes {
		if err := m.store.Cleanup(noteID); err != nil {
			m.log.Warn("cleanup failed during destroy", zap.String("note", noteID), zap.Error(err))
		}
	}

	m.mu.Lock()
	m.noteSynced = nil
	m.fileRemoved = nil
	m.status = StatusIdle
	m.mu.Unlock()
	return nil
}

// noteIDFromUpdatePath extracts <noteId> from a path matching
// <notesRoot>/<noteId>/updates/<file>.yjson, per spec.md §4.8.
func noteIDFromUpdatePath(notesRoot, path string) (string, bool) {
	path = filepath.ToSlash(path)
	notesRoot = filepath.ToSlash(notesRoot)

	rest := strings.TrimPrefix(path, notesRoot)
	rest = strings.TrimPrefix(rest, "/")

	const marker = "/updates/"
	idx := strings.Index(rest, marker)
	if idx < 0 || !strings.HasSuffix(rest, ".yjson") {
		return "", false
	}

	noteID := rest[:idx]
	if noteID == "" || strings.Contains(noteID, "/") {
		return "", false
	}
	return noteID, true
}
