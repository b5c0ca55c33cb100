package syncmanager

import (
	"go.uber.org/zap"

	"github.com/drewcsillag/notecove-sub008/crdt"
	"github.com/drewcsillag/notecove-sub008/fsys"
	"github.com/drewcsillag/notecove-sub008/internal/zlog"
	"github.com/drewcsillag/notecove-sub008/noteadapter"
	"github.com/drewcsillag/notecove-sub008/notelog"
	"github.com/drewcsillag/notecove-sub008/registry"
)

// NoteView is the projected summary Bootstrap returns per note for list
// rendering (spec.md §4.9): title, preview, modified timestamp. Preview is
// left empty — this module has no HTML/ProseMirror renderer to turn the
// opaque content fragment into readable text (see DESIGN.md Open Question
// 1); callers with such a renderer can derive it from the content fragment
// themselves.
type NoteView struct {
	NoteID   string
	Title    string
	Preview  string
	Modified string
	Deleted  bool
}

// StarterNote seeds a note that should exist on first run even though
// nothing has been written for it yet (spec.md §9 Open Question 1: sample
// notes). Content is intentionally never seeded, only metadata — see
// NoteView's doc comment for why.
type StarterNote struct {
	NoteID string
	Title  string
}

// Bootstrap replays every note already on disk under notesRoot and seeds
// any StarterNote missing from it, all with origin=silent (spec.md §4.9).
// It does not start watching; call Manager.StartWatching separately once
// bootstrap has returned.
func Bootstrap(fs fsys.FS, notesRoot string, reg *registry.Registry, store *notelog.Store, adapter *noteadapter.Adapter, starters []StarterNote) ([]NoteView, error) {
	log := zlog.Named("syncmanager")

	entries, err := fs.ReadDir(notesRoot)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	var views []NoteView

	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		noteID := e.Name
		if !fs.Exists(notesRoot + "/" + noteID + "/updates") {
			continue
		}
		seen[noteID] = true

		if err := store.Initialize(noteID); err != nil {
			return nil, err
		}
		records, err := store.ReadAllUpdates(noteID)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if err := reg.ApplyPatchBytes(noteID, r.Update, crdt.OriginSilent); err != nil {
				log.Warn("bootstrap: skipping unapplicable update",
					zap.String("note", noteID), zap.String("writer", r.InstanceID), zap.Error(err))
				continue
			}
		}

		views = append(views, projectView(noteID, adapter))
	}

	for _, starter := range starters {
		if seen[starter.NoteID] {
			continue
		}
		if err := store.Initialize(starter.NoteID); err != nil {
			return nil, err
		}
		if err := adapter.InitializeNote(starter.NoteID, noteadapter.Metadata{Title: starter.Title}); err != nil {
			return nil, err
		}
		views = append(views, projectView(starter.NoteID, adapter))
	}

	return views, nil
}

func projectView(noteID string, adapter *noteadapter.Adapter) NoteView {
	md := adapter.GetMetadata(noteID)
	return NoteView{
		NoteID:   noteID,
		Title:    md.Title,
		Modified: md.Modified,
		Deleted:  md.Deleted,
	}
}
