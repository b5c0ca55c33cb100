// Package registry implements the CRDT Document Registry (spec.md §4.6):
// a map from note id to a live CRDT document, created on demand, with
// origin-tagged update events fanned out to listeners.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/drewcsillag/notecove-sub008/common"
	"github.com/drewcsillag/notecove-sub008/crdt"
	"github.com/drewcsillag/notecove-sub008/crdtpatch"
	"github.com/drewcsillag/notecove-sub008/internal/zlog"
)

// DocUpdatedEvent is fanned out to registry listeners for every locally
// authored change — never for remote or silent ones (spec.md §4.6).
type DocUpdatedEvent struct {
	NoteID    string
	Update    []byte
	Timestamp int64
}

// Listener receives DocUpdatedEvents.
type Listener func(DocUpdatedEvent)

// Registry owns every open note's CRDT document.
type Registry struct {
	sessionID common.SessionID
	log       *zap.Logger

	mu        sync.Mutex
	documents map[string]*crdt.Document
	listeners []Listener
}

// New creates a Registry. sessionID identifies this process's edits within
// every document it creates (the CRDT runtime's local session/writer id).
func New(sessionID common.SessionID) *Registry {
	return &Registry{
		sessionID: sessionID,
		log:       zlog.Named("registry"),
		documents: make(map[string]*crdt.Document),
	}
}

// OnDocUpdated registers a listener notified for every local edit across
// every note the registry manages.
func (r *Registry) OnDocUpdated(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// GetDocument returns the live document for noteID, creating it (empty)
// on first request and attaching the handler described in spec.md §4.6:
// any update whose origin is neither silent nor remote is fanned out to
// every registered Listener.
func (r *Registry) GetDocument(noteID string) *crdt.Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc, ok := r.documents[noteID]; ok {
		return doc
	}

	doc := crdt.NewDocument(r.sessionID)
	doc.OnUpdate(func(ev crdt.UpdateEvent) {
		if ev.Origin == crdt.OriginRemote || ev.Origin == crdt.OriginSilent {
			return
		}
		r.mu.Lock()
		listeners := append([]Listener(nil), r.listeners...)
		r.mu.Unlock()
		for _, l := range listeners {
			l(DocUpdatedEvent{NoteID: noteID, Update: ev.Update, Timestamp: ev.Timestamp.UnixNano()})
		}
	})
	r.documents[noteID] = doc
	return doc
}

// RemoveDocument detaches the note's document (forgetting it; the handler
// goes with it since nothing references the document anymore).
func (r *Registry) RemoveDocument(noteID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.documents, noteID)
}

// ApplyPatchBytes decodes a serialized crdtpatch.Patch and applies it to
// noteID's document under the given origin, emitting an update event
// (filtered by origin, see GetDocument) carrying the same bytes onward.
func (r *Registry) ApplyPatchBytes(noteID string, data []byte, origin crdt.Origin) error {
	patch := crdtpatch.NewPatch(common.LogicalTimestamp{})
	if err := patch.UnmarshalJSON(data); err != nil {
		return err
	}

	doc := r.GetDocument(noteID)
	return doc.Transact(origin, data, func(d *crdt.Document) error {
		return patch.Apply(d)
	})
}

// GetState encodes noteID's entire document as a single patch — spec.md
// §4.6's getState, used to seed a fresh peer or to snapshot a note view.
func (r *Registry) GetState(noteID string) ([]byte, error) {
	doc := r.GetDocument(noteID)
	builder := crdtpatch.NewPatchBuilder(r.sessionID, doc.NextTimestamp().Counter)
	patch := builder.BuildFromDocument(doc)
	return patch.MarshalJSON()
}

// ApplyState applies a whole-document state snapshot produced by GetState,
// always with OriginRemote (spec.md §4.6).
func (r *Registry) ApplyState(noteID string, data []byte) error {
	return r.ApplyPatchBytes(noteID, data, crdt.OriginRemote)
}
