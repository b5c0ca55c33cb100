package noteadapter

import (
	"go.uber.org/zap"

	"github.com/drewcsillag/notecove-sub008/common"
	"github.com/drewcsillag/notecove-sub008/crdt"
	"github.com/drewcsillag/notecove-sub008/crdtpatch"
	"github.com/drewcsillag/notecove-sub008/internal/zlog"
	"github.com/drewcsillag/notecove-sub008/registry"
)

// Adapter is a collection of free functions over a document handle — it
// carries no independent state of its own beyond the registry it reads
// documents from (spec.md §9, "Ownership graph").
type Adapter struct {
	registry *registry.Registry
	log      *zap.Logger
}

func New(r *registry.Registry) *Adapter {
	return &Adapter{registry: r, log: zlog.Named("noteadapter")}
}

// apply builds a patch from builder, marshals it, and applies it to
// noteID's document under origin — the single path every mutating method
// below funnels through, so every local/silent edit ends up as the same
// kind of "update" bytes a remote peer's patch would be.
func (a *Adapter) apply(noteID string, builder *crdtpatch.PatchBuilder, origin crdt.Origin) error {
	patch := builder.Flush()
	if patch == nil {
		return nil
	}
	data, err := patch.MarshalJSON()
	if err != nil {
		return err
	}
	if err := a.registry.ApplyPatchBytes(noteID, data, origin); err != nil {
		a.log.Warn("failed to apply patch", zap.String("note", noteID), zap.Error(err))
		return err
	}
	return nil
}

func newBuilder(doc *crdt.Document) *crdtpatch.PatchBuilder {
	return crdtpatch.NewPatchBuilder(doc.GetSessionID(), doc.NextTimestamp().Counter)
}

// ensureSkeleton builds the root/metadata/content-array/title structure if
// it does not already exist, returning the (possibly freshly built) node
// IDs callers need to target further operations at. It never overwrites
// an existing skeleton.
func ensureSkeleton(doc *crdt.Document, b *crdtpatch.PatchBuilder) (rootID, metaID, contentID, titleID common.LogicalTimestamp) {
	if root, ok := rootObject(doc); ok {
		rootID = root.ID()
		if meta, ok := metadataObject(doc); ok {
			metaID = meta.ID()
			if title, ok := titleString(meta); ok {
				titleID = title.ID()
			}
		}
		if content, ok := contentArray(doc); ok {
			contentID = content.ID()
		}
	}

	if rootID == (common.LogicalTimestamp{}) {
		rootOp := b.NewObject()
		rootID = rootOp.ID
		b.InsertValueRef(common.RootID, rootID)
	}
	if metaID == (common.LogicalTimestamp{}) {
		metaOp := b.NewObject()
		metaID = metaOp.ID
		b.InsertObjectFieldRef(rootID, "metadata", metaID)
	}
	if contentID == (common.LogicalTimestamp{}) {
		contentOp := b.NewArray()
		contentID = contentOp.ID
		b.InsertObjectFieldRef(rootID, "default", contentID)
	}
	if titleID == (common.LogicalTimestamp{}) {
		titleOp := b.NewString()
		titleID = titleOp.ID
		b.InsertObjectFieldRef(metaID, "title", titleID)
	}
	return rootID, metaID, contentID, titleID
}

// InitializeNote populates a freshly opened note's metadata within a
// silent-origin transaction. Fields already present on disk (e.g. this is
// a reopen, not a true first run) are left untouched — only missing
// pieces are filled in, so calling this repeatedly is harmless
// (spec.md §4.7, §9 Open Question 1: sample/starter notes use this same
// populate-if-empty path with origin=silent).
func (a *Adapter) InitializeNote(noteID string, seed Metadata) error {
	doc := a.registry.GetDocument(noteID)
	b := newBuilder(doc)

	_, metaID, _, titleID := ensureSkeleton(doc, b)

	meta, haveMeta := metadataObject(doc)

	fieldPresent := func(key string) bool {
		return haveMeta && meta.Get(key) != nil
	}

	if !fieldPresent("title") && seed.Title != "" {
		b.InsertString(titleID, common.RootID, seed.Title)
	}
	if !fieldPresent("created") {
		created := seed.Created
		if created == "" {
			created = nowISO()
		}
		b.InsertObjectField(metaID, "created", created)
	}
	if !fieldPresent("modified") {
		modified := seed.Modified
		if modified == "" {
			modified = nowISO()
		}
		b.InsertObjectField(metaID, "modified", modified)
	}
	if !fieldPresent("tags") {
		tags := seed.Tags
		if tags == nil {
			tags = []string{}
		}
		b.InsertObjectField(metaID, "tags", tagsToAny(tags))
	}
	if !fieldPresent("folder") {
		if seed.Folder != nil {
			b.InsertObjectField(metaID, "folder", *seed.Folder)
		} else {
			b.InsertObjectField(metaID, "folder", nil)
		}
	}
	if !fieldPresent("deleted") {
		b.InsertObjectField(metaID, "deleted", false)
	}

	return a.apply(noteID, b, crdt.OriginSilent)
}

// UpdateMetadata applies a local edit: every non-nil field in patch is
// written, and modified is always refreshed to now (spec.md §4.7).
func (a *Adapter) UpdateMetadata(noteID string, patch MetadataPatch) error {
	doc := a.registry.GetDocument(noteID)
	b := newBuilder(doc)

	_, metaID, _, titleID := ensureSkeleton(doc, b)

	if patch.Title != nil {
		replaceTitle(doc, b, titleID, *patch.Title)
	}
	if patch.Tags != nil {
		b.InsertObjectField(metaID, "tags", tagsToAny(patch.Tags))
	}
	if patch.Folder != nil {
		b.InsertObjectField(metaID, "folder", *patch.Folder)
	}
	b.InsertObjectField(metaID, "modified", nowISO())

	return a.apply(noteID, b, crdt.OriginLocal)
}

// replaceTitle deletes the title string's current visible contents (if
// any) and inserts value as the new contents. This replaces the whole
// title as one local edit rather than diffing keystrokes — adequate for
// a title field, which this adapter exposes only as a single setter.
func replaceTitle(doc *crdt.Document, b *crdtpatch.PatchBuilder, titleID common.LogicalTimestamp, value string) {
	if meta, ok := metadataObject(doc); ok {
		if title, ok := titleString(meta); ok {
			if first, last, ok := rgaBounds(title.NodeElements); ok {
				b.DeleteStringRange(titleID, first, last)
			}
		}
	}
	if value != "" {
		b.InsertString(titleID, common.RootID, value)
	}
}

// rgaBounds returns the IDs of the first and last non-deleted element in
// an RGA element slice, shared by title (string) and content (array)
// whole-replace operations.
func rgaBounds(elements []*crdt.RGAElement) (first, last common.LogicalTimestamp, ok bool) {
	for _, e := range elements {
		if e.NodeDeleted {
			continue
		}
		if !ok {
			first = e.NodeId
			ok = true
		}
		last = e.NodeId
	}
	return first, last, ok
}

// MarkDeleted sets deleted=true and refreshes modified (spec.md §4.7).
func (a *Adapter) MarkDeleted(noteID string) error {
	return a.setDeleted(noteID, true)
}

// MarkRestored sets deleted=false and refreshes modified (spec.md §4.7).
func (a *Adapter) MarkRestored(noteID string) error {
	return a.setDeleted(noteID, false)
}

func (a *Adapter) setDeleted(noteID string, deleted bool) error {
	doc := a.registry.GetDocument(noteID)
	b := newBuilder(doc)

	_, metaID, _, _ := ensureSkeleton(doc, b)
	b.InsertObjectField(metaID, "deleted", deleted)
	b.InsertObjectField(metaID, "modified", nowISO())

	return a.apply(noteID, b, crdt.OriginLocal)
}

// GetMetadata returns a read-only snapshot of noteID's metadata map. A
// note with no skeleton yet (never initialized) returns the zero value.
func (a *Adapter) GetMetadata(noteID string) Metadata {
	doc := a.registry.GetDocument(noteID)

	meta, ok := metadataObject(doc)
	if !ok {
		return Metadata{}
	}

	md := Metadata{
		Created:  stringFieldValue(meta, "created"),
		Modified: stringFieldValue(meta, "modified"),
		Tags:     tagsFieldValue(meta),
		Folder:   folderFieldValue(meta),
		Deleted:  boolFieldValue(meta, "deleted"),
	}
	if title, ok := titleString(meta); ok {
		md.Title = title.String()
	}
	return md
}

// IsDocEmpty reports whether noteID's content fragment and title are both
// empty (spec.md §4.7) — used by bootstrap/UI to distinguish a
// newly-created, still-blank note from one with real content.
func (a *Adapter) IsDocEmpty(noteID string) bool {
	doc := a.registry.GetDocument(noteID)

	if content, ok := contentArray(doc); ok && content.Length() > 0 {
		return false
	}
	if meta, ok := metadataObject(doc); ok {
		if title, ok := titleString(meta); ok && title.Length() > 0 {
			return false
		}
	}
	return true
}
