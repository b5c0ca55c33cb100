// Package noteadapter projects a crdt.Document onto the note shape spec.md
// §4.7 describes: a "metadata" object (title, created, modified, tags,
// folder, deleted) and a "default" content fragment, sitting side by side
// under the document root.
package noteadapter

import (
	"time"

	"github.com/drewcsillag/notecove-sub008/crdt"
)

// Metadata is a read-only snapshot of a note's metadata map.
type Metadata struct {
	Title    string
	Created  string
	Modified string
	Tags     []string
	Folder   *string
	Deleted  bool
}

// MetadataPatch carries the fields UpdateMetadata should change — nil/zero
// fields are left untouched except where noted. Deleted is intentionally
// absent: MarkDeleted/MarkRestored own that field (spec.md §4.7).
type MetadataPatch struct {
	Title  *string
	Tags   []string
	Folder *string
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func rootObject(doc *crdt.Document) (*crdt.LWWObjectNode, bool) {
	root, ok := doc.Root().(*crdt.LWWValueNode)
	if !ok {
		return nil, false
	}
	obj, ok := root.NodeValue.(*crdt.LWWObjectNode)
	return obj, ok
}

func metadataObject(doc *crdt.Document) (*crdt.LWWObjectNode, bool) {
	root, ok := rootObject(doc)
	if !ok {
		return nil, false
	}
	meta, ok := root.Get("metadata").(*crdt.LWWObjectNode)
	return meta, ok
}

func contentArray(doc *crdt.Document) (*crdt.RGAArrayNode, bool) {
	root, ok := rootObject(doc)
	if !ok {
		return nil, false
	}
	content, ok := root.Get("default").(*crdt.RGAArrayNode)
	return content, ok
}

func titleString(meta *crdt.LWWObjectNode) (*crdt.RGAStringNode, bool) {
	title, ok := meta.Get("title").(*crdt.RGAStringNode)
	return title, ok
}

func stringFieldValue(meta *crdt.LWWObjectNode, key string) string {
	node, ok := meta.Get(key).(*crdt.ConstantNode)
	if !ok {
		return ""
	}
	s, _ := node.Value().(string)
	return s
}

func boolFieldValue(meta *crdt.LWWObjectNode, key string) bool {
	node, ok := meta.Get(key).(*crdt.ConstantNode)
	if !ok {
		return false
	}
	b, _ := node.Value().(bool)
	return b
}

func tagsFieldValue(meta *crdt.LWWObjectNode) []string {
	node, ok := meta.Get("tags").(*crdt.ConstantNode)
	if !ok {
		return nil
	}
	raw, ok := node.Value().([]interface{})
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

func folderFieldValue(meta *crdt.LWWObjectNode) *string {
	node, ok := meta.Get("folder").(*crdt.ConstantNode)
	if !ok {
		return nil
	}
	s, ok := node.Value().(string)
	if !ok {
		return nil
	}
	return &s
}

func tagsToAny(tags []string) []interface{} {
	out := make([]interface{}, len(tags))
	for i, t := range tags {
		out[i] = t
	}
	return out
}
