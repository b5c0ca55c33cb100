package crdtpatch

import (
	"encoding/json"

	"github.com/drewcsillag/notecove-sub008/common"
)

// NodeRef is an InsOperation value meaning "point this field at the node
// created elsewhere in this document/patch by ID" rather than a flattened
// scalar copy of it. Without this, InsOperation.Apply's LWWValueNode/
// LWWObjectNode cases can only ever wrap o.Value in a fresh ConstantNode —
// there would be no way to wire a parent object's field at a child object,
// string, or array node, which is required for any document with more
// than one level of structure. It marshals as {"$ref": <LogicalTimestamp>}.
type NodeRef struct {
	ID common.LogicalTimestamp
}

func (r NodeRef) asJSON() interface{} {
	return map[string]interface{}{"$ref": r.ID}
}

// decodeNodeRef recognizes a value as a NodeRef, whether it is the literal
// Go type (same-process, not yet serialized) or the {"$ref": {...}} shape
// produced by decoding JSON.
func decodeNodeRef(v interface{}) (common.LogicalTimestamp, bool) {
	if ref, ok := v.(NodeRef); ok {
		return ref.ID, true
	}

	m, ok := v.(map[string]interface{})
	if !ok {
		return common.LogicalTimestamp{}, false
	}
	refVal, ok := m["$ref"]
	if !ok {
		return common.LogicalTimestamp{}, false
	}
	refMap, ok := refVal.(map[string]interface{})
	if !ok {
		return common.LogicalTimestamp{}, false
	}

	sidVal, sidOk := refMap["sid"]
	cntVal, cntOk := refMap["cnt"]
	if !sidOk || !cntOk {
		return common.LogicalTimestamp{}, false
	}

	sidJSON, err := json.Marshal(sidVal)
	if err != nil {
		return common.LogicalTimestamp{}, false
	}
	var sid common.SessionID
	if err := sid.UnmarshalJSON(sidJSON); err != nil {
		return common.LogicalTimestamp{}, false
	}

	var cnt uint64
	switch c := cntVal.(type) {
	case float64:
		cnt = uint64(c)
	case int:
		cnt = uint64(c)
	case int64:
		cnt = uint64(c)
	case uint64:
		cnt = c
	default:
		return common.LogicalTimestamp{}, false
	}

	return common.LogicalTimestamp{SID: sid, Counter: cnt}, true
}
