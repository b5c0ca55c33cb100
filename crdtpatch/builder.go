package crdtpatch

import (
	"github.com/drewcsillag/notecove-sub008/common"
	"github.com/drewcsillag/notecove-sub008/crdt"
)

// PatchBuilder is a helper for building JSON CRDT patches.
// It maintains a logical clock and automatically assigns IDs to operations.
type PatchBuilder struct {
	// sessionID is the session ID for the builder.
	sessionID common.SessionID

	// counter is the current counter value for the builder.
	counter uint64

	// currentPatch is the patch being built.
	currentPatch *Patch

	// pendingOperations is the list of operations to be added to the next patch.
	pendingOperations []Operation
}

// NewPatchBuilder creates a new PatchBuilder with the given session ID and initial counter.
func NewPatchBuilder(sessionID common.SessionID, initialCounter uint64) *PatchBuilder {
	return &PatchBuilder{
		sessionID:         sessionID,
		counter:           initialCounter,
		pendingOperations: make([]Operation, 0),
	}
}

// CurrentTimestamp returns the current logical timestamp.
func (b *PatchBuilder) CurrentTimestamp() common.LogicalTimestamp {
	return common.LogicalTimestamp{
		SID:     b.sessionID,
		Counter: b.counter,
	}
}

// NextTimestamp returns the next logical timestamp and increments the counter.
func (b *PatchBuilder) NextTimestamp() common.LogicalTimestamp {
	ts := b.CurrentTimestamp()
	b.counter++
	return ts
}

// NextTimestampWithSpan returns the next logical timestamp with the given span and increments the counter.
func (b *PatchBuilder) NextTimestampWithSpan(span uint64) common.LogicalTimestamp {
	ts := b.CurrentTimestamp()
	b.counter += span
	return ts
}

// AddOperation adds an operation to the pending operations list.
func (b *PatchBuilder) AddOperation(op Operation) {
	b.pendingOperations = append(b.pendingOperations, op)
}

// NewConstant creates a new constant node operation.
func (b *PatchBuilder) NewConstant(value interface{}) *NewOperation {
	op := &NewOperation{
		ID:       b.NextTimestamp(),
		NodeType: common.NodeTypeCon,
		Value:    value,
	}
	b.AddOperation(op)
	return op
}

// NewValue creates a new LWW-Value node operation.
func (b *PatchBuilder) NewValue() *NewOperation {
	op := &NewOperation{
		ID:       b.NextTimestamp(),
		NodeType: common.NodeTypeVal,
	}
	b.AddOperation(op)
	return op
}

// NewObject creates a new LWW-Object node operation.
func (b *PatchBuilder) NewObject() *NewOperation {
	op := &NewOperation{
		ID:       b.NextTimestamp(),
		NodeType: common.NodeTypeObj,
	}
	b.AddOperation(op)
	return op
}

// NewString creates a new RGA-String node operation.
func (b *PatchBuilder) NewString() *NewOperation {
	op := &NewOperation{
		ID:       b.NextTimestamp(),
		NodeType: common.NodeTypeStr,
	}
	b.AddOperation(op)
	return op
}

// NewArray creates a new RGA-Array node operation.
func (b *PatchBuilder) NewArray() *NewOperation {
	op := &NewOperation{
		ID:       b.NextTimestamp(),
		NodeType: common.NodeTypeArr,
	}
	b.AddOperation(op)
	return op
}

// InsertValue inserts a value into a LWW-Value node.
func (b *PatchBuilder) InsertValue(targetID common.LogicalTimestamp, value interface{}) *InsOperation {
	op := &InsOperation{
		ID:       b.NextTimestamp(),
		TargetID: targetID,
		Value:    value,
	}
	b.AddOperation(op)
	return op
}

// InsertValueRef points a LWW-Value node at another node already created in
// this document (e.g. by NewObject/NewString), rather than copying it.
func (b *PatchBuilder) InsertValueRef(targetID, ref common.LogicalTimestamp) *InsOperation {
	return b.InsertValue(targetID, NodeRef{ID: ref})
}

// InsertObjectField inserts a field into a LWW-Object node.
func (b *PatchBuilder) InsertObjectField(targetID common.LogicalTimestamp, key string, value interface{}) *InsOperation {
	op := &InsOperation{
		ID:       b.NextTimestamp(),
		TargetID: targetID,
		Value:    map[string]interface{}{key: value},
	}
	b.AddOperation(op)
	return op
}

// InsertObjectFieldRef sets an object field to reference another node
// already created in this document, wiring real structure (a nested
// object, string, or array) into the parent instead of a flattened copy.
func (b *PatchBuilder) InsertObjectFieldRef(targetID common.LogicalTimestamp, key string, ref common.LogicalTimestamp) *InsOperation {
	return b.InsertObjectField(targetID, key, NodeRef{ID: ref})
}

// InsertString inserts value into the RGA-String node targetID, positioned
// after refID (common.RootID to insert at the front).
func (b *PatchBuilder) InsertString(targetID, refID common.LogicalTimestamp, value string) *InsOperation {
	op := &InsOperation{
		ID:       b.NextTimestamp(),
		TargetID: targetID,
		RefID:    refID,
		Value:    value,
	}
	b.AddOperation(op)
	return op
}

// InsertArrayElement inserts value into the RGA-Array node targetID,
// positioned after refID (common.RootID to insert at the front).
func (b *PatchBuilder) InsertArrayElement(targetID, refID common.LogicalTimestamp, value interface{}) *InsOperation {
	op := &InsOperation{
		ID:       b.NextTimestamp(),
		TargetID: targetID,
		RefID:    refID,
		Value:    value,
	}
	b.AddOperation(op)
	return op
}

// DeleteObjectField deletes a field from a LWW-Object node.
func (b *PatchBuilder) DeleteObjectField(targetID common.LogicalTimestamp, key string) *DelOperation {
	op := &DelOperation{
		ID:       b.NextTimestamp(),
		TargetID: targetID,
		Key:      key,
	}
	b.AddOperation(op)
	return op
}

// DeleteStringRange deletes a range of characters from a RGA-String node.
func (b *PatchBuilder) DeleteStringRange(targetID, startID, endID common.LogicalTimestamp) *DelOperation {
	op := &DelOperation{
		ID:       b.NextTimestamp(),
		TargetID: targetID,
		StartID:  startID,
		EndID:    endID,
	}
	b.AddOperation(op)
	return op
}

// AddNop adds a no-op operation with the given span.
func (b *PatchBuilder) AddNop(span uint64) *NopOperation {
	op := &NopOperation{
		ID:        b.NextTimestampWithSpan(span),
		SpanValue: span,
	}
	b.AddOperation(op)
	return op
}

// Flush creates a new patch with the pending operations and clears the pending operations list.
func (b *PatchBuilder) Flush() *Patch {
	if len(b.pendingOperations) == 0 {
		return nil
	}

	// Create a new patch with the current timestamp
	patch := NewPatch(b.CurrentTimestamp())

	// Add the pending operations to the patch
	for _, op := range b.pendingOperations {
		patch.AddOperation(op)
	}

	// Clear the pending operations list
	b.pendingOperations = make([]Operation, 0)

	// Store the current patch
	b.currentPatch = patch

	return patch
}

// CurrentPatch returns the current patch.
func (b *PatchBuilder) CurrentPatch() *Patch {
	return b.currentPatch
}

// BuildFromDocument builds a patch that recreates the given document's
// entire structure. This is how a full note snapshot (spec.md §4.6
// getState) is produced: a fresh document on the receiving side already
// has a root node at common.RootID (every crdt.NewDocument creates one),
// so the root itself is never re-created here — only its child and the
// link to it.
func (b *PatchBuilder) BuildFromDocument(doc *crdt.Document) *Patch {
	rootNode := doc.Root()
	if rootNode == nil {
		return b.Flush()
	}

	if rootVal, ok := rootNode.(*crdt.LWWValueNode); ok {
		if rootVal.NodeValue != nil {
			if childID := b.processNode(doc, rootVal.NodeValue); childID != (common.LogicalTimestamp{}) {
				b.InsertValueRef(common.RootID, childID)
			}
		}
		return b.Flush()
	}

	b.processNode(doc, rootNode)
	return b.Flush()
}

// processNode emits the New (and, for composites, child Ins) operations
// needed to recreate node, returning its own New operation's ID so a
// caller can wire a ref at it. Nil/ConstantNode leaves need no follow-up
// Ins — the parent links a ref straight at the New op's ID. Node types
// not handled below emit nothing and return the zero timestamp.
func (b *PatchBuilder) processNode(doc *crdt.Document, node crdt.Node) common.LogicalTimestamp {
	if node == nil {
		return common.LogicalTimestamp{}
	}

	switch n := node.(type) {
	case *crdt.ConstantNode:
		return b.NewConstant(n.Value()).ID

	case *crdt.LWWValueNode:
		valueOp := b.NewValue()
		if n.NodeValue != nil {
			if childID := b.processNode(doc, n.NodeValue); childID != (common.LogicalTimestamp{}) {
				b.InsertValueRef(valueOp.ID, childID)
			}
		}
		return valueOp.ID

	case *crdt.LWWObjectNode:
		objOp := b.NewObject()
		for _, key := range n.Keys() {
			fieldValue := n.Get(key)
			if fieldValue != nil {
				if childID := b.processNode(doc, fieldValue); childID != (common.LogicalTimestamp{}) {
					b.InsertObjectFieldRef(objOp.ID, key, childID)
				}
			}
		}
		return objOp.ID

	case *crdt.RGAStringNode:
		strOp := b.NewString()
		// The whole string is re-sent as one insert anchored at the front;
		// this rebuilds the visible text, not the original keystroke-level
		// element history.
		strValue, ok := n.Value().(string)
		if ok && strValue != "" {
			b.InsertString(strOp.ID, common.RootID, strValue)
		}
		return strOp.ID

	case *crdt.RGAArrayNode:
		arrOp := b.NewArray()
		after := common.RootID
		for _, elem := range n.NodeElements {
			if elem.NodeDeleted {
				continue
			}
			ins := b.InsertArrayElement(arrOp.ID, after, elem.NodeValue)
			after = ins.ID
		}
		return arrOp.ID
	}
	return common.LogicalTimestamp{}
}
