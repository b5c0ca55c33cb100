package syncmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewcsillag/notecove-sub008/common"
	"github.com/drewcsillag/notecove-sub008/fsys"
	"github.com/drewcsillag/notecove-sub008/noteadapter"
	"github.com/drewcsillag/notecove-sub008/notelog"
	"github.com/drewcsillag/notecove-sub008/registry"
)

func newTestManager(t *testing.T) (*Manager, *registry.Registry, *noteadapter.Adapter, string) {
	t.Helper()
	root := t.TempDir()
	fs := fsys.New()
	store := notelog.NewStore(fs, root, "instance-a", notelog.NewImmediateStrategy())
	reg := registry.New(common.NewSessionID())
	adapter := noteadapter.New(reg)
	mgr := New(fs, root, reg, store, adapter)
	return mgr, reg, adapter, root
}

func TestNoteIDFromUpdatePath(t *testing.T) {
	noteID, ok := noteIDFromUpdatePath("/root/notes", "/root/notes/abc-123/updates/instance-a.000001.yjson")
	require.True(t, ok)
	assert.Equal(t, "abc-123", noteID)

	_, ok = noteIDFromUpdatePath("/root/notes", "/root/notes/abc-123/meta/instance-a.json")
	assert.False(t, ok)

	_, ok = noteIDFromUpdatePath("/root/notes", "/root/notes/abc-123/updates/not-a-patch.txt")
	assert.False(t, ok)
}

func TestLocalEditFlowsThroughToStore(t *testing.T) {
	mgr, _, adapter, root := newTestManager(t)

	require.NoError(t, mgr.OpenNote("note-1"))
	// InitializeNote runs with origin=silent, which the registry
	// deliberately does not fan out (spec.md §4.6) — it never reaches
	// disk. A real local edit (origin=local) is what the store sees.
	require.NoError(t, adapter.InitializeNote("note-1", noteadapter.Metadata{}))
	require.NoError(t, adapter.UpdateMetadata("note-1", noteadapter.MetadataPatch{Title: strPtrFor("Hello")}))

	entries, err := fsys.New().ReadDir(root + "/note-1/updates")
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "a local edit should buffer+flush at least one update file")
}

func strPtrFor(s string) *string { return &s }

func TestDestroyIsIdempotent(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)
	require.NoError(t, mgr.StartWatching())
	require.NoError(t, mgr.Destroy())
	require.NoError(t, mgr.Destroy())
	assert.Equal(t, StatusIdle, mgr.Status())
}
