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

func TestBootstrapSeedsStarterNotes(t *testing.T) {
	root := t.TempDir()
	fs := fsys.New()
	store := notelog.NewStore(fs, root, "instance-a", notelog.NewImmediateStrategy())
	reg := registry.New(common.NewSessionID())
	adapter := noteadapter.New(reg)

	views, err := Bootstrap(fs, root, reg, store, adapter, []StarterNote{
		{NoteID: "welcome", Title: "Welcome"},
	})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "welcome", views[0].NoteID)
	assert.Equal(t, "Welcome", views[0].Title)
	assert.False(t, views[0].Deleted)
}

func TestBootstrapReplaysExistingNotes(t *testing.T) {
	root := t.TempDir()
	fs := fsys.New()

	// First process: write a note's update to disk.
	store1 := notelog.NewStore(fs, root, "instance-a", notelog.NewImmediateStrategy())
	reg1 := registry.New(common.NewSessionID())
	adapter1 := noteadapter.New(reg1)
	mgr1 := New(fs, root, reg1, store1, adapter1)

	require.NoError(t, mgr1.OpenNote("note-1"))
	require.NoError(t, adapter1.InitializeNote("note-1", noteadapter.Metadata{}))
	require.NoError(t, adapter1.UpdateMetadata("note-1", noteadapter.MetadataPatch{Title: strPtrFor("From disk")}))

	// A fresh process (new registry/store/adapter, same notes root) should
	// recover the note's metadata by replaying its updates.
	store2 := notelog.NewStore(fs, root, "instance-b", notelog.NewImmediateStrategy())
	reg2 := registry.New(common.NewSessionID())
	adapter2 := noteadapter.New(reg2)

	views, err := Bootstrap(fs, root, reg2, store2, adapter2, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "note-1", views[0].NoteID)
	assert.Equal(t, "From disk", views[0].Title)
}

func TestBootstrapSkipsStarterAlreadyOnDisk(t *testing.T) {
	root := t.TempDir()
	fs := fsys.New()
	store := notelog.NewStore(fs, root, "instance-a", notelog.NewImmediateStrategy())
	reg := registry.New(common.NewSessionID())
	adapter := noteadapter.New(reg)
	mgr := New(fs, root, reg, store, adapter)

	require.NoError(t, mgr.OpenNote("note-1"))
	require.NoError(t, adapter.InitializeNote("note-1", noteadapter.Metadata{}))
	require.NoError(t, adapter.UpdateMetadata("note-1", noteadapter.MetadataPatch{Title: strPtrFor("Existing")}))

	views, err := Bootstrap(fs, root, reg, store, adapter, []StarterNote{
		{NoteID: "note-1", Title: "Should not overwrite"},
	})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Existing", views[0].Title)
}
